package jalali

import "time"

// Weeks start on Saturday. Week 1 of a year begins on the first Saturday on
// or after Farvardin 1; the days before it belong to week 0, conceptually
// the tail of the previous year's last week. Callers attributing week 0 to
// a concrete range must map it to the previous year themselves.

// FirstSaturday returns the first Saturday on or after Farvardin 1 of the
// given year.
func FirstSaturday(year int) (Date, error) {
	start, err := New(year, 1, 1)
	if err != nil {
		return Date{}, err
	}
	offset := (int(time.Saturday) - int(start.Weekday()) + 7) % 7
	return start.AddDays(offset), nil
}

// WeekOf returns the week number of the date within its Jalali year. Dates
// before the year's first Saturday yield 0.
func WeekOf(d Date) (int, error) {
	first, err := FirstSaturday(d.Year())
	if err != nil {
		return 0, err
	}
	if d.Before(first) {
		return 0, nil
	}
	return d.Sub(first)/7 + 1, nil
}

// WeekStart inverts WeekOf: it returns the Saturday beginning the given
// week number (week >= 1) of the year.
func WeekStart(year, week int) (Date, error) {
	first, err := FirstSaturday(year)
	if err != nil {
		return Date{}, err
	}
	return first.AddDays((week - 1) * 7), nil
}

// LastWeek returns the week number containing the final day of the year,
// used when a caller needs to roll week 0 back into the previous year.
func LastWeek(year int) (int, error) {
	last, err := New(year, 12, DaysInMonth(year, 12))
	if err != nil {
		return 0, err
	}
	return WeekOf(last)
}
