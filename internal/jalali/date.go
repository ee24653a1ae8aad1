package jalali

import (
	"fmt"
	"time"
)

// Supported year range for the fixed proleptic conversion arithmetic. The
// bounds keep both calendars inside the window where the 33-year cycle and
// the Gregorian civil calendar stay mutually consistent.
const (
	MinYear = 1178
	MaxYear = 1633
)

// InvalidDateError reports a Jalali date whose components do not form a
// valid calendar day.
type InvalidDateError struct {
	Year  int
	Month int
	Day   int
}

// Error implements the error interface.
func (e *InvalidDateError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("jalali: invalid date %04d/%02d/%02d", e.Year, e.Month, e.Day)
}

// Date is an immutable Jalali calendar day. The zero value is not a valid
// date; construct values with New or FromGregorian.
type Date struct {
	year  int
	month int
	day   int
}

// New validates the components and returns the corresponding Date.
func New(year, month, day int) (Date, error) {
	if year < MinYear || year > MaxYear || month < 1 || month > 12 || day < 1 || day > DaysInMonth(year, month) {
		return Date{}, &InvalidDateError{Year: year, Month: month, Day: day}
	}
	return Date{year: year, month: month, day: day}, nil
}

// MustNew constructs a Date and panics on invalid components. Intended for
// fixtures and constants whose validity is known.
func MustNew(year, month, day int) Date {
	d, err := New(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// Year returns the Jalali year.
func (d Date) Year() int { return d.year }

// Month returns the Jalali month in 1..12.
func (d Date) Month() int { return d.month }

// Day returns the day of month.
func (d Date) Day() int { return d.day }

// IsZero reports whether d is the uninitialised zero value.
func (d Date) IsZero() bool { return d.year == 0 && d.month == 0 && d.day == 0 }

// String renders the date as YYYY/MM/DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.year, d.month, d.day)
}

// IsLeapYear reports whether the Jalali year has 366 days. The test is the
// 33-year cycle used by the conversion arithmetic, so leap status and
// round-trip conversion can never disagree.
func IsLeapYear(year int) bool {
	r := (year + cycleOffset) % 33
	return r%4 == 0 && r != 32
}

// DaysInMonth returns the length of the given month: months 1-6 have 31
// days, 7-11 have 30, and Esfand has 30 only in a leap year.
func DaysInMonth(year, month int) int {
	switch {
	case month >= 1 && month <= 6:
		return 31
	case month >= 7 && month <= 11:
		return 30
	case month == 12:
		if IsLeapYear(year) {
			return 30
		}
		return 29
	default:
		return 0
	}
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// Weekday returns the Gregorian weekday of the date.
func (d Date) Weekday() time.Weekday {
	gy, gm, gd := d.Gregorian()
	return time.Date(gy, time.Month(gm), gd, 0, 0, 0, 0, time.UTC).Weekday()
}

// AddDays returns the date shifted by the given number of days. The result
// must stay inside the supported range.
func (d Date) AddDays(days int) Date {
	gy, gm, gd := d.Gregorian()
	t := time.Date(gy, time.Month(gm), gd+days, 0, 0, 0, 0, time.UTC)
	out, _ := fromGregorian(t.Year(), int(t.Month()), t.Day())
	return out
}

// Sub returns the number of days from other to d.
func (d Date) Sub(other Date) int {
	return d.ordinal() - other.ordinal()
}

// Before reports whether d is an earlier calendar day than other.
func (d Date) Before(other Date) bool { return d.Sub(other) < 0 }

// After reports whether d is a later calendar day than other.
func (d Date) After(other Date) bool { return d.Sub(other) > 0 }

// Equal reports whether both values name the same calendar day.
func (d Date) Equal(other Date) bool { return d == other }

const cycleOffset = 1595

// ordinal returns a monotonically increasing day number shared by the
// conversion arithmetic in both directions.
func (d Date) ordinal() int {
	jy := d.year + cycleOffset
	days := -355668 + 365*jy + (jy/33)*8 + ((jy%33)+3)/4 + d.day
	if d.month < 7 {
		days += (d.month - 1) * 31
	} else {
		days += (d.month-7)*30 + 186
	}
	return days
}

// Gregorian converts the date to Gregorian calendar components using the
// fixed 33-year cycle arithmetic.
func (d Date) Gregorian() (year, month, day int) {
	days := d.ordinal()

	gy := 400 * (days / 146097)
	days %= 146097
	if days > 36524 {
		days--
		gy += 100 * (days / 36524)
		days %= 36524
		if days >= 365 {
			days++
		}
	}
	gy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		gy += (days - 1) / 365
		days = (days - 1) % 365
	}
	gd := days + 1

	feb := 28
	if gregorianLeap(gy) {
		feb = 29
	}
	lengths := [12]int{31, feb, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	gm := 0
	for gm < 11 && gd > lengths[gm] {
		gd -= lengths[gm]
		gm++
	}
	return gy, gm + 1, gd
}

// FromGregorian converts Gregorian calendar components to the Jalali date.
// Inputs outside the supported range fail with *InvalidDateError carrying
// the computed Jalali components.
func FromGregorian(year, month, day int) (Date, error) {
	if month < 1 || month > 12 || day < 1 || day > gregorianDaysInMonth(year, month) {
		return Date{}, &InvalidDateError{Year: year, Month: month, Day: day}
	}
	return fromGregorian(year, month, day)
}

func fromGregorian(gy, gm, gd int) (Date, error) {
	monthOffsets := [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}
	gy2 := gy
	if gm > 2 {
		gy2 = gy + 1
	}
	days := 355666 + 365*gy + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400 + gd + monthOffsets[gm-1]

	jy := -cycleOffset + 33*(days/12053)
	days %= 12053
	jy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}

	var jm, jd int
	if days < 186 {
		jm = 1 + days/31
		jd = 1 + days%31
	} else {
		jm = 7 + (days-186)/30
		jd = 1 + (days-186)%30
	}

	if jy < MinYear || jy > MaxYear {
		return Date{}, &InvalidDateError{Year: jy, Month: jm, Day: jd}
	}
	return Date{year: jy, month: jm, day: jd}, nil
}

func gregorianLeap(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

func gregorianDaysInMonth(year, month int) int {
	switch month {
	case 2:
		if gregorianLeap(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}
