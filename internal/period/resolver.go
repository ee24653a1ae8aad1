// Package period resolves Jalali reporting period descriptors into concrete
// Gregorian date ranges with display labels.
package period

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/karnameh/internal/jalali"
)

// Type identifies the reporting period granularity.
type Type string

const (
	TypeDaily   Type = "daily"
	TypeWeekly  Type = "weekly"
	TypeMonthly Type = "monthly"
	TypeYearly  Type = "yearly"
)

// Valid reports whether the type is one of the recognised granularities.
func (t Type) Valid() bool {
	switch t {
	case TypeDaily, TypeWeekly, TypeMonthly, TypeYearly:
		return true
	}
	return false
}

// UnsupportedPeriodTypeError reports a descriptor carrying an unrecognised
// period type.
type UnsupportedPeriodTypeError struct {
	Type Type
}

// Error implements the error interface.
func (e *UnsupportedPeriodTypeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("period: unsupported period type %q", string(e.Type))
}

var (
	// ErrMissingMonth is returned when a daily or monthly descriptor has no month.
	ErrMissingMonth = errors.New("period: month is required")
	// ErrMissingDay is returned when a daily descriptor has no day.
	ErrMissingDay = errors.New("period: day is required")
	// ErrMissingWeek is returned when a weekly descriptor has no usable week
	// number. Week 0 belongs to the previous year's last week and must be
	// remapped by the caller before resolution.
	ErrMissingWeek = errors.New("period: week number must be 1 or greater")
)

// Descriptor names a reporting window with type-appropriate Jalali fields.
// Fields not used by the type are ignored.
type Descriptor struct {
	Type  Type
	Year  int
	Month int
	Week  int
	Day   int
}

// Resolved is a descriptor's concrete form: an inclusive Gregorian civil
// date range plus a deterministic display label. Start is midnight of the
// first day and End the final instant of the last day, both in the
// resolver's location.
type Resolved struct {
	Type      Type
	Start     time.Time
	End       time.Time
	StartDate jalali.Date
	EndDate   jalali.Date
	Label     string
}

// Contains reports whether the instant falls inside the resolved range.
func (r Resolved) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Days returns the number of civil days covered by the range.
func (r Resolved) Days() int {
	return r.EndDate.Sub(r.StartDate) + 1
}

// Resolver turns descriptors into resolved periods using an explicitly
// injected converter.
type Resolver struct {
	conv *jalali.Converter
}

// NewResolver wires the resolver to a converter. A nil converter defaults
// to Persian month names in the Tehran offset.
func NewResolver(conv *jalali.Converter) *Resolver {
	if conv == nil {
		conv = jalali.NewConverter(nil, jalali.LocalePersian)
	}
	return &Resolver{conv: conv}
}

// Converter exposes the underlying calendar converter.
func (r *Resolver) Converter() *jalali.Converter {
	return r.conv
}

// ClampDay lowers a previously selected day so it stays valid after the
// caller switches the month or year, e.g. day 31 carried into a 30-day
// month. Values below 1 are left for validation to reject.
func ClampDay(year, month, day int) int {
	if last := jalali.DaysInMonth(year, month); last > 0 && day > last {
		return last
	}
	return day
}

// Resolve turns the descriptor into its canonical Gregorian range.
//
// Daily descriptors have the day clamped to the target month's length
// before validation, so month or year switches never fail on a day that
// only exists in the previously selected month.
func (r *Resolver) Resolve(desc Descriptor) (Resolved, error) {
	switch desc.Type {
	case TypeDaily:
		return r.resolveDaily(desc)
	case TypeWeekly:
		return r.resolveWeekly(desc)
	case TypeMonthly:
		return r.resolveMonthly(desc)
	case TypeYearly:
		return r.resolveYearly(desc)
	default:
		return Resolved{}, &UnsupportedPeriodTypeError{Type: desc.Type}
	}
}

func (r *Resolver) resolveDaily(desc Descriptor) (Resolved, error) {
	if desc.Month == 0 {
		return Resolved{}, ErrMissingMonth
	}
	if desc.Day == 0 {
		return Resolved{}, ErrMissingDay
	}

	day, err := jalali.New(desc.Year, desc.Month, ClampDay(desc.Year, desc.Month, desc.Day))
	if err != nil {
		return Resolved{}, err
	}

	return r.build(desc.Type, day, day, r.dailyLabel(day)), nil
}

func (r *Resolver) resolveWeekly(desc Descriptor) (Resolved, error) {
	if desc.Week < 1 {
		return Resolved{}, ErrMissingWeek
	}

	start, err := jalali.WeekStart(desc.Year, desc.Week)
	if err != nil {
		return Resolved{}, err
	}

	return r.build(desc.Type, start, start.AddDays(6), r.weeklyLabel(desc.Year, desc.Week)), nil
}

func (r *Resolver) resolveMonthly(desc Descriptor) (Resolved, error) {
	if desc.Month == 0 {
		return Resolved{}, ErrMissingMonth
	}

	start, err := jalali.New(desc.Year, desc.Month, 1)
	if err != nil {
		return Resolved{}, err
	}
	end, err := jalali.New(desc.Year, desc.Month, jalali.DaysInMonth(desc.Year, desc.Month))
	if err != nil {
		return Resolved{}, err
	}

	return r.build(desc.Type, start, end, r.monthlyLabel(desc.Year, desc.Month)), nil
}

func (r *Resolver) resolveYearly(desc Descriptor) (Resolved, error) {
	start, err := jalali.New(desc.Year, 1, 1)
	if err != nil {
		return Resolved{}, err
	}
	end, err := jalali.New(desc.Year, 12, jalali.DaysInMonth(desc.Year, 12))
	if err != nil {
		return Resolved{}, err
	}

	return r.build(desc.Type, start, end, r.yearlyLabel(desc.Year)), nil
}

func (r *Resolver) build(t Type, start, end jalali.Date, label string) Resolved {
	return Resolved{
		Type:      t,
		Start:     r.conv.ToGregorian(start),
		End:       r.conv.EndOfDay(end),
		StartDate: start,
		EndDate:   end,
		Label:     label,
	}
}

func (r *Resolver) dailyLabel(d jalali.Date) string {
	return fmt.Sprintf("%d %s %d", d.Day(), r.conv.MonthName(d.Month()), d.Year())
}

func (r *Resolver) weeklyLabel(year, week int) string {
	if r.conv.Locale() == jalali.LocaleLatin {
		return fmt.Sprintf("Week %d, %d", week, year)
	}
	return fmt.Sprintf("هفته %d سال %d", week, year)
}

func (r *Resolver) monthlyLabel(year, month int) string {
	return fmt.Sprintf("%s %d", r.conv.MonthName(month), year)
}

func (r *Resolver) yearlyLabel(year int) string {
	if r.conv.Locale() == jalali.LocaleLatin {
		return fmt.Sprintf("Year %d", year)
	}
	return fmt.Sprintf("سال %d", year)
}
