package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Type identifies how a meeting repeats.
type Type string

const (
	TypeNone    Type = "none"
	TypeDaily   Type = "daily"
	TypeWeekly  Type = "weekly"
	TypeMonthly Type = "monthly"
	TypeYearly  Type = "yearly"
)

// Valid reports whether the type is one of the recognised rule types.
func (t Type) Valid() bool {
	switch t {
	case TypeNone, TypeDaily, TypeWeekly, TypeMonthly, TypeYearly:
		return true
	}
	return false
}

// Calendar selects the calendar in which monthly and yearly projection
// performs its month/year arithmetic and day-of-month clamping. Daily and
// weekly rules are plain day arithmetic and ignore it.
type Calendar string

const (
	// CalendarGregorian projects month/year steps in the Gregorian
	// calendar. This is the default and matches stored meeting anchors.
	CalendarGregorian Calendar = "gregorian"
	// CalendarJalali projects month/year steps in the Jalali calendar, for
	// meetings anchored to a Jalali day-of-month.
	CalendarJalali Calendar = "jalali"
)

// Rule describes how occurrences derive from a meeting's anchor datetime.
//
// At most one of EndDate and Count is meaningful; whether supplying both is
// an error or a "first bound reached wins" conjunction is decided by the
// engine's BoundPolicy. A rule of TypeNone has exactly the anchor as its
// only occurrence and ignores the other fields.
type Rule struct {
	Type     Type
	Interval int
	EndDate  *time.Time
	Count    *int
	Calendar Calendar
}

// Bounded reports whether the rule limits its occurrence sequence.
func (r Rule) Bounded() bool {
	return r.Type == TypeNone || r.EndDate != nil || r.Count != nil
}

// BoundPolicy decides how a rule carrying both EndDate and Count behaves.
type BoundPolicy int

const (
	// FirstBoundWins applies both limits and stops at whichever is reached
	// first.
	FirstBoundWins BoundPolicy = iota
	// ExclusiveBounds rejects rules that carry both limits with
	// *AmbiguousRecurrenceError at sequence construction.
	ExclusiveBounds
)

// AmbiguousRecurrenceError reports a bounded rule carrying both EndDate and
// Count under the ExclusiveBounds policy.
type AmbiguousRecurrenceError struct {
	EndDate time.Time
	Count   int
}

// Error implements the error interface.
func (e *AmbiguousRecurrenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("recurrence: rule carries both end date %s and count %d", e.EndDate.Format(time.RFC3339), e.Count)
}

var (
	// ErrInvalidRuleType indicates the rule type is not supported.
	ErrInvalidRuleType = errors.New("recurrence: invalid rule type")
	// ErrInvalidInterval indicates a negative recurrence interval.
	ErrInvalidInterval = errors.New("recurrence: interval must be 1 or greater")
	// ErrInvalidCount indicates an occurrence count below 1.
	ErrInvalidCount = errors.New("recurrence: count must be 1 or greater")
)
