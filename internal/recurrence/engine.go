// Package recurrence expands meeting recurrence rules into lazy occurrence
// sequences. Occurrence k is computed in closed form from the anchor, so
// queries far from the anchor never iterate from the first occurrence.
package recurrence

import (
	"time"

	"github.com/example/karnameh/internal/jalali"
	"github.com/example/karnameh/internal/period"
)

// Engine expands recurrence rules. It is pure and safe for concurrent use.
type Engine struct {
	location *time.Location
	policy   BoundPolicy
}

// NewEngine constructs an engine that normalizes occurrences to the
// provided location (UTC when nil) and applies the given bound policy.
func NewEngine(loc *time.Location, policy BoundPolicy) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc, policy: policy}
}

// Sequence is the lazy, possibly infinite occurrence sequence of one rule
// anchored at a meeting's datetime. It is immutable and restartable from
// any point.
type Sequence struct {
	anchor   time.Time
	rule     Rule
	interval int
	jAnchor  jalali.Date // set when the rule projects in the Jalali calendar
}

// Sequence validates the rule and binds it to an anchor.
func (e *Engine) Sequence(anchor time.Time, rule Rule) (*Sequence, error) {
	if !rule.Type.Valid() {
		return nil, ErrInvalidRuleType
	}
	if rule.Interval < 0 {
		return nil, ErrInvalidInterval
	}
	if rule.Count != nil && *rule.Count < 1 {
		return nil, ErrInvalidCount
	}
	if e.policy == ExclusiveBounds && rule.Type != TypeNone && rule.EndDate != nil && rule.Count != nil {
		return nil, &AmbiguousRecurrenceError{EndDate: *rule.EndDate, Count: *rule.Count}
	}

	interval := rule.Interval
	if interval == 0 {
		interval = 1
	}

	seq := &Sequence{
		anchor:   anchor.In(e.location),
		rule:     rule,
		interval: interval,
	}

	if rule.Calendar == CalendarJalali && (rule.Type == TypeMonthly || rule.Type == TypeYearly) {
		local := seq.anchor
		jd, err := jalali.FromGregorian(local.Year(), int(local.Month()), local.Day())
		if err != nil {
			return nil, err
		}
		seq.jAnchor = jd
	}

	return seq, nil
}

// Anchor returns the normalized anchor datetime.
func (s *Sequence) Anchor() time.Time { return s.anchor }

// Bounded reports whether the sequence is finite.
func (s *Sequence) Bounded() bool { return s.rule.Bounded() }

// Occurrence returns occurrence k (k=0 is the anchor itself) and whether it
// exists under the rule's bounds.
func (s *Sequence) Occurrence(k int) (time.Time, bool) {
	if k < 0 {
		return time.Time{}, false
	}
	if s.rule.Type == TypeNone {
		if k > 0 {
			return time.Time{}, false
		}
		return s.anchor, true
	}
	if s.rule.Count != nil && k >= *s.rule.Count {
		return time.Time{}, false
	}

	t, ok := s.at(k)
	if !ok {
		return time.Time{}, false
	}
	if s.rule.EndDate != nil && t.After(*s.rule.EndDate) {
		return time.Time{}, false
	}
	return t, true
}

// From returns a restartable generator yielding occurrences at or after
// ref in chronological order. Each call to the returned function produces
// the next occurrence; ok turns false once the sequence is exhausted.
func (s *Sequence) From(ref time.Time) func() (time.Time, bool) {
	k := s.firstIndexAtOrAfter(ref)
	return func() (time.Time, bool) {
		t, ok := s.Occurrence(k)
		if ok {
			k++
		}
		return t, ok
	}
}

// NextOccurrences returns up to n occurrences at or after ref in
// chronological order. The starting index is found arithmetically, so an
// anchor far in the past costs the same as a recent one.
func (e *Engine) NextOccurrences(anchor time.Time, rule Rule, ref time.Time, n int) ([]time.Time, error) {
	seq, err := e.Sequence(anchor, rule)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	next := seq.From(ref.In(e.location))
	occurrences := make([]time.Time, 0, n)
	for len(occurrences) < n {
		t, ok := next()
		if !ok {
			break
		}
		occurrences = append(occurrences, t)
	}
	return occurrences, nil
}

// OccurrenceWithin returns the occurrence falling inside the resolved
// period's inclusive range, if any. Periods shorter than the recurrence
// interval contain at most one occurrence; for denser rules the earliest
// occurrence in the range is returned.
func (e *Engine) OccurrenceWithin(anchor time.Time, rule Rule, p period.Resolved) (time.Time, bool, error) {
	seq, err := e.Sequence(anchor, rule)
	if err != nil {
		return time.Time{}, false, err
	}

	t, ok := seq.Occurrence(seq.firstIndexAtOrAfter(p.Start.In(e.location)))
	if !ok || t.After(p.End) {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// at computes occurrence k ignoring bounds. ok is false when the result is
// outside the supported calendar range.
func (s *Sequence) at(k int) (time.Time, bool) {
	switch s.rule.Type {
	case TypeNone:
		return s.anchor, true
	case TypeDaily:
		return s.anchor.AddDate(0, 0, k*s.interval), true
	case TypeWeekly:
		return s.anchor.AddDate(0, 0, 7*k*s.interval), true
	case TypeMonthly:
		return s.projectMonths(k * s.interval)
	case TypeYearly:
		return s.projectMonths(12 * k * s.interval)
	default:
		return time.Time{}, false
	}
}

// projectMonths advances the anchor's day-of-month by the given number of
// months, clamping to the target month's last day when the anchor day does
// not exist there. The arithmetic runs in the rule's calendar.
func (s *Sequence) projectMonths(months int) (time.Time, bool) {
	if s.rule.Calendar == CalendarJalali {
		return s.projectJalaliMonths(months)
	}

	year, month, day := s.anchor.Date()
	index := year*12 + int(month) - 1 + months
	targetYear, targetMonth := index/12, index%12+1
	if last := daysInGregorianMonth(targetYear, targetMonth); day > last {
		day = last
	}

	h, m, sec := s.anchor.Clock()
	return time.Date(targetYear, time.Month(targetMonth), day, h, m, sec, s.anchor.Nanosecond(), s.anchor.Location()), true
}

func (s *Sequence) projectJalaliMonths(months int) (time.Time, bool) {
	index := s.jAnchor.Year()*12 + s.jAnchor.Month() - 1 + months
	targetYear, targetMonth := index/12, index%12+1
	day := s.jAnchor.Day()
	if last := jalali.DaysInMonth(targetYear, targetMonth); day > last {
		day = last
	}

	target, err := jalali.New(targetYear, targetMonth, day)
	if err != nil {
		return time.Time{}, false
	}

	gy, gm, gd := target.Gregorian()
	h, m, sec := s.anchor.Clock()
	return time.Date(gy, time.Month(gm), gd, h, m, sec, s.anchor.Nanosecond(), s.anchor.Location()), true
}

// firstIndexAtOrAfter returns the smallest k whose occurrence is not before
// ref, estimated arithmetically and corrected by a bounded walk.
func (s *Sequence) firstIndexAtOrAfter(ref time.Time) int {
	if s.rule.Type == TypeNone {
		if s.anchor.Before(ref) {
			return 1 // past the only occurrence
		}
		return 0
	}
	if !s.anchor.Before(ref) {
		return 0
	}

	k := s.estimateIndex(ref)
	if k < 0 {
		k = 0
	}
	for k > 0 {
		t, ok := s.at(k - 1)
		if !ok || t.Before(ref) {
			break
		}
		k--
	}
	for {
		t, ok := s.at(k)
		if !ok || !t.Before(ref) {
			return k
		}
		k++
	}
}

// estimateIndex lands within a step or two of the first occurrence at or
// after ref. The correction walk in firstIndexAtOrAfter absorbs clamping
// and daylight-saving drift.
func (s *Sequence) estimateIndex(ref time.Time) int {
	span := ref.Sub(s.anchor)
	switch s.rule.Type {
	case TypeDaily:
		return int(span / (time.Duration(s.interval) * 24 * time.Hour))
	case TypeWeekly:
		return int(span / (time.Duration(s.interval) * 7 * 24 * time.Hour))
	case TypeMonthly:
		return s.monthSpan(ref) / s.interval
	case TypeYearly:
		return s.monthSpan(ref) / (12 * s.interval)
	default:
		return 0
	}
}

func (s *Sequence) monthSpan(ref time.Time) int {
	local := ref.In(s.anchor.Location())
	if s.rule.Calendar == CalendarJalali {
		jd, err := jalali.FromGregorian(local.Year(), int(local.Month()), local.Day())
		if err != nil {
			return 0
		}
		return (jd.Year()*12 + jd.Month()) - (s.jAnchor.Year()*12 + s.jAnchor.Month())
	}
	return (local.Year()*12 + int(local.Month())) - (s.anchor.Year()*12 + int(s.anchor.Month()))
}

func daysInGregorianMonth(year, month int) int {
	switch month {
	case 2:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}
