package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/karnameh/internal/jalali"
	"github.com/example/karnameh/internal/period"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func newTestEngine(policy BoundPolicy) *Engine {
	return NewEngine(time.UTC, policy)
}

func TestSequenceNone(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(FirstBoundWins)
	anchor := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

	seq, err := engine.Sequence(anchor, Rule{Type: TypeNone, Interval: 5, Count: intPtr(9)})
	require.NoError(t, err)
	assert.True(t, seq.Bounded())

	first, ok := seq.Occurrence(0)
	require.True(t, ok)
	assert.True(t, first.Equal(anchor))

	_, ok = seq.Occurrence(1)
	assert.False(t, ok)

	// A reference past the anchor leaves nothing to return.
	got, err := engine.NextOccurrences(anchor, Rule{Type: TypeNone}, anchor.Add(time.Minute), 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = engine.NextOccurrences(anchor, Rule{Type: TypeNone}, anchor.Add(-time.Minute), 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(anchor))
}

func TestSequenceDaily(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(FirstBoundWins)
	anchor := time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

	seq, err := engine.Sequence(anchor, Rule{Type: TypeDaily, Interval: 3})
	require.NoError(t, err)
	assert.False(t, seq.Bounded())

	for k := 0; k < 50; k++ {
		got, ok := seq.Occurrence(k)
		require.True(t, ok)
		assert.True(t, got.Equal(anchor.AddDate(0, 0, 3*k)), "occurrence %d", k)
	}
}

func TestWeeklyCountBound(t *testing.T) {
	t.Parallel()

	// interval=2, count=5: exactly 5 occurrences, 14 days apart, the first
	// equal to the anchor.
	engine := newTestEngine(FirstBoundWins)
	anchor := time.Date(2024, time.January, 6, 8, 0, 0, 0, time.UTC)

	got, err := engine.NextOccurrences(anchor, Rule{Type: TypeWeekly, Interval: 2, Count: intPtr(5)}, anchor, 100)
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.True(t, got[0].Equal(anchor))
	for i := 1; i < len(got); i++ {
		assert.Equal(t, 14*24*time.Hour, got[i].Sub(got[i-1]))
	}
}

func TestMonthlyClampsDayOfMonth(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(FirstBoundWins)
	anchor := time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)

	seq, err := engine.Sequence(anchor, Rule{Type: TypeMonthly, Interval: 1})
	require.NoError(t, err)

	want := []time.Time{
		anchor,
		time.Date(2024, time.February, 29, 12, 0, 0, 0, time.UTC), // leap February
		time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC),
		time.Date(2024, time.April, 30, 12, 0, 0, 0, time.UTC),
		time.Date(2024, time.May, 31, 12, 0, 0, 0, time.UTC),
	}
	for k, expected := range want {
		got, ok := seq.Occurrence(k)
		require.True(t, ok)
		assert.True(t, got.Equal(expected), "occurrence %d: got %s", k, got)
	}

	// Thirteen months out lands in a common-year February.
	got, ok := seq.Occurrence(13)
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2025, time.February, 28, 12, 0, 0, 0, time.UTC)))
}

func TestYearlyLeapDayClamp(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(FirstBoundWins)
	anchor := time.Date(2024, time.February, 29, 16, 0, 0, 0, time.UTC)

	seq, err := engine.Sequence(anchor, Rule{Type: TypeYearly, Interval: 1})
	require.NoError(t, err)

	next, ok := seq.Occurrence(1)
	require.True(t, ok)
	assert.True(t, next.Equal(time.Date(2025, time.February, 28, 16, 0, 0, 0, time.UTC)))

	leapAgain, ok := seq.Occurrence(4)
	require.True(t, ok)
	assert.True(t, leapAgain.Equal(time.Date(2028, time.February, 29, 16, 0, 0, 0, time.UTC)))
}

func TestJalaliMonthlyProjection(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(FirstBoundWins)
	// 1403/06/31, the last day of Shahrivar.
	anchor := time.Date(2024, time.September, 21, 10, 0, 0, 0, time.UTC)

	seq, err := engine.Sequence(anchor, Rule{Type: TypeMonthly, Interval: 1, Calendar: CalendarJalali})
	require.NoError(t, err)

	// Mehr has 30 days: 1403/07/30 is 2024-10-21.
	next, ok := seq.Occurrence(1)
	require.True(t, ok)
	assert.True(t, next.Equal(time.Date(2024, time.October, 21, 10, 0, 0, 0, time.UTC)))

	d, err := jalali.FromGregorian(next.Year(), int(next.Month()), next.Day())
	require.NoError(t, err)
	assert.True(t, d.Equal(jalali.MustNew(1403, 7, 30)))
}

func TestJalaliYearlyLeapEsfandClamp(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(FirstBoundWins)
	// 1403/12/30, the leap-year-only last day of Esfand (2025-03-20).
	anchor := time.Date(2025, time.March, 20, 9, 0, 0, 0, time.UTC)

	seq, err := engine.Sequence(anchor, Rule{Type: TypeYearly, Interval: 1, Calendar: CalendarJalali})
	require.NoError(t, err)

	// 1404 is a common year, so the day clamps to Esfand 29.
	next, ok := seq.Occurrence(1)
	require.True(t, ok)

	d, err := jalali.FromGregorian(next.Year(), int(next.Month()), next.Day())
	require.NoError(t, err)
	assert.True(t, d.Equal(jalali.MustNew(1404, 12, 29)))
}

func TestEndDateBoundInclusive(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(FirstBoundWins)
	anchor := time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)
	end := anchor.AddDate(0, 0, 21) // exactly the fourth weekly occurrence

	got, err := engine.NextOccurrences(anchor, Rule{Type: TypeWeekly, Interval: 1, EndDate: timePtr(end)}, anchor, 100)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.True(t, got[3].Equal(end), "occurrence on the end date is included")

	// One second earlier excludes the final occurrence.
	earlier := end.Add(-time.Second)
	got, err = engine.NextOccurrences(anchor, Rule{Type: TypeWeekly, Interval: 1, EndDate: timePtr(earlier)}, anchor, 100)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestBoundPolicies(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)
	rule := Rule{
		Type:     TypeDaily,
		Interval: 1,
		EndDate:  timePtr(anchor.AddDate(0, 0, 2)),
		Count:    intPtr(10),
	}

	t.Run("first bound reached wins", func(t *testing.T) {
		t.Parallel()
		got, err := newTestEngine(FirstBoundWins).NextOccurrences(anchor, rule, anchor, 100)
		require.NoError(t, err)
		assert.Len(t, got, 3, "end date cuts before the count does")
	})

	t.Run("exclusive bounds reject the combination", func(t *testing.T) {
		t.Parallel()
		_, err := newTestEngine(ExclusiveBounds).Sequence(anchor, rule)
		var ambiguous *AmbiguousRecurrenceError
		require.True(t, errors.As(err, &ambiguous))
		assert.Equal(t, 10, ambiguous.Count)
	})

	t.Run("exclusive bounds accept a single bound", func(t *testing.T) {
		t.Parallel()
		single := Rule{Type: TypeDaily, Interval: 1, Count: intPtr(2)}
		got, err := newTestEngine(ExclusiveBounds).NextOccurrences(anchor, single, anchor, 100)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestNextOccurrencesJumpsFarFromAnchor(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(FirstBoundWins)
	anchor := time.Date(2000, time.January, 1, 7, 0, 0, 0, time.UTC)
	ref := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

	got, err := engine.NextOccurrences(anchor, Rule{Type: TypeDaily, Interval: 1}, ref, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, got[0].Equal(time.Date(2024, time.June, 15, 7, 0, 0, 0, time.UTC)))
	assert.True(t, got[1].Equal(time.Date(2024, time.June, 16, 7, 0, 0, 0, time.UTC)))
	assert.True(t, got[2].Equal(time.Date(2024, time.June, 17, 7, 0, 0, 0, time.UTC)))

	// Monthly with a clamped anchor day, decades out.
	got, err = engine.NextOccurrences(anchor.AddDate(0, 0, 30), Rule{Type: TypeMonthly, Interval: 1}, ref, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(time.Date(2024, time.June, 30, 7, 0, 0, 0, time.UTC)))
	assert.True(t, got[1].Equal(time.Date(2024, time.July, 31, 7, 0, 0, 0, time.UTC)))
}

func TestNextOccurrencesIncludesReferenceInstant(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(FirstBoundWins)
	anchor := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

	got, err := engine.NextOccurrences(anchor, Rule{Type: TypeWeekly, Interval: 1}, anchor.AddDate(0, 0, 7), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(anchor.AddDate(0, 0, 7)))
}

func TestOccurrenceWithin(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(FirstBoundWins)
	resolver := period.NewResolver(jalali.NewConverter(time.UTC, jalali.LocaleLatin))

	// Monthly meeting anchored on 2024-04-10.
	anchor := time.Date(2024, time.April, 10, 14, 0, 0, 0, time.UTC)
	rule := Rule{Type: TypeMonthly, Interval: 1}

	// Week 8 of 1403 runs 2024-05-11 through 2024-05-17: the May 10th
	// occurrence misses it.
	miss, err := resolver.Resolve(period.Descriptor{Type: period.TypeWeekly, Year: 1403, Week: 8})
	require.NoError(t, err)
	_, ok, err := engine.OccurrenceWithin(anchor, rule, miss)
	require.NoError(t, err)
	assert.False(t, ok)

	// Week 7 (2024-05-04 through 2024-05-10) contains it.
	hit, err := resolver.Resolve(period.Descriptor{Type: period.TypeWeekly, Year: 1403, Week: 7})
	require.NoError(t, err)
	got, ok, err := engine.OccurrenceWithin(anchor, rule, hit)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2024, time.May, 10, 14, 0, 0, 0, time.UTC)))
}

func TestSequenceValidation(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(FirstBoundWins)
	anchor := time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)

	_, err := engine.Sequence(anchor, Rule{Type: Type("hourly")})
	assert.ErrorIs(t, err, ErrInvalidRuleType)

	_, err = engine.Sequence(anchor, Rule{Type: TypeDaily, Interval: -1})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = engine.Sequence(anchor, Rule{Type: TypeDaily, Count: intPtr(0)})
	assert.ErrorIs(t, err, ErrInvalidCount)

	// Zero interval normalizes to one.
	seq, err := engine.Sequence(anchor, Rule{Type: TypeDaily})
	require.NoError(t, err)
	next, ok := seq.Occurrence(1)
	require.True(t, ok)
	assert.True(t, next.Equal(anchor.AddDate(0, 0, 1)))
}

func TestFromGeneratorIsRestartable(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(FirstBoundWins)
	anchor := time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)

	seq, err := engine.Sequence(anchor, Rule{Type: TypeDaily, Interval: 2, Count: intPtr(3)})
	require.NoError(t, err)

	collect := func(ref time.Time) []time.Time {
		var out []time.Time
		next := seq.From(ref)
		for {
			occ, ok := next()
			if !ok {
				return out
			}
			out = append(out, occ)
		}
	}

	all := collect(anchor)
	require.Len(t, all, 3)

	tail := collect(anchor.AddDate(0, 0, 1))
	require.Len(t, tail, 2)
	assert.True(t, tail[0].Equal(all[1]))
	assert.True(t, tail[1].Equal(all[2]))
}
