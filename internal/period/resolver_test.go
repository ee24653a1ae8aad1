package period

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/karnameh/internal/jalali"
)

func newTestResolver() *Resolver {
	return NewResolver(jalali.NewConverter(time.UTC, jalali.LocaleLatin))
}

func TestResolveDaily(t *testing.T) {
	t.Parallel()

	r := newTestResolver()

	resolved, err := r.Resolve(Descriptor{Type: TypeDaily, Year: 1403, Month: 1, Day: 1})
	require.NoError(t, err)

	assert.True(t, resolved.Start.Equal(time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, resolved.Days())
	assert.True(t, resolved.StartDate.Equal(resolved.EndDate))
	assert.Equal(t, "1 Farvardin 1403", resolved.Label)
	assert.True(t, resolved.Contains(time.Date(2024, time.March, 20, 23, 59, 0, 0, time.UTC)))
	assert.False(t, resolved.Contains(time.Date(2024, time.March, 21, 0, 0, 0, 0, time.UTC)))
}

func TestResolveDailyClampsDay(t *testing.T) {
	t.Parallel()

	r := newTestResolver()

	// Day 31 carried from a 31-day month into Mehr (30 days) clamps to 30.
	resolved, err := r.Resolve(Descriptor{Type: TypeDaily, Year: 1403, Month: 7, Day: 31})
	require.NoError(t, err)
	assert.Equal(t, 30, resolved.StartDate.Day())

	// Esfand 30 carried into a common year clamps to 29.
	resolved, err = r.Resolve(Descriptor{Type: TypeDaily, Year: 1402, Month: 12, Day: 30})
	require.NoError(t, err)
	assert.Equal(t, 29, resolved.StartDate.Day())
}

func TestResolveWeekly(t *testing.T) {
	t.Parallel()

	r := newTestResolver()

	resolved, err := r.Resolve(Descriptor{Type: TypeWeekly, Year: 1403, Week: 1})
	require.NoError(t, err)

	// Week 1 of 1403 runs Saturday 2024-03-23 through Friday 2024-03-29.
	assert.True(t, resolved.Start.Equal(time.Date(2024, time.March, 23, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 7, resolved.Days())
	assert.Equal(t, time.Saturday, resolved.StartDate.Weekday())
	assert.Equal(t, time.Friday, resolved.EndDate.Weekday())
	assert.Equal(t, "Week 1, 1403", resolved.Label)

	_, err = r.Resolve(Descriptor{Type: TypeWeekly, Year: 1403})
	assert.ErrorIs(t, err, ErrMissingWeek)

	_, err = r.Resolve(Descriptor{Type: TypeWeekly, Year: 1403, Week: 0})
	assert.ErrorIs(t, err, ErrMissingWeek)
}

func TestResolveMonthly(t *testing.T) {
	t.Parallel()

	r := newTestResolver()

	cases := []struct {
		name     string
		year     int
		month    int
		wantDays int
	}{
		{name: "31-day month", year: 1403, month: 2, wantDays: 31},
		{name: "30-day month", year: 1403, month: 8, wantDays: 30},
		{name: "leap esfand", year: 1403, month: 12, wantDays: 30},
		{name: "common esfand", year: 1402, month: 12, wantDays: 29},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			resolved, err := r.Resolve(Descriptor{Type: TypeMonthly, Year: tc.year, Month: tc.month})
			require.NoError(t, err)
			assert.Equal(t, tc.wantDays, resolved.Days())
			assert.Equal(t, 1, resolved.StartDate.Day())
			assert.Equal(t, tc.wantDays, resolved.EndDate.Day())
		})
	}

	_, err := r.Resolve(Descriptor{Type: TypeMonthly, Year: 1403})
	assert.ErrorIs(t, err, ErrMissingMonth)
}

func TestResolveYearly(t *testing.T) {
	t.Parallel()

	r := newTestResolver()

	resolved, err := r.Resolve(Descriptor{Type: TypeYearly, Year: 1403})
	require.NoError(t, err)
	assert.Equal(t, 366, resolved.Days())
	assert.True(t, resolved.StartDate.Equal(jalali.MustNew(1403, 1, 1)))
	assert.True(t, resolved.EndDate.Equal(jalali.MustNew(1403, 12, 30)))
	assert.Equal(t, "Year 1403", resolved.Label)

	resolved, err = r.Resolve(Descriptor{Type: TypeYearly, Year: 1402})
	require.NoError(t, err)
	assert.Equal(t, 365, resolved.Days())
	assert.True(t, resolved.EndDate.Equal(jalali.MustNew(1402, 12, 29)))
}

func TestResolveUnsupportedType(t *testing.T) {
	t.Parallel()

	r := newTestResolver()

	_, err := r.Resolve(Descriptor{Type: Type("quarterly"), Year: 1403})
	var unsupported *UnsupportedPeriodTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, Type("quarterly"), unsupported.Type)
}

func TestLabelsAreDeterministic(t *testing.T) {
	t.Parallel()

	persian := NewResolver(jalali.NewConverter(time.UTC, jalali.LocalePersian))
	desc := Descriptor{Type: TypeMonthly, Year: 1403, Month: 12}

	first, err := persian.Resolve(desc)
	require.NoError(t, err)
	second, err := persian.Resolve(desc)
	require.NoError(t, err)

	assert.Equal(t, first.Label, second.Label)
	assert.Equal(t, "اسفند 1403", first.Label)
}

func TestClampDay(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 30, ClampDay(1403, 7, 31))
	assert.Equal(t, 29, ClampDay(1402, 12, 31))
	assert.Equal(t, 30, ClampDay(1403, 12, 31))
	assert.Equal(t, 15, ClampDay(1403, 7, 15))
	assert.Equal(t, 0, ClampDay(1403, 7, 0))
}
