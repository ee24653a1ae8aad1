package jalali

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverterToGregorian(t *testing.T) {
	t.Parallel()

	conv := NewConverter(time.UTC, LocaleLatin)
	got := conv.ToGregorian(MustNew(1403, 1, 1))
	assert.True(t, got.Equal(time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)))

	end := conv.EndOfDay(MustNew(1403, 1, 1))
	assert.True(t, end.Before(time.Date(2024, time.March, 21, 0, 0, 0, 0, time.UTC)))
	assert.True(t, end.After(time.Date(2024, time.March, 20, 23, 59, 59, 0, time.UTC)))
}

func TestConverterFromTime(t *testing.T) {
	t.Parallel()

	tehran := time.FixedZone("IRST", 12600)
	conv := NewConverter(tehran, LocalePersian)

	// 22:30 UTC on March 19 is already March 20 in Tehran, hence Nowruz.
	d, err := conv.FromTime(time.Date(2024, time.March, 19, 22, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, d.Equal(MustNew(1403, 1, 1)))
}

func TestConverterDefaults(t *testing.T) {
	t.Parallel()

	conv := NewConverter(nil, LocalePersian)
	require.NotNil(t, conv.Location())

	_, offset := time.Date(2024, time.March, 20, 12, 0, 0, 0, conv.Location()).Zone()
	assert.Equal(t, 12600, offset)
}

func TestMonthNames(t *testing.T) {
	t.Parallel()

	persian := NewConverter(time.UTC, LocalePersian)
	latin := NewConverter(time.UTC, LocaleLatin)

	assert.Equal(t, "فروردین", persian.MonthName(1))
	assert.Equal(t, "اسفند", persian.MonthName(12))
	assert.Equal(t, "Farvardin", latin.MonthName(1))
	assert.Equal(t, "Esfand", latin.MonthName(12))
	assert.Equal(t, "", latin.MonthName(0))
	assert.Equal(t, "", latin.MonthName(13))
}
