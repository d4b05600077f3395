package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToday(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	w := Today(now)

	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, now, w.End)
	assert.True(t, w.Contains(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(now)) // half-open
	assert.False(t, w.Contains(time.Date(2024, 3, 14, 23, 59, 59, 0, time.UTC)))
}

func TestISOWeek_MidWeek(t *testing.T) {
	// 2024-03-15 is a Friday; the week starts Monday 2024-03-11.
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	w := ISOWeek(now)

	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, now, w.End)
}

func TestISOWeek_Sunday(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday.
	now := time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC)
	w := ISOWeek(now)

	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), w.Start)
}

func TestISOWeek_Monday(t *testing.T) {
	now := time.Date(2024, 3, 11, 0, 30, 0, 0, time.UTC)
	w := ISOWeek(now)

	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), w.Start)
}

func TestPriorISOWeek_SameElapsedSpan(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	current := ISOWeek(now)
	prior := PriorISOWeek(now)

	assert.Equal(t, current.Start.AddDate(0, 0, -7), prior.Start)
	assert.Equal(t, current.End.AddDate(0, 0, -7), prior.End)
	assert.Equal(t, current.End.Sub(current.Start), prior.End.Sub(prior.Start))
}

func TestMonthToDate(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	w := MonthToDate(now)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, now, w.End)
}

func TestPriorMonthEquivalent(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	w := PriorMonthEquivalent(now)

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 2, 15, 14, 30, 0, 0, time.UTC), w.End)
}

func TestPriorMonthEquivalent_ClampsToMonthLength(t *testing.T) {
	// March 30 against February: 2024 is a leap year, clamp to Feb 29.
	now := time.Date(2024, 3, 30, 8, 0, 0, 0, time.UTC)
	w := PriorMonthEquivalent(now)

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC), w.End)

	// Non-leap year clamps to Feb 28.
	now = time.Date(2023, 3, 31, 8, 0, 0, 0, time.UTC)
	w = PriorMonthEquivalent(now)
	assert.Equal(t, time.Date(2023, 2, 28, 8, 0, 0, 0, time.UTC), w.End)
}

func TestWindowsNormalizeToUTC(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2024, 3, 15, 2, 0, 0, 0, ist) // 2024-03-14 20:30 UTC
	w := Today(now)

	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.UTC, w.End.Location())
}
