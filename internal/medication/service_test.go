package medication

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func takenOn(day time.Time) LedgerEntry {
	takenAt := day.Add(8 * time.Hour)
	return LedgerEntry{Date: DayOf(day), Taken: true, TakenAt: &takenAt}
}

// A window of N days ending today must admit at most N ledger entries, so a
// fully adherent ledger divides to exactly 100%.
func TestAdherenceWindowHoldsExactlyDays(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

	var entries []LedgerEntry
	for i := 0; i < 10; i++ {
		entries = append(entries, takenOn(now.AddDate(0, 0, -i)))
	}

	result := adherenceOver(entries, 7, now)

	assert.Equal(t, 7, result.TotalDays)
	assert.Equal(t, 7, result.Taken)
	assert.Equal(t, 0, result.Missed)
	assert.Equal(t, 100, result.AdherenceRate)
}

func TestAdherenceWindowBoundaries(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	days := 7

	oldest := takenOn(now.AddDate(0, 0, -(days - 1))) // May 9, inside
	outside := takenOn(now.AddDate(0, 0, -days))      // May 8, outside
	future := takenOn(now.AddDate(0, 0, 1))           // not yet in the window

	result := adherenceOver([]LedgerEntry{oldest, outside, future}, days, now)

	assert.Equal(t, 1, result.Taken)
	assert.Equal(t, 6, result.Missed)
}

func TestAdherenceCountsSkippedSeparately(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

	entries := []LedgerEntry{
		takenOn(now),
		takenOn(now.AddDate(0, 0, -1)),
		{Date: DayOf(now.AddDate(0, 0, -2)), Skipped: true},
	}

	result := adherenceOver(entries, 7, now)

	assert.Equal(t, 2, result.Taken)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 4, result.Missed)
	assert.Equal(t, 29, result.AdherenceRate) // round(2/7*100)
}

func TestAdherenceDefaultsToThirtyDays(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

	result := adherenceOver(nil, 0, now)

	assert.Equal(t, 30, result.TotalDays)
	assert.Equal(t, 30, result.Missed)
	require.Len(t, result.WeeklyBreakdown, 5)
	assert.Equal(t, DayOf(now).AddDate(0, 0, -29), result.WeeklyBreakdown[0].StartDate)
}
