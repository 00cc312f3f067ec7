package medication

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkTakenCreatesSingleEntryPerDay(t *testing.T) {
	med := &Medication{}
	now := time.Date(2024, 4, 2, 8, 15, 0, 0, time.UTC)

	med.MarkTaken(now, "with breakfast", now)
	med.MarkTaken(now.Add(3*time.Hour), "again", now.Add(3*time.Hour))

	require.Len(t, med.TakenDates, 1)
	entry := med.TakenDates[0]
	assert.True(t, entry.Taken)
	assert.False(t, entry.Skipped)
	assert.Equal(t, "again", entry.Notes)
	assert.Equal(t, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), entry.Date)
}

func TestMarkSkippedAfterTakenLastWriteWins(t *testing.T) {
	med := &Medication{}
	now := time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)

	med.MarkTaken(now, "", now)
	med.MarkSkipped(now.Add(time.Hour), "felt dizzy", now.Add(time.Hour))

	require.Len(t, med.TakenDates, 1)
	entry := med.TakenDates[0]
	assert.False(t, entry.Taken)
	assert.True(t, entry.Skipped)
	assert.Nil(t, entry.TakenAt)
	assert.Equal(t, "felt dizzy", entry.Notes)
}

func TestLedgerKeysByUTCDay(t *testing.T) {
	med := &Medication{}
	// 23:30 and next day's 00:30 UTC are different ledger days.
	late := time.Date(2024, 4, 2, 23, 30, 0, 0, time.UTC)
	early := time.Date(2024, 4, 3, 0, 30, 0, 0, time.UTC)

	med.MarkTaken(late, "", late)
	med.MarkTaken(early, "", early)

	assert.Len(t, med.TakenDates, 2)
}

func TestStatusOn(t *testing.T) {
	med := &Medication{}
	now := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "pending", med.StatusOn(now).Status)

	med.MarkTaken(now, "ok", now)
	status := med.StatusOn(now)
	assert.Equal(t, "taken", status.Status)
	assert.True(t, status.Taken)
	require.NotNil(t, status.TakenAt)

	med.MarkSkipped(now, "", now)
	assert.Equal(t, "skipped", med.StatusOn(now).Status)

	// A different day stays pending.
	assert.Equal(t, "pending", med.StatusOn(now.AddDate(0, 0, 1)).Status)
}

func TestDayOfNormalizesZone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	local := time.Date(2024, 4, 3, 2, 0, 0, 0, loc) // 2024-04-02 21:00 UTC
	assert.Equal(t, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), DayOf(local))
}
