package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldTrigger(t *testing.T) {
	scheduled := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		n    Notification
		now  time.Time
		want bool
	}{
		{
			"before scheduled time",
			Notification{IsActive: true, ScheduledDate: scheduled},
			scheduled.Add(-time.Minute),
			false,
		},
		{
			"exactly at scheduled time",
			Notification{IsActive: true, ScheduledDate: scheduled},
			scheduled,
			true,
		},
		{
			"after scheduled time",
			Notification{IsActive: true, ScheduledDate: scheduled},
			scheduled.Add(3 * time.Hour),
			true,
		},
		{
			"seconds within the scheduled minute count as due",
			Notification{IsActive: true, ScheduledDate: scheduled},
			scheduled.Add(30 * time.Second),
			true,
		},
		{
			"delivered never triggers",
			Notification{IsActive: true, IsDelivered: true, ScheduledDate: scheduled},
			scheduled.Add(time.Hour),
			false,
		},
		{
			"inactive never triggers",
			Notification{IsActive: false, ScheduledDate: scheduled},
			scheduled.Add(time.Hour),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.n.ShouldTrigger(tt.now))
		})
	}
}

func TestShouldTriggerMonotonic(t *testing.T) {
	scheduled := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	n := Notification{IsActive: true, ScheduledDate: scheduled}

	// Once due, it stays due at every later instant until delivered.
	for _, offset := range []time.Duration{0, time.Minute, time.Hour, 48 * time.Hour} {
		assert.True(t, n.ShouldTrigger(scheduled.Add(offset)))
	}

	n.IsDelivered = true
	assert.False(t, n.ShouldTrigger(scheduled.Add(72*time.Hour)))
}

func TestShouldTriggerNormalizesZone(t *testing.T) {
	scheduled := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	n := Notification{IsActive: true, ScheduledDate: scheduled}

	loc := time.FixedZone("UTC+3", 3*3600)
	// 10:59 in UTC+3 is 07:59 UTC: not yet due.
	assert.False(t, n.ShouldTrigger(time.Date(2024, 5, 1, 10, 59, 0, 0, loc)))
	// 11:00 in UTC+3 is 08:00 UTC: due.
	assert.True(t, n.ShouldTrigger(time.Date(2024, 5, 1, 11, 0, 0, 0, loc)))
}
