package localnotify

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/carecoord/carecoord/internal/medication"
	"github.com/carecoord/carecoord/internal/schedule"
	"github.com/carecoord/carecoord/internal/task"
)

type scheduledCall struct {
	trigger time.Time
	content Content
}

type fakeDevice struct {
	scheduled []scheduledCall
	canceled  []Handle
	cleared   bool
	failNext  bool
}

func (d *fakeDevice) ScheduleAt(trigger time.Time, content Content) (Handle, error) {
	if d.failNext {
		d.failNext = false
		return "", errors.New("device busy")
	}
	d.scheduled = append(d.scheduled, scheduledCall{trigger: trigger, content: content})
	return Handle(fmt.Sprintf("local-%d", len(d.scheduled))), nil
}

func (d *fakeDevice) Cancel(handle Handle) error {
	d.canceled = append(d.canceled, handle)
	return nil
}

func (d *fakeDevice) CancelAll() error {
	d.cleared = true
	return nil
}

func (d *fakeDevice) RequestPermission() (bool, error) { return true, nil }

func testScheduler(device Device, loc *time.Location, now time.Time) *Scheduler {
	return newScheduler(device, loc, func() time.Time { return now }, zap.NewNop())
}

func localMedication(s schedule.Schedule) *medication.Medication {
	return &medication.Medication{
		ID:       primitive.NewObjectID(),
		Name:     "Lisinopril",
		Dosage:   "10mg",
		Schedule: s,
		IsActive: true,
	}
}

func TestScheduleMedicationDaily(t *testing.T) {
	device := &fakeDevice{}
	// Early morning: today's 08:00 slot is still ahead.
	now := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	s := testScheduler(device, time.UTC, now)

	med := localMedication(schedule.Schedule{
		Type:  schedule.TypeDaily,
		Times: []schedule.TimeOfDay{{Hour: 8, Minute: 0}},
	})

	handles, err := s.ScheduleMedication(med)
	require.NoError(t, err)
	assert.Len(t, handles, 30)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), device.scheduled[0].trigger)
	assert.Equal(t, "Medication Reminder: Lisinopril", device.scheduled[0].content.Title)
	assert.Equal(t, med.ID.Hex(), device.scheduled[0].content.Data["medicationId"])
}

func TestScheduleMedicationSkipsPastTriggers(t *testing.T) {
	device := &fakeDevice{}
	// Past 08:00: today's slot has already fired and must not be scheduled.
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	s := testScheduler(device, time.UTC, now)

	med := localMedication(schedule.Schedule{
		Type:  schedule.TypeDaily,
		Times: []schedule.TimeOfDay{{Hour: 8, Minute: 0}},
	})

	handles, err := s.ScheduleMedication(med)
	require.NoError(t, err)
	assert.Len(t, handles, 29)
	assert.Equal(t, time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC), device.scheduled[0].trigger)
}

func TestScheduleMedicationDeviceFailureIsNonFatal(t *testing.T) {
	device := &fakeDevice{failNext: true}
	now := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	s := testScheduler(device, time.UTC, now)

	med := localMedication(schedule.Schedule{
		Type:  schedule.TypeDaily,
		Times: []schedule.TimeOfDay{{Hour: 8, Minute: 0}},
	})

	handles, err := s.ScheduleMedication(med)
	require.NoError(t, err)
	assert.Len(t, handles, 29)
}

func TestScheduleMedicationMatchesServerWallClock(t *testing.T) {
	// The device in New York and the server in UTC must agree on the
	// wall-clock slot: 08:00 on the device is 08:00 local, whatever the
	// offset.
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	device := &fakeDevice{}
	now := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC) // 23:00 Apr 30 in NY
	s := testScheduler(device, loc, now)

	med := localMedication(schedule.Schedule{
		Type:  schedule.TypeDaily,
		Times: []schedule.TimeOfDay{{Hour: 8, Minute: 0}},
	})

	_, err = s.ScheduleMedication(med)
	require.NoError(t, err)
	require.NotEmpty(t, device.scheduled)
	for _, call := range device.scheduled {
		local := call.trigger.In(loc)
		assert.Equal(t, 8, local.Hour())
		assert.Equal(t, 0, local.Minute())
	}
	// Anchored on the device's calendar: first trigger is April 30 in NY.
	assert.Equal(t, 30, device.scheduled[0].trigger.In(loc).Day())
}

func TestScheduleMedicationAsNeeded(t *testing.T) {
	device := &fakeDevice{}
	s := testScheduler(device, time.UTC, time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC))

	med := localMedication(schedule.Schedule{Type: schedule.TypeAsNeeded})
	handles, err := s.ScheduleMedication(med)
	require.NoError(t, err)
	assert.Empty(t, handles)
	assert.Empty(t, device.scheduled)
}

func TestScheduleTask(t *testing.T) {
	device := &fakeDevice{}
	now := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	s := testScheduler(device, time.UTC, now)

	tsk := &task.Task{
		ID:      primitive.NewObjectID(),
		Title:   "Blood test",
		DueDate: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
	}

	handle, err := s.ScheduleTask(tsk)
	require.NoError(t, err)
	assert.NotEmpty(t, handle)
	require.Len(t, device.scheduled, 1)
	assert.Equal(t, time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC), device.scheduled[0].trigger)
	assert.Equal(t, "Task Reminder: Blood test", device.scheduled[0].content.Title)
}

func TestScheduleTaskInPastIsSkipped(t *testing.T) {
	device := &fakeDevice{}
	now := time.Date(2024, 5, 10, 6, 0, 0, 0, time.UTC)
	s := testScheduler(device, time.UTC, now)

	tsk := &task.Task{
		ID:      primitive.NewObjectID(),
		Title:   "Old errand",
		DueDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	handle, err := s.ScheduleTask(tsk)
	require.NoError(t, err)
	assert.Empty(t, handle)
	assert.Empty(t, device.scheduled)
}

func TestCancelAndCancelAll(t *testing.T) {
	device := &fakeDevice{}
	s := testScheduler(device, time.UTC, time.Now())

	require.NoError(t, s.Cancel("local-1"))
	assert.Equal(t, []Handle{"local-1"}, device.canceled)

	require.NoError(t, s.CancelAll())
	assert.True(t, device.cleared)
}

func TestListenerRegistration(t *testing.T) {
	registry := NewListenerRegistry()

	var received, tapped int
	reg := registry.Register(
		func(Event) { received++ },
		func(Event) { tapped++ },
	)

	registry.NotifyReceived(Event{Handle: "h1"})
	registry.NotifyTapped(Event{Handle: "h1"})
	assert.Equal(t, 1, received)
	assert.Equal(t, 1, tapped)

	reg.Close()
	registry.NotifyReceived(Event{Handle: "h2"})
	assert.Equal(t, 1, received)
	assert.Zero(t, registry.count())

	// Closing twice is safe.
	reg.Close()
}

func TestReRegistrationDoesNotDuplicateHandlers(t *testing.T) {
	registry := NewListenerRegistry()

	var calls int
	// Simulates a screen re-mount: old registration closed before the new
	// one is taken.
	reg := registry.Register(func(Event) { calls++ }, nil)
	reg.Close()
	reg = registry.Register(func(Event) { calls++ }, nil)
	defer reg.Close()

	registry.NotifyReceived(Event{})
	assert.Equal(t, 1, calls)
}
