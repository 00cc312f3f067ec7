package localnotify

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carecoord/carecoord/internal/medication"
	"github.com/carecoord/carecoord/internal/schedule"
	"github.com/carecoord/carecoord/internal/task"
)

// Scheduler mirrors the server-side materializer on the device: it expands
// the same daily/weekly rules, but against the device's local calendar, and
// hands the resulting triggers to the platform notification primitive. The
// server stores UTC instants for querying; the device schedules wall-clock
// times so reminders fire correctly offline in the user's zone.
type Scheduler struct {
	device Device
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

func NewScheduler(device Device, loc *time.Location, logger *zap.Logger) *Scheduler {
	return newScheduler(device, loc, time.Now, logger)
}

func newScheduler(device Device, loc *time.Location, now func() time.Time, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{device: device, loc: loc, now: now, logger: logger}
}

// ScheduleMedication schedules local reminders for the medication's whole
// horizon. Triggers already in the past are skipped with a log line, never
// scheduled; a per-trigger device failure is logged and the rest proceed.
func (s *Scheduler) ScheduleMedication(med *medication.Medication) ([]Handle, error) {
	if err := med.Schedule.Validate(); err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	instants := schedule.ExpandIn(med.Schedule, schedule.DefaultHorizon(), now, s.loc)

	content := Content{
		Title: fmt.Sprintf("Medication Reminder: %s", med.Name),
		Body:  fmt.Sprintf("Time to take %s (%s)", med.Name, med.Dosage),
		Data:  map[string]string{"type": "medication", "medicationId": med.ID.Hex()},
	}

	var handles []Handle
	for _, in := range instants {
		if !in.When.After(now) {
			s.logger.Debug("skipping past trigger",
				zap.Time("trigger", in.When),
				zap.String("medicationId", med.ID.Hex()))
			continue
		}
		handle, err := s.device.ScheduleAt(in.When, content)
		if err != nil {
			s.logger.Error("failed to schedule local notification",
				zap.Time("trigger", in.When), zap.Error(err))
			continue
		}
		handles = append(handles, handle)
	}
	s.logger.Info("scheduled local medication reminders",
		zap.String("medicationId", med.ID.Hex()),
		zap.Int("scheduled", len(handles)),
		zap.Int("skipped", len(instants)-len(handles)))
	return handles, nil
}

// ScheduleTask schedules the single due-date reminder at 09:00 local time on
// the due day. A past trigger is a logged no-op returning an empty handle.
func (s *Scheduler) ScheduleTask(t *task.Task) (Handle, error) {
	if t.DueDate.IsZero() {
		return "", nil
	}

	now := s.now().In(s.loc)
	due := t.DueDate.In(s.loc)
	trigger := time.Date(due.Year(), due.Month(), due.Day(), 9, 0, 0, 0, s.loc)
	if !trigger.After(now) {
		s.logger.Debug("skipping past task trigger",
			zap.Time("trigger", trigger),
			zap.String("taskId", t.ID.Hex()))
		return "", nil
	}

	body := t.Description
	if body == "" {
		body = fmt.Sprintf("Don't forget to complete: %s", t.Title)
	}
	return s.device.ScheduleAt(trigger, Content{
		Title: fmt.Sprintf("Task Reminder: %s", t.Title),
		Body:  body,
		Data:  map[string]string{"type": "task", "taskId": t.ID.Hex()},
	})
}

// Cancel cancels one scheduled reminder by handle.
func (s *Scheduler) Cancel(handle Handle) error {
	return s.device.Cancel(handle)
}

// CancelAll clears every scheduled reminder on the device.
func (s *Scheduler) CancelAll() error {
	return s.device.CancelAll()
}
