package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/carecoord/carecoord/internal/medication"
	"github.com/carecoord/carecoord/internal/schedule"
	"github.com/carecoord/carecoord/internal/task"
)

// DefaultTaskTime is the reminder slot for tasks whose creator supplied none.
var DefaultTaskTime = schedule.TimeOfDay{Hour: 9, Minute: 0}

// materializerStore is the slice of the repository the materializer needs.
type materializerStore interface {
	ExistingInstants(ctx context.Context, kind SourceKind, sourceID primitive.ObjectID) (map[int64]struct{}, error)
	InsertMany(ctx context.Context, notifications []*Notification) (int, error)
}

// keyedMutex serializes materialization per source id so a rapid double
// submit cannot race to insert duplicate batches. The unique store index is
// the backstop across processes.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Materializer expands schedules into persisted notification records. It is
// idempotent on (source, scheduled instant): re-materializing after a
// schedule edit only adds instants the new schedule introduces.
type Materializer struct {
	store  materializerStore
	locks  *keyedMutex
	now    func() time.Time
	logger *zap.Logger
}

func NewMaterializer(repo *NotificationRepository, logger *zap.Logger) *Materializer {
	return newMaterializer(repo, time.Now, logger)
}

func newMaterializer(store materializerStore, now func() time.Time, logger *zap.Logger) *Materializer {
	return &Materializer{store: store, locks: newKeyedMutex(), now: now, logger: logger}
}

// ForMedication materializes the medication's schedule over the default
// horizon, anchored at the injected clock's now. An override slot wins over
// every per-slot time in the batch. Returns how many records were persisted.
func (m *Materializer) ForMedication(ctx context.Context, med *medication.Medication, override *schedule.TimeOfDay) (int, error) {
	if err := med.Schedule.Validate(); err != nil {
		return 0, err
	}

	unlock := m.locks.lock("medication:" + med.ID.Hex())
	defer unlock()

	now := m.now().UTC()
	instants := schedule.Expand(med.Schedule, schedule.DefaultHorizon(), now)
	if len(instants) == 0 {
		return 0, nil
	}
	if override != nil {
		if err := overrideSlot(instants, *override); err != nil {
			return 0, err
		}
	}

	existing, err := m.store.ExistingInstants(ctx, SourceMedication, med.ID)
	if err != nil {
		return 0, err
	}

	recurring := Recurring{Type: string(med.Schedule.Type)}
	if med.Schedule.Type == schedule.TypeWeekly {
		recurring.Days = med.Schedule.Days
	}

	medID := med.ID
	batch := make([]*Notification, 0, len(instants))
	for _, in := range instants {
		// Also guards within the batch: an override collapses every slot of a
		// day onto the same instant.
		if _, dup := existing[in.When.Unix()]; dup {
			continue
		}
		existing[in.When.Unix()] = struct{}{}
		batch = append(batch, &Notification{
			ID:               primitive.NewObjectID(),
			PatientID:        med.PatientID,
			MedicationID:     &medID,
			Type:             TypeMedication,
			Title:            fmt.Sprintf("Medication Reminder: %s", med.Name),
			Message:          fmt.Sprintf("Time to take %s (%s)", med.Name, med.Dosage),
			ScheduledDate:    in.When,
			NotificationTime: in.Time,
			IsActive:         true,
			Recurring:        recurring,
			CreatedBy:        med.CreatedBy,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	if len(batch) == 0 {
		m.logger.Info("all medication instants already materialized",
			zap.String("medicationId", med.ID.Hex()))
		return 0, nil
	}

	count, err := m.store.InsertMany(ctx, batch)
	if err != nil {
		return 0, err
	}
	m.logger.Info("materialized medication notifications",
		zap.String("medicationId", med.ID.Hex()),
		zap.Int("count", count),
		zap.Int("skipped", len(instants)-len(batch)))
	return count, nil
}

// ForTask materializes the single due-date reminder for a task. The time
// component defaults to 09:00 unless an override is supplied.
func (m *Materializer) ForTask(ctx context.Context, t *task.Task, override *schedule.TimeOfDay) error {
	if t.DueDate.IsZero() {
		return nil
	}

	slot := DefaultTaskTime
	if override != nil {
		slot = *override
	}
	if err := validateSlot(slot); err != nil {
		return err
	}

	unlock := m.locks.lock("task:" + t.ID.Hex())
	defer unlock()

	due := t.DueDate.UTC()
	scheduled := time.Date(due.Year(), due.Month(), due.Day(), slot.Hour, slot.Minute, 0, 0, time.UTC)

	existing, err := m.store.ExistingInstants(ctx, SourceTask, t.ID)
	if err != nil {
		return err
	}
	if _, dup := existing[scheduled.Unix()]; dup {
		m.logger.Info("task instant already materialized", zap.String("taskId", t.ID.Hex()))
		return nil
	}

	message := t.Description
	if message == "" {
		message = fmt.Sprintf("Don't forget to complete: %s", t.Title)
	}

	now := m.now().UTC()
	taskID := t.ID
	_, err = m.store.InsertMany(ctx, []*Notification{{
		ID:               primitive.NewObjectID(),
		PatientID:        t.PatientID,
		TaskID:           &taskID,
		Type:             TypeTask,
		Title:            fmt.Sprintf("Task Reminder: %s", t.Title),
		Message:          message,
		ScheduledDate:    scheduled,
		NotificationTime: slot,
		IsActive:         true,
		Recurring:        Recurring{Type: "none"},
		CreatedBy:        t.CreatedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}})
	if err != nil {
		return err
	}
	m.logger.Info("materialized task notification", zap.String("taskId", t.ID.Hex()))
	return nil
}

// overrideSlot restamps every instant with the caller-supplied wall-clock
// slot, keeping the calendar day.
func overrideSlot(instants []schedule.Instant, slot schedule.TimeOfDay) error {
	if err := validateSlot(slot); err != nil {
		return err
	}
	for i := range instants {
		when := instants[i].When
		instants[i].When = time.Date(when.Year(), when.Month(), when.Day(), slot.Hour, slot.Minute, 0, 0, time.UTC)
		instants[i].Time = slot
	}
	return nil
}

func validateSlot(slot schedule.TimeOfDay) error {
	if slot.Hour < 0 || slot.Hour > 23 {
		return &schedule.ValidationError{Field: "notificationTime.hour", Reason: "must be between 0 and 23"}
	}
	if slot.Minute < 0 || slot.Minute > 59 {
		return &schedule.ValidationError{Field: "notificationTime.minute", Reason: "must be between 0 and 59"}
	}
	return nil
}
