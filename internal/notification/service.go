package notification

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/carecoord/carecoord/internal/auth"
	"github.com/carecoord/carecoord/internal/medication"
	"github.com/carecoord/carecoord/internal/schedule"
	"github.com/carecoord/carecoord/internal/task"
)

// ErrPatientRequired is returned when a caregiver queries "today" without
// naming which linked patient they mean.
var ErrPatientRequired = errors.New("patient id is required for caregivers")

// notificationStore is the slice of the repository the service needs.
type notificationStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*Notification, error)
	FindByPatient(ctx context.Context, patientID primitive.ObjectID, isActive, upcoming bool, now time.Time) ([]*Notification, error)
	FindToday(ctx context.Context, patientID primitive.ObjectID, now time.Time) ([]*Notification, error)
	MarkDelivered(ctx context.Context, id primitive.ObjectID, now time.Time) error
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
}

type NotificationService struct {
	repo         notificationStore
	materializer *Materializer
	medications  *medication.MedicationRepository
	tasks        *task.TaskRepository
	authorizer   auth.Authorizer
	logger       *zap.Logger
}

func NewNotificationService(
	repo *NotificationRepository,
	materializer *Materializer,
	medications *medication.MedicationRepository,
	tasks *task.TaskRepository,
	authorizer auth.Authorizer,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		repo:         repo,
		materializer: materializer,
		medications:  medications,
		tasks:        tasks,
		authorizer:   authorizer,
		logger:       logger,
	}
}

// MaterializeForMedication expands an existing medication's schedule into
// notification records on demand. Idempotent: instants that already exist
// are skipped, so this is also the re-materialization path after a schedule
// edit.
func (s *NotificationService) MaterializeForMedication(ctx context.Context, actorID, medicationID primitive.ObjectID, override *schedule.TimeOfDay) (int, error) {
	med, err := s.medications.FindByID(ctx, medicationID)
	if err != nil {
		return 0, err
	}
	if med == nil {
		return 0, medication.ErrNotFound
	}
	if err := s.authorizer.Allow(ctx, actorID, med.PatientID); err != nil {
		return 0, err
	}
	return s.materializer.ForMedication(ctx, med, override)
}

// MaterializeForTask creates the due-date reminder for an existing task.
func (s *NotificationService) MaterializeForTask(ctx context.Context, actorID, taskID primitive.ObjectID, override *schedule.TimeOfDay) error {
	t, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if t == nil {
		return task.ErrNotFound
	}
	if err := s.authorizer.Allow(ctx, actorID, t.PatientID); err != nil {
		return err
	}
	return s.materializer.ForTask(ctx, t, override)
}

func (s *NotificationService) ListByPatient(ctx context.Context, actorID, patientID primitive.ObjectID, isActive, upcoming bool, now time.Time) ([]*Notification, error) {
	if err := s.authorizer.Allow(ctx, actorID, patientID); err != nil {
		return nil, err
	}
	return s.repo.FindByPatient(ctx, patientID, isActive, upcoming, now)
}

// Today returns the patient's notifications inside now's UTC day. Patients
// query themselves; caregivers must name a linked patient explicitly.
func (s *NotificationService) Today(ctx context.Context, actorID, patientID primitive.ObjectID, now time.Time) ([]*Notification, error) {
	if patientID.IsZero() {
		return nil, ErrPatientRequired
	}
	if err := s.authorizer.Allow(ctx, actorID, patientID); err != nil {
		return nil, err
	}
	return s.repo.FindToday(ctx, patientID, now)
}

// MarkDelivered acknowledges delivery. Idempotent: a second call overwrites
// delivered_at with its own timestamp and leaves is_delivered true.
func (s *NotificationService) MarkDelivered(ctx context.Context, actorID, id primitive.ObjectID, now time.Time) (*Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotFound
	}
	if err := s.authorizer.Allow(ctx, actorID, n.PatientID); err != nil {
		return nil, err
	}

	if err := s.repo.MarkDelivered(ctx, id, now); err != nil {
		return nil, err
	}
	s.logger.Info("notification marked as delivered", zap.String("notificationId", id.Hex()))

	deliveredAt := now.UTC()
	n.IsDelivered = true
	n.DeliveredAt = &deliveredAt
	return n, nil
}

// Delete soft-deletes a notification. The actor must be the owning patient
// or a linked caregiver.
func (s *NotificationService) Delete(ctx context.Context, actorID, id primitive.ObjectID) error {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if n == nil {
		return ErrNotFound
	}
	if err := s.authorizer.Allow(ctx, actorID, n.PatientID); err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("notification deleted", zap.String("notificationId", id.Hex()))
	return nil
}
