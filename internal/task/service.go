package task

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/carecoord/carecoord/internal/auth"
	"github.com/carecoord/carecoord/internal/schedule"
)

var ErrNotFound = errors.New("task not found")

var validPriorities = map[string]bool{"low": true, "medium": true, "high": true}
var validCategories = map[string]bool{
	"medication": true, "appointment": true, "exercise": true,
	"social": true, "personal": true, "other": true,
}

// NotificationMaterializer creates the due-date reminder after a task is
// committed. Implemented by the notification package.
type NotificationMaterializer interface {
	ForTask(ctx context.Context, task *Task, override *schedule.TimeOfDay) error
}

type TaskService struct {
	repo         *TaskRepository
	authorizer   auth.Authorizer
	materializer NotificationMaterializer
	logger       *zap.Logger
}

func NewTaskService(repo *TaskRepository, authorizer auth.Authorizer, materializer NotificationMaterializer, logger *zap.Logger) *TaskService {
	return &TaskService{repo: repo, authorizer: authorizer, materializer: materializer, logger: logger}
}

// Create commits the task, then attempts the reminder notification in a
// logged, non-fatal step.
func (s *TaskService) Create(ctx context.Context, actorID primitive.ObjectID, req CreateTaskRequest) (*Task, error) {
	patientID, err := primitive.ObjectIDFromHex(req.PatientID)
	if err != nil {
		return nil, errors.New("invalid patient id")
	}
	if req.Title == "" {
		return nil, errors.New("title is required")
	}
	if req.DueDate.IsZero() {
		return nil, errors.New("due date is required")
	}
	if err := s.authorizer.Allow(ctx, actorID, patientID); err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}
	if !validPriorities[priority] {
		return nil, errors.New("priority must be low, medium or high")
	}
	category := req.Category
	if category == "" {
		category = "other"
	}
	if !validCategories[category] {
		return nil, errors.New("unknown task category")
	}

	recurring := Recurring{Type: "none"}
	if req.Recurring != nil {
		recurring = *req.Recurring
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          primitive.NewObjectID(),
		PatientID:   patientID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate.UTC(),
		Priority:    priority,
		Category:    category,
		Recurring:   recurring,
		Notes:       req.Notes,
		IsActive:    true,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Info("task created",
		zap.String("taskId", task.ID.Hex()),
		zap.String("patientId", patientID.Hex()))

	if err := s.materializer.ForTask(ctx, task, req.NotificationTime); err != nil {
		s.logger.Error("failed to create notification for task",
			zap.String("taskId", task.ID.Hex()), zap.Error(err))
	}

	return task, nil
}

func (s *TaskService) ListByPatient(ctx context.Context, actorID, patientID primitive.ObjectID, filter ListFilter) ([]*Task, error) {
	if err := s.authorizer.Allow(ctx, actorID, patientID); err != nil {
		return nil, err
	}
	return s.repo.FindByPatient(ctx, patientID, filter)
}

func (s *TaskService) Get(ctx context.Context, actorID, id primitive.ObjectID) (*Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	if err := s.authorizer.Allow(ctx, actorID, task.PatientID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, actorID, id primitive.ObjectID, req UpdateTaskRequest) (*Task, error) {
	task, err := s.Get(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate.UTC()
	}
	if req.Priority != nil {
		if !validPriorities[*req.Priority] {
			return nil, errors.New("priority must be low, medium or high")
		}
		task.Priority = *req.Priority
	}
	if req.Category != nil {
		if !validCategories[*req.Category] {
			return nil, errors.New("unknown task category")
		}
		task.Category = *req.Category
	}
	if req.Notes != nil {
		task.Notes = *req.Notes
	}
	if req.IsActive != nil {
		task.IsActive = *req.IsActive
	}

	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Info("task updated", zap.String("taskId", task.ID.Hex()))
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, actorID, id primitive.ObjectID) error {
	task, err := s.Get(ctx, actorID, id)
	if err != nil {
		return err
	}
	task.IsActive = false
	if err := s.repo.Save(ctx, task); err != nil {
		return err
	}
	s.logger.Info("task deleted", zap.String("taskId", task.ID.Hex()))
	return nil
}

func (s *TaskService) Complete(ctx context.Context, actorID, id primitive.ObjectID, notes string, now time.Time) (*Task, error) {
	task, err := s.Get(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	task.MarkCompleted(notes, now)
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Incomplete(ctx context.Context, actorID, id primitive.ObjectID) (*Task, error) {
	task, err := s.Get(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	task.MarkIncomplete()
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}
