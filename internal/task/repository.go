package task

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type TaskRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewTaskRepository(db *mongo.Database, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{collection: db.Collection("tasks"), logger: logger}
}

func (r *TaskRepository) Create(ctx context.Context, task *Task) error {
	_, err := r.collection.InsertOne(ctx, task)
	return err
}

func (r *TaskRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Task, error) {
	var task Task
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// FindByPatient lists active tasks sorted by due date ascending, priority is
// a secondary descending sort so high-priority tasks surface first.
func (r *TaskRepository) FindByPatient(ctx context.Context, patientID primitive.ObjectID, filter ListFilter) ([]*Task, error) {
	query := bson.M{"patient_id": patientID, "is_active": true}
	if filter.Completed != nil {
		query["completed"] = *filter.Completed
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Priority != "" {
		query["priority"] = filter.Priority
	}

	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}, {Key: "priority", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var tasks []*Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) Save(ctx context.Context, task *Task) error {
	task.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"title":            task.Title,
		"description":      task.Description,
		"due_date":         task.DueDate,
		"completed":        task.Completed,
		"completed_at":     task.CompletedAt,
		"priority":         task.Priority,
		"category":         task.Category,
		"notes":            task.Notes,
		"completion_notes": task.CompletionNotes,
		"is_active":        task.IsActive,
		"updated_at":       task.UpdatedAt,
	}}
	res, err := r.collection.UpdateByID(ctx, task.ID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
