package task

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/carecoord/carecoord/internal/schedule"
)

// Recurring describes the rule behind a recurring task. Interval is in units
// of the type (every N days/weeks/months).
type Recurring struct {
	Type     string `bson:"type" json:"type"` // none, daily, weekly or monthly
	Interval int    `bson:"interval,omitempty" json:"interval,omitempty"`
}

// Task is a care task with a due date.
type Task struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PatientID       primitive.ObjectID `bson:"patient_id" json:"patientId"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	DueDate         time.Time          `bson:"due_date" json:"dueDate"`
	Completed       bool               `bson:"completed" json:"completed"`
	CompletedAt     *time.Time         `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	Priority        string             `bson:"priority" json:"priority"` // low, medium or high
	Category        string             `bson:"category" json:"category"`
	Recurring       Recurring          `bson:"recurring" json:"recurring"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CompletionNotes string             `bson:"completion_notes,omitempty" json:"completionNotes,omitempty"`
	IsActive        bool               `bson:"is_active" json:"isActive"`
	CreatedBy       primitive.ObjectID `bson:"created_by" json:"createdBy"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updatedAt"`
}

// MarkCompleted flips the task to completed at now.
func (t *Task) MarkCompleted(notes string, now time.Time) {
	t.Completed = true
	completedAt := now.UTC()
	t.CompletedAt = &completedAt
	if notes != "" {
		t.CompletionNotes = notes
	}
}

// MarkIncomplete reverts a completion.
func (t *Task) MarkIncomplete() {
	t.Completed = false
	t.CompletedAt = nil
	t.CompletionNotes = ""
}

// IsOverdue reports whether the task is past due and not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Completed && now.After(t.DueDate)
}

type CreateTaskRequest struct {
	PatientID        string              `json:"patientId"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	DueDate          time.Time           `json:"dueDate"`
	Priority         string              `json:"priority"`
	Category         string              `json:"category"`
	Recurring        *Recurring          `json:"recurring,omitempty"`
	Notes            string              `json:"notes"`
	NotificationTime *schedule.TimeOfDay `json:"notificationTime,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	IsActive    *bool      `json:"isActive,omitempty"`
}

type CompleteTaskRequest struct {
	Notes string `json:"notes"`
}

// ListFilter narrows FindByPatient results.
type ListFilter struct {
	Completed *bool
	Category  string
	Priority  string
}
