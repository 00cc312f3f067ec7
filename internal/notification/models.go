package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/carecoord/carecoord/internal/schedule"
)

const (
	TypeMedication  = "medication"
	TypeTask        = "task"
	TypeReminder    = "reminder"
	TypeAppointment = "appointment"
)

// Recurring records the rule that generated a notification. It is kept for
// audit and potential re-expansion; nothing re-expands it automatically.
type Recurring struct {
	Type string `bson:"type" json:"type"` // none, daily or weekly
	Days []int  `bson:"days,omitempty" json:"days,omitempty"`
}

// Notification is one materialized reminder instance. MedicationID and TaskID
// are weak references: exactly one or neither is set, and the source may have
// been deleted since materialization.
type Notification struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	PatientID        primitive.ObjectID  `bson:"patient_id" json:"patientId"`
	MedicationID     *primitive.ObjectID `bson:"medication_id,omitempty" json:"medicationId,omitempty"`
	TaskID           *primitive.ObjectID `bson:"task_id,omitempty" json:"taskId,omitempty"`
	Type             string              `bson:"type" json:"type"`
	Title            string              `bson:"title" json:"title"`
	Message          string              `bson:"message" json:"message"`
	ScheduledDate    time.Time           `bson:"scheduled_date" json:"scheduledDate"` // absolute UTC instant
	NotificationTime schedule.TimeOfDay  `bson:"notification_time" json:"notificationTime"`
	IsActive         bool                `bson:"is_active" json:"isActive"`
	IsDelivered      bool                `bson:"is_delivered" json:"isDelivered"`
	DeliveredAt      *time.Time          `bson:"delivered_at,omitempty" json:"deliveredAt,omitempty"`
	Recurring        Recurring           `bson:"recurring" json:"recurring"`
	CreatedBy        primitive.ObjectID  `bson:"created_by" json:"createdBy"`
	CreatedAt        time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updated_at" json:"updatedAt"`
}

// ShouldTrigger reports whether the notification is due at now: active,
// undelivered and scheduled at or before now truncated to the minute in UTC.
// Monotonic in now until delivery or deactivation.
func (n *Notification) ShouldTrigger(now time.Time) bool {
	nowMinute := now.UTC().Truncate(time.Minute)
	return n.IsActive && !n.IsDelivered && !nowMinute.Before(n.ScheduledDate)
}

type CreateNotificationRequest struct {
	NotificationTime *schedule.TimeOfDay `json:"notificationTime,omitempty"`
}
