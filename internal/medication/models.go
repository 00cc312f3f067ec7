package medication

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/carecoord/carecoord/internal/schedule"
)

// LedgerEntry is one calendar day in the adherence ledger. The ledger holds
// at most one entry per UTC day; taken and skipped are mutually exclusive,
// last write wins.
type LedgerEntry struct {
	Date    time.Time  `bson:"date" json:"date"` // midnight UTC of the day
	Taken   bool       `bson:"taken" json:"taken"`
	TakenAt *time.Time `bson:"taken_at,omitempty" json:"takenAt,omitempty"`
	Skipped bool       `bson:"skipped" json:"skipped"`
	Notes   string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Medication is a prescribed medication with its recurrence schedule and
// per-day adherence ledger.
type Medication struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PatientID  primitive.ObjectID `bson:"patient_id" json:"patientId"`
	Name       string             `bson:"name" json:"name"`
	Dosage     string             `bson:"dosage" json:"dosage"`
	Schedule   schedule.Schedule  `bson:"schedule" json:"schedule"`
	TakenDates []LedgerEntry      `bson:"taken_dates,omitempty" json:"takenDates,omitempty"`
	Notes      string             `bson:"notes,omitempty" json:"notes,omitempty"`
	IsActive   bool               `bson:"is_active" json:"isActive"`
	CreatedBy  primitive.ObjectID `bson:"created_by" json:"createdBy"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updatedAt"`
}

// DayOf truncates an instant to its UTC calendar day, the ledger key.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ledgerFor finds the entry for the given day or appends a fresh one,
// returning a pointer into the slice.
func (m *Medication) ledgerFor(day time.Time) *LedgerEntry {
	for i := range m.TakenDates {
		if m.TakenDates[i].Date.Equal(day) {
			return &m.TakenDates[i]
		}
	}
	m.TakenDates = append(m.TakenDates, LedgerEntry{Date: day})
	return &m.TakenDates[len(m.TakenDates)-1]
}

// MarkTaken records the medication as taken on date's calendar day. A prior
// skip for the same day is overwritten.
func (m *Medication) MarkTaken(date time.Time, notes string, now time.Time) {
	entry := m.ledgerFor(DayOf(date))
	takenAt := now.UTC()
	entry.Taken = true
	entry.TakenAt = &takenAt
	entry.Skipped = false
	entry.Notes = notes
}

// MarkSkipped records the medication as skipped on date's calendar day.
func (m *Medication) MarkSkipped(date time.Time, notes string, now time.Time) {
	entry := m.ledgerFor(DayOf(date))
	entry.Skipped = true
	entry.Taken = false
	entry.TakenAt = nil
	entry.Notes = notes
}

// DayStatus is the resolved adherence state of a single day.
type DayStatus struct {
	Status  string     `json:"status"` // taken, skipped or pending
	Taken   bool       `json:"taken"`
	Skipped bool       `json:"skipped"`
	TakenAt *time.Time `json:"takenAt,omitempty"`
	Notes   string     `json:"notes,omitempty"`
}

// StatusOn reports the ledger state for now's calendar day.
func (m *Medication) StatusOn(now time.Time) DayStatus {
	day := DayOf(now)
	for i := range m.TakenDates {
		entry := &m.TakenDates[i]
		if !entry.Date.Equal(day) {
			continue
		}
		status := "pending"
		if entry.Taken {
			status = "taken"
		} else if entry.Skipped {
			status = "skipped"
		}
		return DayStatus{
			Status:  status,
			Taken:   entry.Taken,
			Skipped: entry.Skipped,
			TakenAt: entry.TakenAt,
			Notes:   entry.Notes,
		}
	}
	return DayStatus{Status: "pending"}
}

type CreateMedicationRequest struct {
	PatientID        string              `json:"patientId"`
	Name             string              `json:"name"`
	Dosage           string              `json:"dosage"`
	Schedule         schedule.Schedule   `json:"schedule"`
	Notes            string              `json:"notes"`
	NotificationTime *schedule.TimeOfDay `json:"notificationTime,omitempty"`
}

type UpdateMedicationRequest struct {
	Name     *string            `json:"name,omitempty"`
	Dosage   *string            `json:"dosage,omitempty"`
	Schedule *schedule.Schedule `json:"schedule,omitempty"`
	Notes    *string            `json:"notes,omitempty"`
	IsActive *bool              `json:"isActive,omitempty"`
}

type LedgerRequest struct {
	Date  time.Time `json:"date"`
	Notes string    `json:"notes"`
}
