package auth

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RolePatient   = "patient"
	RoleCaregiver = "caregiver"
)

// User represents an account in the system: either a patient receiving care
// or a caregiver linked to one or more patients.
type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Username         string               `bson:"username" json:"username"`
	Name             string               `bson:"name" json:"name"`
	Email            string               `bson:"email" json:"email"`
	PasswordHash     string               `bson:"password_hash" json:"-"`
	Role             string               `bson:"role" json:"role"` // patient or caregiver
	LinkedPatients   []primitive.ObjectID `bson:"linked_patients,omitempty" json:"linkedPatients,omitempty"`
	LinkedCaregivers []primitive.ObjectID `bson:"linked_caregivers,omitempty" json:"linkedCaregivers,omitempty"`
	ExpoPushTokens   []string             `bson:"expo_push_tokens,omitempty" json:"-"`
	CreatedAt        time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updated_at" json:"updatedAt"`
}

// IsLinkedTo reports whether the caregiver is linked to the given patient.
func (u *User) IsLinkedTo(patientID primitive.ObjectID) bool {
	for _, id := range u.LinkedPatients {
		if id == patientID {
			return true
		}
	}
	return false
}

type RegisterRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type Credential struct {
	Identifier string `json:"identifier"` // username or email
	Password   string `json:"password"`
}

type LinkPatientRequest struct {
	PatientUsername string `json:"patientUsername"`
}

type PushTokenRequest struct {
	Token string `json:"token"`
}
