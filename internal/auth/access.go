package auth

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrForbidden is returned when an actor is neither the patient nor a linked
// caregiver. Handlers map it to 403.
var ErrForbidden = errors.New("access denied")

// Authorizer answers the single access-control question the rest of the
// system asks: may this actor act on this patient's records?
type Authorizer interface {
	Allow(ctx context.Context, actorID, patientID primitive.ObjectID) error
}

type authorizer struct {
	users  *UserRepository
	logger *zap.Logger
}

func NewAuthorizer(users *UserRepository, logger *zap.Logger) Authorizer {
	return &authorizer{users: users, logger: logger}
}

func (a *authorizer) Allow(ctx context.Context, actorID, patientID primitive.ObjectID) error {
	if actorID == patientID {
		return nil
	}
	actor, err := a.users.FindByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor == nil {
		return ErrForbidden
	}
	if actor.Role == RoleCaregiver && actor.IsLinkedTo(patientID) {
		return nil
	}
	a.logger.Debug("access denied",
		zap.String("actorId", actorID.Hex()),
		zap.String("patientId", patientID.Hex()))
	return ErrForbidden
}
