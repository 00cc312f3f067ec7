package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserService struct {
	repo   *UserRepository
	logger *zap.Logger
}

func NewUserService(repo *UserRepository, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) RegisterUser(ctx context.Context, req RegisterRequest) (*User, error) {
	if req.Role != RolePatient && req.Role != RoleCaregiver {
		return nil, errors.New("role must be patient or caregiver")
	}
	if req.Username == "" || req.Password == "" || req.Email == "" {
		return nil, errors.New("username, email and password are required")
	}

	existing, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("username already registered")
	}
	existing, err = s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already registered")
	}

	hashPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &User{
		ID:           primitive.NewObjectID(),
		Username:     req.Username,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hashPassword,
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered",
		zap.String("username", user.Username),
		zap.String("role", user.Role))
	return user, nil
}

func (s *UserService) AuthenticateUser(ctx context.Context, cred Credential) (string, *User, error) {
	var user *User
	var err error

	if strings.Contains(cred.Identifier, "@") {
		user, err = s.repo.FindByEmail(ctx, cred.Identifier)
	} else {
		user, err = s.repo.FindByUsername(ctx, cred.Identifier)
	}
	if err != nil {
		return "", nil, err
	}
	if user == nil || !CheckPasswordHash(cred.Password, user.PasswordHash) {
		return "", nil, errors.New("invalid credentials")
	}

	token, err := GenerateJWT(user.ID.Hex(), user.Username, user.Name, user.Role, 24*time.Hour)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *UserService) Profile(ctx context.Context, userID primitive.ObjectID) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	return user, nil
}

// LinkPatient links a caregiver to a patient by the patient's username. Both
// sides of the link are recorded so either can resolve the other.
func (s *UserService) LinkPatient(ctx context.Context, caregiverID primitive.ObjectID, patientUsername string) (*User, error) {
	caregiver, err := s.repo.FindByID(ctx, caregiverID)
	if err != nil {
		return nil, err
	}
	if caregiver == nil || caregiver.Role != RoleCaregiver {
		return nil, errors.New("only caregivers can link patients")
	}

	patient, err := s.repo.FindByUsername(ctx, patientUsername)
	if err != nil {
		return nil, err
	}
	if patient == nil || patient.Role != RolePatient {
		return nil, errors.New("patient not found")
	}

	if err := s.repo.AddLinkedPatient(ctx, caregiver.ID, patient.ID); err != nil {
		return nil, err
	}
	if err := s.repo.AddLinkedCaregiver(ctx, patient.ID, caregiver.ID); err != nil {
		return nil, err
	}

	s.logger.Info("caregiver linked to patient",
		zap.String("caregiverId", caregiver.ID.Hex()),
		zap.String("patientId", patient.ID.Hex()))
	return patient, nil
}

// RegisterPushToken stores a device push token against the user so the
// delivery sweep can reach their device.
func (s *UserService) RegisterPushToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	if token == "" {
		return errors.New("push token is required")
	}
	if err := s.repo.AddPushToken(ctx, userID, token); err != nil {
		return err
	}
	s.logger.Info("push token registered", zap.String("userId", userID.Hex()))
	return nil
}

func (s *UserService) LinkedPatients(ctx context.Context, caregiverID primitive.ObjectID) ([]*User, error) {
	caregiver, err := s.repo.FindByID(ctx, caregiverID)
	if err != nil {
		return nil, err
	}
	if caregiver == nil {
		return nil, errors.New("user not found")
	}
	return s.repo.FindLinkedPatients(ctx, caregiver)
}
