package auth

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type UserRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewUserRepository(db *mongo.Database, logger *zap.Logger) *UserRepository {
	return &UserRepository{collection: db.Collection("users"), logger: logger}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *User) error {
	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New("username or email already registered")
		}
		return err
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	var user User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// AddLinkedPatient appends the patient to the caregiver's links if absent.
// $addToSet keeps the find-or-append free of duplicates under concurrency.
func (r *UserRepository) AddLinkedPatient(ctx context.Context, caregiverID, patientID primitive.ObjectID) error {
	update := bson.M{
		"$addToSet": bson.M{"linked_patients": patientID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.collection.UpdateByID(ctx, caregiverID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("caregiver not found")
	}
	return nil
}

func (r *UserRepository) AddLinkedCaregiver(ctx context.Context, patientID, caregiverID primitive.ObjectID) error {
	update := bson.M{
		"$addToSet": bson.M{"linked_caregivers": caregiverID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.collection.UpdateByID(ctx, patientID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("patient not found")
	}
	return nil
}

// AddPushToken registers a device push token on the user. $addToSet makes
// repeated registration of the same device a no-op.
func (r *UserRepository) AddPushToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	update := bson.M{
		"$addToSet": bson.M{"expo_push_tokens": token},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.collection.UpdateByID(ctx, userID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("user not found")
	}
	return nil
}

// PushTokens resolves the patient's registered device push tokens.
func (r *UserRepository) PushTokens(ctx context.Context, userID primitive.ObjectID) ([]string, error) {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return user.ExpoPushTokens, nil
}

// FindLinkedPatients resolves a caregiver's linked patient documents.
func (r *UserRepository) FindLinkedPatients(ctx context.Context, caregiver *User) ([]*User, error) {
	if len(caregiver.LinkedPatients) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": caregiver.LinkedPatients}})
	if err != nil {
		return nil, err
	}
	var patients []*User
	if err := cursor.All(ctx, &patients); err != nil {
		return nil, err
	}
	return patients, nil
}
