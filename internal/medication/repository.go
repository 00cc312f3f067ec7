package medication

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type MedicationRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewMedicationRepository(db *mongo.Database, logger *zap.Logger) *MedicationRepository {
	return &MedicationRepository{collection: db.Collection("medications"), logger: logger}
}

func (r *MedicationRepository) Create(ctx context.Context, med *Medication) error {
	_, err := r.collection.InsertOne(ctx, med)
	return err
}

func (r *MedicationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Medication, error) {
	var med Medication
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&med)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &med, nil
}

func (r *MedicationRepository) FindByPatient(ctx context.Context, patientID primitive.ObjectID, isActive bool) ([]*Medication, error) {
	filter := bson.M{"patient_id": patientID, "is_active": isActive}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var meds []*Medication
	if err := cursor.All(ctx, &meds); err != nil {
		return nil, err
	}
	return meds, nil
}

// Save writes back mutable fields after an in-memory edit. The taken_dates
// array is replaced wholesale; concurrent ledger writes for the same day are
// last-write-wins by design.
func (r *MedicationRepository) Save(ctx context.Context, med *Medication) error {
	med.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"name":        med.Name,
		"dosage":      med.Dosage,
		"schedule":    med.Schedule,
		"taken_dates": med.TakenDates,
		"notes":       med.Notes,
		"is_active":   med.IsActive,
		"updated_at":  med.UpdatedAt,
	}}
	res, err := r.collection.UpdateByID(ctx, med.ID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
