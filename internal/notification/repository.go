package notification

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("notification not found")

// SourceKind names which weak reference a notification carries.
type SourceKind string

const (
	SourceMedication SourceKind = "medication_id"
	SourceTask       SourceKind = "task_id"
)

type NotificationRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewNotificationRepository(db *mongo.Database, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{collection: db.Collection("notifications"), logger: logger}
}

// ExistingInstants returns the set of scheduled instants already materialized
// for a source, keyed by Unix minute. The materializer consults this to stay
// idempotent across repeated calls.
func (r *NotificationRepository) ExistingInstants(ctx context.Context, kind SourceKind, sourceID primitive.ObjectID) (map[int64]struct{}, error) {
	filter := bson.M{string(kind): sourceID}
	opts := options.Find().SetProjection(bson.M{"scheduled_date": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []struct {
		ScheduledDate time.Time `bson:"scheduled_date"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	instants := make(map[int64]struct{}, len(docs))
	for _, doc := range docs {
		instants[doc.ScheduledDate.UTC().Unix()] = struct{}{}
	}
	return instants, nil
}

// InsertMany persists a batch. Unordered so one duplicate-key collision (a
// concurrent materialization racing past the in-process mutex) does not sink
// the rest of the batch; duplicates are counted out, not surfaced as errors.
func (r *NotificationRepository) InsertMany(ctx context.Context, notifications []*Notification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, len(notifications))
	for i, n := range notifications {
		docs[i] = n
	}
	opts := options.InsertMany().SetOrdered(false)
	res, err := r.collection.InsertMany(ctx, docs, opts)
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) {
			allDup := true
			for _, we := range bulkErr.WriteErrors {
				if !mongo.IsDuplicateKeyError(we.WriteError) {
					allDup = false
					break
				}
			}
			if allDup {
				inserted := 0
				if res != nil {
					inserted = len(res.InsertedIDs)
				}
				r.logger.Debug("skipped duplicate notification instants",
					zap.Int("duplicates", len(bulkErr.WriteErrors)))
				return inserted, nil
			}
		}
		return 0, err
	}
	return len(res.InsertedIDs), nil
}

func (r *NotificationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Notification, error) {
	var n Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

// FindByPatient lists a patient's notifications sorted by scheduled time. With
// upcoming set, only undelivered future instants are returned.
func (r *NotificationRepository) FindByPatient(ctx context.Context, patientID primitive.ObjectID, isActive, upcoming bool, now time.Time) ([]*Notification, error) {
	filter := bson.M{"patient_id": patientID, "is_active": isActive}
	if upcoming {
		filter["scheduled_date"] = bson.M{"$gte": now.UTC()}
		filter["is_delivered"] = false
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "scheduled_date", Value: 1},
		{Key: "notification_time.hour", Value: 1},
		{Key: "notification_time.minute", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var notifications []*Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// FindToday returns the patient's active notifications inside now's UTC day,
// ordered by wall-clock slot.
func (r *NotificationRepository) FindToday(ctx context.Context, patientID primitive.ObjectID, now time.Time) ([]*Notification, error) {
	now = now.UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)

	filter := bson.M{
		"patient_id": patientID,
		"is_active":  true,
		"scheduled_date": bson.M{
			"$gte": startOfDay,
			"$lte": endOfDay,
		},
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "notification_time.hour", Value: 1},
		{Key: "notification_time.minute", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var notifications []*Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// FindDue returns active undelivered notifications scheduled at or before now.
func (r *NotificationRepository) FindDue(ctx context.Context, now time.Time) ([]*Notification, error) {
	filter := bson.M{
		"is_active":      true,
		"is_delivered":   false,
		"scheduled_date": bson.M{"$lte": now.UTC().Truncate(time.Minute)},
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var notifications []*Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkDelivered sets the delivered flag and stamps delivered_at with now.
// Idempotent: repeated calls leave is_delivered true, delivered_at takes the
// latest call's timestamp.
func (r *NotificationRepository) MarkDelivered(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	update := bson.M{"$set": bson.M{
		"is_delivered": true,
		"delivered_at": now.UTC(),
		"updated_at":   now.UTC(),
	}}
	res, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete deactivates the notification; the record stays for audit.
func (r *NotificationRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{
		"is_active":  false,
		"updated_at": time.Now().UTC(),
	}}
	res, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
