package config

import (
	"context"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type MongoDBConfig struct {
	URI      string
	Database string
}

func NewMongoDBConfig(logger *zap.Logger) *MongoDBConfig {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		logger.Fatal("MONGO_URI not set")
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "carecoord"
	}
	return &MongoDBConfig{URI: uri, Database: dbName}
}

type MongoDBClient struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDBClient(lc fx.Lifecycle, config *MongoDBConfig, logger *zap.Logger) (*MongoDBClient, *mongo.Database, error) {
	clientOptions := options.Client().ApplyURI(config.URI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal("Failed to ping MongoDB", zap.Error(err))
	}

	logger.Info("Connected to MongoDB", zap.String("database", config.Database))

	db := client.Database(config.Database)

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			return EnsureIndexes(startCtx, db, logger)
		},
		OnStop: func(stopCtx context.Context) error {
			logger.Info("Closing MongoDB connection")
			return client.Disconnect(stopCtx)
		},
	})
	return &MongoDBClient{Client: client, Database: db}, db, nil
}

// EnsureIndexes creates the indexes the repositories query against. The two
// unique partial indexes on notifications back the materializer's
// (source, scheduledDate) idempotency under concurrent requests.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	notifications := []mongo.IndexModel{
		{Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "is_active", Value: 1}}},
		{Keys: bson.D{{Key: "scheduled_date", Value: 1}}},
		{
			Keys: bson.D{{Key: "medication_id", Value: 1}, {Key: "scheduled_date", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"medication_id": bson.M{"$type": "objectId"}}),
		},
		{
			Keys: bson.D{{Key: "task_id", Value: 1}, {Key: "scheduled_date", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"task_id": bson.M{"$type": "objectId"}}),
		},
	}
	if _, err := db.Collection("notifications").Indexes().CreateMany(ctx, notifications); err != nil {
		return err
	}

	ownerActive := []mongo.IndexModel{
		{Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "is_active", Value: 1}}},
	}
	for _, name := range []string{"medications", "tasks"} {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, ownerActive); err != nil {
			return err
		}
	}

	users := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := db.Collection("users").Indexes().CreateMany(ctx, users); err != nil {
		return err
	}

	gameStats := []mongo.IndexModel{
		{Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "game", Value: 1}}},
	}
	if _, err := db.Collection("game_stats").Indexes().CreateMany(ctx, gameStats); err != nil {
		return err
	}

	logger.Info("MongoDB indexes ensured")
	return nil
}
