package gamestats

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type GameStatRepository struct {
	collection *mongo.Collection
}

func NewGameStatRepository(db *mongo.Database) *GameStatRepository {
	return &GameStatRepository{collection: db.Collection("game_stats")}
}

func (r *GameStatRepository) Create(ctx context.Context, stat *GameStat) error {
	result, err := r.collection.InsertOne(ctx, stat)
	if err != nil {
		return err
	}
	stat.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *GameStatRepository) FindByPatient(ctx context.Context, patientID primitive.ObjectID, game string) ([]GameStat, error) {
	filter := bson.M{"patient_id": patientID}
	if game != "" {
		filter["game"] = game
	}
	opts := options.Find().SetSort(bson.D{{Key: "played_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stats []GameStat
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Leaderboard ranks players for a game by total score, aggregated in Mongo.
func (r *GameStatRepository) Leaderboard(ctx context.Context, game string, limit int) ([]LeaderboardEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"game": game}}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$patient_id",
			"total_score": bson.M{"$sum": "$score"},
			"best_score":  bson.M{"$max": "$score"},
			"avg_score":   bson.M{"$avg": "$score"},
			"games":       bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total_score", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []LeaderboardEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
