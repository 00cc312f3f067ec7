package gamestats

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GameStat is one recorded game session for a patient. Games are part of the
// cognitive-exercise side of the app; scores feed the leaderboard and
// progress views.
type GameStat struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PatientID       primitive.ObjectID `bson:"patient_id" json:"patientId"`
	Game            string             `bson:"game" json:"game"`
	Score           int                `bson:"score" json:"score"`
	DurationSeconds int                `bson:"duration_seconds" json:"durationSeconds"`
	PlayedAt        time.Time          `bson:"played_at" json:"playedAt"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
}

type RecordStatRequest struct {
	Game            string `json:"game"`
	Score           int    `json:"score"`
	DurationSeconds int    `json:"durationSeconds"`
}

// LeaderboardEntry is one player's aggregate standing for a game.
type LeaderboardEntry struct {
	PatientID  primitive.ObjectID `bson:"_id" json:"patientId"`
	TotalScore int                `bson:"total_score" json:"totalScore"`
	BestScore  int                `bson:"best_score" json:"bestScore"`
	AvgScore   float64            `bson:"avg_score" json:"avgScore"`
	Games      int                `bson:"games" json:"games"`
}

// Summary is a patient's progress over their recorded sessions.
type Summary struct {
	Games       int     `json:"games"`
	TotalScore  int     `json:"totalScore"`
	BestScore   int     `json:"bestScore"`
	MeanScore   float64 `json:"meanScore"`
	MedianScore float64 `json:"medianScore"`
}
