package gamestats

import (
	"context"
	"errors"
	"time"

	"github.com/montanaflynn/stats"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/carecoord/carecoord/internal/auth"
	"github.com/carecoord/carecoord/internal/schedule"
)

const defaultLeaderboardSize = 20

type GameStatService struct {
	repo       *GameStatRepository
	authorizer auth.Authorizer
	logger     *zap.Logger
}

func NewGameStatService(repo *GameStatRepository, authorizer auth.Authorizer, logger *zap.Logger) *GameStatService {
	return &GameStatService{repo: repo, authorizer: authorizer, logger: logger}
}

func (s *GameStatService) Record(ctx context.Context, actorID, patientID primitive.ObjectID, req RecordStatRequest) (*GameStat, error) {
	if req.Game == "" {
		return nil, &schedule.ValidationError{Field: "game", Reason: "is required"}
	}
	if req.Score < 0 {
		return nil, &schedule.ValidationError{Field: "score", Reason: "must not be negative"}
	}
	if err := s.authorizer.Allow(ctx, actorID, patientID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stat := &GameStat{
		PatientID:       patientID,
		Game:            req.Game,
		Score:           req.Score,
		DurationSeconds: req.DurationSeconds,
		PlayedAt:        now,
		CreatedAt:       now,
	}
	if err := s.repo.Create(ctx, stat); err != nil {
		return nil, errors.New("failed to record game stat")
	}
	s.logger.Info("game stat recorded",
		zap.String("patientId", patientID.Hex()),
		zap.String("game", req.Game),
		zap.Int("score", req.Score))
	return stat, nil
}

func (s *GameStatService) ListByPatient(ctx context.Context, actorID, patientID primitive.ObjectID, game string) ([]GameStat, error) {
	if err := s.authorizer.Allow(ctx, actorID, patientID); err != nil {
		return nil, err
	}
	return s.repo.FindByPatient(ctx, patientID, game)
}

// Summarize computes a patient's progress for a game, or across all games
// when game is empty.
func (s *GameStatService) Summarize(ctx context.Context, actorID, patientID primitive.ObjectID, game string) (*Summary, error) {
	records, err := s.ListByPatient(ctx, actorID, patientID, game)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Games: len(records)}
	if len(records) == 0 {
		return summary, nil
	}

	scores := make([]float64, 0, len(records))
	for _, rec := range records {
		summary.TotalScore += rec.Score
		if rec.Score > summary.BestScore {
			summary.BestScore = rec.Score
		}
		scores = append(scores, float64(rec.Score))
	}
	if mean, err := stats.Mean(scores); err == nil {
		summary.MeanScore = mean
	}
	if median, err := stats.Median(scores); err == nil {
		summary.MedianScore = median
	}
	return summary, nil
}

func (s *GameStatService) Leaderboard(ctx context.Context, game string, limit int) ([]LeaderboardEntry, error) {
	if game == "" {
		return nil, &schedule.ValidationError{Field: "game", Reason: "is required"}
	}
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	return s.repo.Leaderboard(ctx, game, limit)
}
