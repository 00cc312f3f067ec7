package medication

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/carecoord/carecoord/internal/auth"
	"github.com/carecoord/carecoord/internal/schedule"
)

var ErrNotFound = errors.New("medication not found")

// NotificationMaterializer is the secondary, best-effort step run after a
// medication is committed. Implemented by the notification package.
type NotificationMaterializer interface {
	ForMedication(ctx context.Context, med *Medication, override *schedule.TimeOfDay) (int, error)
}

type MedicationService struct {
	repo         *MedicationRepository
	authorizer   auth.Authorizer
	materializer NotificationMaterializer
	logger       *zap.Logger
}

func NewMedicationService(repo *MedicationRepository, authorizer auth.Authorizer, materializer NotificationMaterializer, logger *zap.Logger) *MedicationService {
	return &MedicationService{repo: repo, authorizer: authorizer, materializer: materializer, logger: logger}
}

// Create commits the medication first, then materializes its notifications
// inside a logged, non-fatal boundary. A medication may legitimately exist
// with zero notifications if materialization fails.
func (s *MedicationService) Create(ctx context.Context, actorID primitive.ObjectID, req CreateMedicationRequest) (*Medication, error) {
	patientID, err := primitive.ObjectIDFromHex(req.PatientID)
	if err != nil {
		return nil, errors.New("invalid patient id")
	}
	if req.Name == "" || req.Dosage == "" {
		return nil, errors.New("name and dosage are required")
	}
	if err := req.Schedule.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorizer.Allow(ctx, actorID, patientID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	med := &Medication{
		ID:        primitive.NewObjectID(),
		PatientID: patientID,
		Name:      req.Name,
		Dosage:    req.Dosage,
		Schedule:  req.Schedule,
		Notes:     req.Notes,
		IsActive:  true,
		CreatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, med); err != nil {
		return nil, err
	}
	s.logger.Info("medication created",
		zap.String("medicationId", med.ID.Hex()),
		zap.String("patientId", patientID.Hex()),
		zap.String("name", med.Name))

	if count, err := s.materializer.ForMedication(ctx, med, req.NotificationTime); err != nil {
		s.logger.Error("failed to create notifications for medication",
			zap.String("medicationId", med.ID.Hex()), zap.Error(err))
	} else if count > 0 {
		s.logger.Info("notifications created for medication",
			zap.String("medicationId", med.ID.Hex()), zap.Int("count", count))
	}

	return med, nil
}

func (s *MedicationService) ListByPatient(ctx context.Context, actorID, patientID primitive.ObjectID, isActive bool) ([]*Medication, error) {
	if err := s.authorizer.Allow(ctx, actorID, patientID); err != nil {
		return nil, err
	}
	return s.repo.FindByPatient(ctx, patientID, isActive)
}

func (s *MedicationService) Get(ctx context.Context, actorID, id primitive.ObjectID) (*Medication, error) {
	med, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, ErrNotFound
	}
	if err := s.authorizer.Allow(ctx, actorID, med.PatientID); err != nil {
		return nil, err
	}
	return med, nil
}

// Update edits medication fields. A schedule change does not touch already
// materialized notifications; callers re-materialize explicitly through the
// notification endpoint, which skips instants that already exist.
func (s *MedicationService) Update(ctx context.Context, actorID, id primitive.ObjectID, req UpdateMedicationRequest) (*Medication, error) {
	med, err := s.Get(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		med.Name = *req.Name
	}
	if req.Dosage != nil {
		med.Dosage = *req.Dosage
	}
	if req.Schedule != nil {
		if err := req.Schedule.Validate(); err != nil {
			return nil, err
		}
		med.Schedule = *req.Schedule
	}
	if req.Notes != nil {
		med.Notes = *req.Notes
	}
	if req.IsActive != nil {
		med.IsActive = *req.IsActive
	}

	if err := s.repo.Save(ctx, med); err != nil {
		return nil, err
	}
	s.logger.Info("medication updated", zap.String("medicationId", med.ID.Hex()))
	return med, nil
}

// Delete soft-deletes: the record stays for audit, is_active flips off.
func (s *MedicationService) Delete(ctx context.Context, actorID, id primitive.ObjectID) error {
	med, err := s.Get(ctx, actorID, id)
	if err != nil {
		return err
	}
	med.IsActive = false
	if err := s.repo.Save(ctx, med); err != nil {
		return err
	}
	s.logger.Info("medication deleted", zap.String("medicationId", med.ID.Hex()))
	return nil
}

func (s *MedicationService) MarkTaken(ctx context.Context, actorID, id primitive.ObjectID, req LedgerRequest, now time.Time) (*Medication, error) {
	med, err := s.Get(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	date := req.Date
	if date.IsZero() {
		date = now
	}
	med.MarkTaken(date, req.Notes, now)
	if err := s.repo.Save(ctx, med); err != nil {
		return nil, err
	}
	return med, nil
}

func (s *MedicationService) MarkSkipped(ctx context.Context, actorID, id primitive.ObjectID, req LedgerRequest, now time.Time) (*Medication, error) {
	med, err := s.Get(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	date := req.Date
	if date.IsZero() {
		date = now
	}
	med.MarkSkipped(date, req.Notes, now)
	if err := s.repo.Save(ctx, med); err != nil {
		return nil, err
	}
	return med, nil
}

// WeekStats is one week of the adherence breakdown.
type WeekStats struct {
	Week          int       `json:"week"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	Taken         int       `json:"taken"`
	Skipped       int       `json:"skipped"`
	Missed        int       `json:"missed"`
	AdherenceRate int       `json:"adherenceRate"`
}

type AdherenceStats struct {
	TotalDays       int         `json:"totalDays"`
	Taken           int         `json:"taken"`
	Skipped         int         `json:"skipped"`
	Missed          int         `json:"missed"`
	AdherenceRate   int         `json:"adherenceRate"`
	MeanWeeklyRate  float64     `json:"meanWeeklyRate"`
	WeeklyBreakdown []WeekStats `json:"weeklyBreakdown"`
}

// Stats summarizes the adherence ledger over the trailing window of days.
func (s *MedicationService) Stats(ctx context.Context, actorID, id primitive.ObjectID, days int, now time.Time) (*Medication, *AdherenceStats, error) {
	med, err := s.Get(ctx, actorID, id)
	if err != nil {
		return nil, nil, err
	}
	return med, adherenceOver(med.TakenDates, days, now), nil
}

// adherenceOver computes the stats for the trailing window of exactly days
// calendar days ending on now's UTC day, inclusive. Rates divide by days, so
// the window must admit no more than days entries.
func adherenceOver(entries []LedgerEntry, days int, now time.Time) *AdherenceStats {
	if days <= 0 {
		days = 30
	}

	startDate := DayOf(now).AddDate(0, 0, -(days - 1))
	var recent []LedgerEntry
	for _, entry := range entries {
		if !entry.Date.Before(startDate) && !entry.Date.After(DayOf(now)) {
			recent = append(recent, entry)
		}
	}

	taken, skipped := 0, 0
	for _, entry := range recent {
		if entry.Taken {
			taken++
		} else if entry.Skipped {
			skipped++
		}
	}
	missed := days - taken - skipped

	result := &AdherenceStats{
		TotalDays:     days,
		Taken:         taken,
		Skipped:       skipped,
		Missed:        missed,
		AdherenceRate: int(math.Round(float64(taken) / float64(days) * 100)),
	}

	weeks := (days + 6) / 7
	weeklyRates := make([]float64, 0, weeks)
	for i := 0; i < weeks; i++ {
		weekStart := startDate.AddDate(0, 0, i*7)
		weekEnd := weekStart.AddDate(0, 0, 6)

		weekTaken, weekSkipped := 0, 0
		for _, entry := range recent {
			if entry.Date.Before(weekStart) || entry.Date.After(weekEnd) {
				continue
			}
			if entry.Taken {
				weekTaken++
			} else if entry.Skipped {
				weekSkipped++
			}
		}

		rate := int(math.Round(float64(weekTaken) / 7 * 100))
		weeklyRates = append(weeklyRates, float64(rate))
		result.WeeklyBreakdown = append(result.WeeklyBreakdown, WeekStats{
			Week:          i + 1,
			StartDate:     weekStart,
			EndDate:       weekEnd,
			Taken:         weekTaken,
			Skipped:       weekSkipped,
			Missed:        7 - weekTaken - weekSkipped,
			AdherenceRate: rate,
		})
	}

	if mean, err := stats.Mean(weeklyRates); err == nil {
		result.MeanWeeklyRate = math.Round(mean*100) / 100
	}

	return result
}
