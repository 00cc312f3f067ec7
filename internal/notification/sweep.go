package notification

import (
	"context"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/carecoord/carecoord/internal/auth"
	"github.com/carecoord/carecoord/internal/config"
)

// deliveryStore is the slice of the repository the sweep needs.
type deliveryStore interface {
	FindDue(ctx context.Context, now time.Time) ([]*Notification, error)
	MarkDelivered(ctx context.Context, id primitive.ObjectID, now time.Time) error
}

// Pusher sends a notification payload to device push tokens.
type Pusher interface {
	Enabled() bool
	Deliver(ctx context.Context, to []string, title, body string, data map[string]any) error
}

// TokenSource resolves a patient's registered device push tokens. Satisfied
// by auth.UserRepository.
type TokenSource interface {
	PushTokens(ctx context.Context, userID primitive.ObjectID) ([]string, error)
}

// Sweep periodically finds due notifications and pushes them to the patient's
// registered device tokens. Delivery is at-least-once: a crash between push
// and MarkDelivered re-delivers on the next pass. The sweep only runs when
// PUSH_SWEEP_INTERVAL is set and the push gateway is configured; without it
// the system is purely pull-based (clients poll today/upcoming).
type Sweep struct {
	store  deliveryStore
	push   Pusher
	tokens TokenSource
	logger *zap.Logger
}

func NewSweep(repo *NotificationRepository, push *config.PushService, users *auth.UserRepository, logger *zap.Logger) *Sweep {
	return newSweep(repo, push, users, logger)
}

func newSweep(store deliveryStore, push Pusher, tokens TokenSource, logger *zap.Logger) *Sweep {
	return &Sweep{store: store, push: push, tokens: tokens, logger: logger}
}

// Start hooks the sweep ticker into the fx lifecycle.
func (s *Sweep) Start(lc fx.Lifecycle) {
	interval, err := time.ParseDuration(os.Getenv("PUSH_SWEEP_INTERVAL"))
	if err != nil || interval <= 0 {
		s.logger.Info("PUSH_SWEEP_INTERVAL not set, push sweep disabled")
		return
	}
	if !s.push.Enabled() {
		s.logger.Warn("push sweep requested but push gateway not configured, sweep disabled")
		return
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.logger.Info("starting notification sweep", zap.Duration("interval", interval))
			go func() {
				sweepCtx := context.Background()
				for {
					select {
					case <-ticker.C:
						s.DeliverDue(sweepCtx, time.Now())
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.logger.Info("stopping notification sweep")
			ticker.Stop()
			close(done)
			return nil
		},
	})
}

// DeliverDue pushes every notification that ShouldTrigger at now, then marks
// it delivered. The patient's device tokens are resolved at delivery time,
// once per patient per pass. Per-notification failures are logged and
// skipped; the next pass retries them.
func (s *Sweep) DeliverDue(ctx context.Context, now time.Time) {
	due, err := s.store.FindDue(ctx, now)
	if err != nil {
		s.logger.Error("failed to fetch due notifications", zap.Error(err))
		return
	}
	tokensByPatient := make(map[primitive.ObjectID][]string)
	for _, n := range due {
		if !n.ShouldTrigger(now) {
			continue
		}
		tokens, ok := tokensByPatient[n.PatientID]
		if !ok {
			tokens, err = s.tokens.PushTokens(ctx, n.PatientID)
			if err != nil {
				s.logger.Error("failed to resolve push tokens",
					zap.String("patientId", n.PatientID.Hex()), zap.Error(err))
				continue
			}
			tokensByPatient[n.PatientID] = tokens
		}
		if len(tokens) == 0 {
			// No registered device; the client will pick it up by polling.
			continue
		}
		data := map[string]any{"notificationId": n.ID.Hex(), "type": n.Type}
		if err := s.push.Deliver(ctx, tokens, n.Title, n.Message, data); err != nil {
			s.logger.Error("failed to push notification",
				zap.String("notificationId", n.ID.Hex()), zap.Error(err))
			continue
		}
		if err := s.store.MarkDelivered(ctx, n.ID, now); err != nil {
			s.logger.Error("failed to mark pushed notification delivered",
				zap.String("notificationId", n.ID.Hex()), zap.Error(err))
		}
	}
}
