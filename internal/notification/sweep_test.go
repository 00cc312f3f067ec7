package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeDeliveryStore serves a fixed set of notifications and applies
// MarkDelivered to them in place, mirroring the repository contract. FindDue
// deliberately skips the time filter so the tests exercise ShouldTrigger as
// the authoritative gate.
type fakeDeliveryStore struct {
	notifications []*Notification
}

func (f *fakeDeliveryStore) FindDue(_ context.Context, _ time.Time) ([]*Notification, error) {
	var due []*Notification
	for _, n := range f.notifications {
		if n.IsActive && !n.IsDelivered {
			due = append(due, n)
		}
	}
	return due, nil
}

func (f *fakeDeliveryStore) MarkDelivered(_ context.Context, id primitive.ObjectID, now time.Time) error {
	for _, n := range f.notifications {
		if n.ID == id {
			deliveredAt := now.UTC()
			n.IsDelivered = true
			n.DeliveredAt = &deliveredAt
			return nil
		}
	}
	return ErrNotFound
}

type fakePusher struct {
	sent     [][]string
	failNext bool
}

func (f *fakePusher) Enabled() bool { return true }

func (f *fakePusher) Deliver(_ context.Context, to []string, _, _ string, _ map[string]any) error {
	if f.failNext {
		f.failNext = false
		return errors.New("gateway unavailable")
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeTokenSource struct {
	tokens  map[primitive.ObjectID][]string
	lookups int
}

func (f *fakeTokenSource) PushTokens(_ context.Context, userID primitive.ObjectID) ([]string, error) {
	f.lookups++
	return f.tokens[userID], nil
}

func dueNotification(patientID primitive.ObjectID, scheduled time.Time) *Notification {
	return &Notification{
		ID:            primitive.NewObjectID(),
		PatientID:     patientID,
		Type:          TypeMedication,
		Title:         "Medication Reminder: Metformin",
		Message:       "Time to take Metformin (500mg)",
		ScheduledDate: scheduled,
		IsActive:      true,
	}
}

func TestDeliverDuePushesAndMarksDelivered(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 30, 0, time.UTC)
	patientID := primitive.NewObjectID()
	n := dueNotification(patientID, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))

	store := &fakeDeliveryStore{notifications: []*Notification{n}}
	pusher := &fakePusher{}
	tokens := &fakeTokenSource{tokens: map[primitive.ObjectID][]string{
		patientID: {"ExponentPushToken[abc]"},
	}}
	sweep := newSweep(store, pusher, tokens, zap.NewNop())

	sweep.DeliverDue(context.Background(), now)

	require.Len(t, pusher.sent, 1)
	assert.Equal(t, []string{"ExponentPushToken[abc]"}, pusher.sent[0])
	assert.True(t, n.IsDelivered)
	require.NotNil(t, n.DeliveredAt)
	assert.Equal(t, now, *n.DeliveredAt)
}

func TestDeliverDueWithoutTokensLeavesForPolling(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 1, 0, 0, time.UTC)
	n := dueNotification(primitive.NewObjectID(), time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))

	store := &fakeDeliveryStore{notifications: []*Notification{n}}
	pusher := &fakePusher{}
	sweep := newSweep(store, pusher, &fakeTokenSource{}, zap.NewNop())

	sweep.DeliverDue(context.Background(), now)

	assert.Empty(t, pusher.sent)
	assert.False(t, n.IsDelivered, "undelivered so the client can still poll it")
}

func TestDeliverDueRetriesAfterPushFailure(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 1, 0, 0, time.UTC)
	patientID := primitive.NewObjectID()
	n := dueNotification(patientID, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))

	store := &fakeDeliveryStore{notifications: []*Notification{n}}
	pusher := &fakePusher{failNext: true}
	tokens := &fakeTokenSource{tokens: map[primitive.ObjectID][]string{
		patientID: {"ExponentPushToken[abc]"},
	}}
	sweep := newSweep(store, pusher, tokens, zap.NewNop())

	sweep.DeliverDue(context.Background(), now)
	assert.False(t, n.IsDelivered, "failed push stays undelivered")

	sweep.DeliverDue(context.Background(), now.Add(time.Minute))
	require.Len(t, pusher.sent, 1)
	assert.True(t, n.IsDelivered)
}

func TestDeliverDueResolvesTokensOncePerPatient(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 5, 0, 0, time.UTC)
	patientID := primitive.NewObjectID()
	store := &fakeDeliveryStore{notifications: []*Notification{
		dueNotification(patientID, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)),
		dueNotification(patientID, time.Date(2024, 5, 1, 8, 5, 0, 0, time.UTC)),
	}}
	pusher := &fakePusher{}
	tokens := &fakeTokenSource{tokens: map[primitive.ObjectID][]string{
		patientID: {"ExponentPushToken[abc]"},
	}}
	sweep := newSweep(store, pusher, tokens, zap.NewNop())

	sweep.DeliverDue(context.Background(), now)

	assert.Len(t, pusher.sent, 2)
	assert.Equal(t, 1, tokens.lookups)
}

func TestDeliverDueSkipsNotYetTriggered(t *testing.T) {
	now := time.Date(2024, 5, 1, 7, 59, 0, 0, time.UTC)
	patientID := primitive.NewObjectID()
	n := dueNotification(patientID, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	store := &fakeDeliveryStore{notifications: []*Notification{n}}
	pusher := &fakePusher{}
	tokens := &fakeTokenSource{tokens: map[primitive.ObjectID][]string{
		patientID: {"ExponentPushToken[abc]"},
	}}
	sweep := newSweep(store, pusher, tokens, zap.NewNop())

	sweep.DeliverDue(context.Background(), now)

	assert.Empty(t, pusher.sent)
	assert.False(t, n.IsDelivered)
}
