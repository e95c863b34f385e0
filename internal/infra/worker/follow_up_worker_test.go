package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/entity"
	"github.com/xavierca1/nivesh-crm/internal/infra/memory"
)

// MockDigestSender
type MockDigestSender struct {
	mock.Mock
}

func (m *MockDigestSender) SendFollowUpDigest(to string, day time.Time, leads []entity.Lead) error {
	args := m.Called(to, day, leads)
	return args.Error(0)
}

func seedFollowUps(t *testing.T, store *memory.Store, day time.Time) {
	t.Helper()
	ctx := context.Background()
	outcomes, err := store.Leads().UpsertBatch(ctx, []entity.MergeCandidate{
		{PhoneKey: "919000000001", Name: "Due"},
		{PhoneKey: "919000000002", Name: "Due but dead", Status: entity.StatusDead},
		{PhoneKey: "919000000003", Name: "Tomorrow"},
	}, false)
	require.NoError(t, err)

	dates := []time.Time{day, day, day.AddDate(0, 0, 1)}
	for i, o := range outcomes {
		_, err := store.Leads().Update(ctx, o.LeadID, entity.LeadPatch{NextFollowUpDate: &dates[i]})
		require.NoError(t, err)
	}
}

// TestFollowUpWorkerSendsOncePerDay - one digest per day with only open leads due today
func TestFollowUpWorkerSendsOncePerDay(t *testing.T) {
	store := memory.NewStore()
	today := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	seedFollowUps(t, store, today)

	sender := new(MockDigestSender)
	sender.On("SendFollowUpDigest", "admin@nivesh.academy", today, mock.MatchedBy(func(leads []entity.Lead) bool {
		return len(leads) == 1 && leads[0].Name == "Due"
	})).Return(nil).Once()

	w := NewFollowUpWorker(store.Leads(), sender, "admin@nivesh.academy", time.Minute, zap.NewNop())
	w.now = func() time.Time { return today.Add(9 * time.Hour) }

	assert.True(t, w.runOnce(context.Background()))
	assert.False(t, w.runOnce(context.Background()))
	sender.AssertExpectations(t)
}

// TestFollowUpWorkerRetriesAfterFailure - a failed send is retried on the next tick
func TestFollowUpWorkerRetriesAfterFailure(t *testing.T) {
	store := memory.NewStore()
	today := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	seedFollowUps(t, store, today)

	sender := new(MockDigestSender)
	sender.On("SendFollowUpDigest", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	sender.On("SendFollowUpDigest", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	w := NewFollowUpWorker(store.Leads(), sender, "admin@nivesh.academy", time.Minute, zap.NewNop())
	w.now = func() time.Time { return today }

	assert.False(t, w.runOnce(context.Background()))
	assert.True(t, w.runOnce(context.Background()))
	sender.AssertNumberOfCalls(t, "SendFollowUpDigest", 2)
}

func TestFollowUpWorkerNothingDue(t *testing.T) {
	sender := new(MockDigestSender)
	w := NewFollowUpWorker(memory.NewStore().Leads(), sender, "admin@nivesh.academy", 0, nil)

	assert.False(t, w.runOnce(context.Background()))
	sender.AssertNotCalled(t, "SendFollowUpDigest", mock.Anything, mock.Anything, mock.Anything)
}
