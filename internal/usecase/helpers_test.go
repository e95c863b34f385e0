package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xavierca1/nivesh-crm/internal/entity"
	"github.com/xavierca1/nivesh-crm/internal/infra/memory"
	"github.com/xavierca1/nivesh-crm/internal/infra/queue"
	"github.com/xavierca1/nivesh-crm/internal/usecase"
)

var testNormalizer = entity.NewIdentityNormalizer("91", 10, 7)

// MockEventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishLeadEvent(ctx context.Context, event queue.LeadEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockLedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) AddInstallment(ctx context.Context, inst *entity.FeeInstallment) (*entity.LedgerResult, error) {
	args := m.Called(ctx, inst)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LedgerResult), args.Error(1)
}

func (m *MockLedgerRepository) UpdateInstallment(ctx context.Context, id string, amount decimal.Decimal) (*entity.LedgerResult, error) {
	args := m.Called(ctx, id, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LedgerResult), args.Error(1)
}

func (m *MockLedgerRepository) DeleteInstallment(ctx context.Context, id string) (*entity.LedgerResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LedgerResult), args.Error(1)
}

func (m *MockLedgerRepository) ListInstallments(ctx context.Context, leadID string) ([]entity.FeeInstallment, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FeeInstallment), args.Error(1)
}

// failingLeadRepo fails every batch write with err.
type failingLeadRepo struct {
	*memory.LeadRepository
	err error
}

func (r failingLeadRepo) UpsertBatch(ctx context.Context, c []entity.MergeCandidate, override bool) ([]entity.UpsertOutcome, error) {
	return nil, r.err
}

func newUpsertUC(t *testing.T, store *memory.Store) *usecase.UpsertLeadsUseCase {
	t.Helper()
	return usecase.NewUpsertLeadsUseCase(store.Leads(), testNormalizer, 0, zaptest.NewLogger(t))
}

// seedLead inserts one lead through the upsert path and returns its id.
func seedLead(t *testing.T, store *memory.Store, name, contact string) string {
	t.Helper()
	out, err := newUpsertUC(t, store).Execute(context.Background(), usecase.UpsertLeadsInput{
		Candidates: []entity.Candidate{{Name: name, Contact: contact}},
	})
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 1)
	return out.Outcomes[0].LeadID
}

func leadByContact(t *testing.T, store *memory.Store, contact string) *entity.Lead {
	t.Helper()
	key, err := testNormalizer.Normalize(contact)
	require.NoError(t, err)
	lead, err := store.Leads().FindByPhoneKey(context.Background(), key)
	require.NoError(t, err)
	return lead
}

func strPtr(s string) *string { return &s }
