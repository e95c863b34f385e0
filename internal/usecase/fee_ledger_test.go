package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/nivesh-crm/internal/entity"
	"github.com/xavierca1/nivesh-crm/internal/infra/memory"
	"github.com/xavierca1/nivesh-crm/internal/usecase"
)

func newLedgerUC(t *testing.T, store *memory.Store) *usecase.FeeLedgerUseCase {
	t.Helper()
	return usecase.NewFeeLedgerUseCase(store.Ledger(), zaptest.NewLogger(t))
}

func feesPaid(t *testing.T, store *memory.Store, leadID string) decimal.Decimal {
	t.Helper()
	lead, err := store.Leads().FindByID(context.Background(), leadID)
	require.NoError(t, err)
	return lead.FeesPaid
}

func sumInstallments(t *testing.T, store *memory.Store, leadID string) decimal.Decimal {
	t.Helper()
	list, err := store.Ledger().ListInstallments(context.Background(), leadID)
	require.NoError(t, err)
	total := decimal.Zero
	for _, inst := range list {
		total = total.Add(inst.Amount)
	}
	return total
}

// TestFeeLedgerAddAddDelete - 5000 + 3000, then delete the first, leaves 3000
func TestFeeLedgerAddAddDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := newLedgerUC(t, store)
	leadID := seedLead(t, store, "Asha", "9876543210")

	first, err := uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: leadID, Amount: "5000"})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5000).Equal(first.FeesPaid))

	second, err := uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: leadID, Amount: "3000", PaymentDate: "2026-02-14"})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(8000).Equal(second.FeesPaid))

	res, err := uc.DeleteInstallment(ctx, first.Installment.ID)
	require.NoError(t, err)
	assert.Equal(t, leadID, res.LeadID)
	assert.True(t, decimal.NewFromInt(3000).Equal(res.FeesPaid))
	assert.True(t, decimal.NewFromInt(3000).Equal(feesPaid(t, store, leadID)))
}

// TestFeeLedgerRejectsInvalidAmounts - nothing changes when the amount is bad
func TestFeeLedgerRejectsInvalidAmounts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := newLedgerUC(t, store)
	leadID := seedLead(t, store, "Asha", "9876543210")

	_, err := uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: leadID, Amount: "1200"})
	require.NoError(t, err)

	for _, amount := range []usecase.AmountText{"-100", "0", "abc", "", "10.125", "NaN", "Infinity"} {
		_, err := uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: leadID, Amount: amount})
		assert.ErrorIs(t, err, entity.ErrInvalidAmount, "amount %q", amount)
		assert.Equal(t, usecase.CodeInvalidAmount, usecase.ErrorCode(err), "amount %q", amount)
	}

	assert.True(t, decimal.NewFromInt(1200).Equal(feesPaid(t, store, leadID)))
	list, err := uc.ListInstallments(ctx, leadID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// TestFeeLedgerUpdateAmount - update recomputes from the installments
func TestFeeLedgerUpdateAmount(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := newLedgerUC(t, store)
	leadID := seedLead(t, store, "Asha", "9876543210")

	a, err := uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: leadID, Amount: "2500.50"})
	require.NoError(t, err)
	_, err = uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: leadID, Amount: "1000"})
	require.NoError(t, err)

	res, err := uc.UpdateInstallment(ctx, usecase.UpdateInstallmentInput{ID: a.Installment.ID, Amount: "4000.25"})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("5000.25").Equal(res.FeesPaid))

	_, err = uc.UpdateInstallment(ctx, usecase.UpdateInstallmentInput{ID: a.Installment.ID, Amount: "-1"})
	assert.Equal(t, usecase.CodeInvalidAmount, usecase.ErrorCode(err))
	assert.True(t, decimal.RequireFromString("5000.25").Equal(feesPaid(t, store, leadID)))
}

// TestFeeLedgerNotFound - missing leads and installments never recompute anything
func TestFeeLedgerNotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := newLedgerUC(t, store)

	_, err := uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: uuid.NewString(), Amount: "100"})
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: "not-an-id", Amount: "100"})
	assert.Equal(t, usecase.CodeNotFound, usecase.ErrorCode(err))

	_, err = uc.UpdateInstallment(ctx, usecase.UpdateInstallmentInput{ID: uuid.NewString(), Amount: "100"})
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = uc.DeleteInstallment(ctx, uuid.NewString())
	assert.Equal(t, usecase.CodeNotFound, usecase.ErrorCode(err))
}

// TestFeeLedgerPaymentDate - the date defaults to today and accepts the admin formats
func TestFeeLedgerPaymentDate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := newLedgerUC(t, store)
	uc.Now = func() time.Time { return time.Date(2026, 5, 20, 18, 30, 0, 0, time.UTC) }
	leadID := seedLead(t, store, "Asha", "9876543210")

	res, err := uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: leadID, Amount: "100"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC), res.Installment.PaymentDate)

	res, err = uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: leadID, Amount: "100", PaymentDate: "03/04/2026"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC), res.Installment.PaymentDate)

	_, err = uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: leadID, Amount: "100", PaymentDate: "yesterday"})
	assert.Equal(t, usecase.CodeValidation, usecase.ErrorCode(err))

	list, err := uc.ListInstallments(ctx, leadID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].PaymentDate.After(list[1].PaymentDate))
}

// TestFeeLedgerConcurrentMutations - interleaved mutations on one lead keep fees_paid exact
func TestFeeLedgerConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := newLedgerUC(t, store)
	leadID := seedLead(t, store, "Asha", "9876543210")
	otherID := seedLead(t, store, "Ravi", "9811111111")

	const n = 40
	ids := make([]string, n)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			res, err := uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: leadID, Amount: "100.50"})
			if err != nil {
				return err
			}
			ids[i] = res.Installment.ID
			return nil
		})
		g.Go(func() error {
			_, err := uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: otherID, Amount: "1"})
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.True(t, decimal.RequireFromString("4020").Equal(feesPaid(t, store, leadID)))

	for i := 0; i < n; i++ {
		switch i % 4 {
		case 0:
			g.Go(func() error {
				_, err := uc.DeleteInstallment(ctx, ids[i])
				return err
			})
		case 1:
			g.Go(func() error {
				_, err := uc.UpdateInstallment(ctx, usecase.UpdateInstallmentInput{ID: ids[i], Amount: "200"})
				return err
			})
		default:
			g.Go(func() error {
				_, err := uc.ListInstallments(ctx, leadID)
				return err
			})
		}
	}
	require.NoError(t, g.Wait())

	// 20 untouched at 100.50, 10 updated to 200, 10 deleted.
	assert.True(t, decimal.RequireFromString("4010").Equal(feesPaid(t, store, leadID)))
	assert.True(t, sumInstallments(t, store, leadID).Equal(feesPaid(t, store, leadID)))
	assert.True(t, decimal.NewFromInt(n).Equal(feesPaid(t, store, otherID)))
}

// TestFeeLedgerLeadDeleteCascades - deleting a lead removes its installments
func TestFeeLedgerLeadDeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := newLedgerUC(t, store)
	admin := usecase.NewLeadAdminUseCase(store.Leads(), testNormalizer, zap.NewNop())
	leadID := seedLead(t, store, "Asha", "9876543210")

	res, err := uc.AddInstallment(ctx, usecase.AddInstallmentInput{LeadID: leadID, Amount: "100"})
	require.NoError(t, err)

	require.NoError(t, admin.DeleteLead(ctx, leadID))

	_, err = uc.UpdateInstallment(ctx, usecase.UpdateInstallmentInput{ID: res.Installment.ID, Amount: "50"})
	assert.ErrorIs(t, err, entity.ErrNotFound)
	list, err := uc.ListInstallments(ctx, leadID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// TestFeeLedgerStoreFailure - store errors are classified, unknown ones are technical
func TestFeeLedgerStoreFailure(t *testing.T) {
	ledger := new(MockLedgerRepository)
	uc := usecase.NewFeeLedgerUseCase(ledger, zap.NewNop())
	leadID := uuid.NewString()

	ledger.On("AddInstallment", mock.Anything, mock.MatchedBy(func(inst *entity.FeeInstallment) bool {
		return inst.LeadID == leadID && inst.Amount.Equal(decimal.NewFromInt(700))
	})).Return(nil, entity.ErrConflictWriteFailed).Once()
	ledger.On("DeleteInstallment", mock.Anything, mock.Anything).Return(nil, errors.New("broken pipe")).Once()

	_, err := uc.AddInstallment(context.Background(), usecase.AddInstallmentInput{LeadID: leadID, Amount: "700"})
	assert.Equal(t, usecase.CodeConflictWriteFailed, usecase.ErrorCode(err))

	_, err = uc.DeleteInstallment(context.Background(), uuid.NewString())
	assert.True(t, usecase.IsTechnicalError(err))

	ledger.AssertExpectations(t)
}
