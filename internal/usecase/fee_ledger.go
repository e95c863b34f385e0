package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

// FeeLedgerUseCase validates amounts and dates before handing the mutation to
// the store, which keeps fees_paid equal to the sum of installments.
type FeeLedgerUseCase struct {
	Ledger entity.LedgerRepositoryInterface
	Logger *zap.Logger
	Now    func() time.Time
}

func NewFeeLedgerUseCase(ledger entity.LedgerRepositoryInterface, logger *zap.Logger) *FeeLedgerUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeLedgerUseCase{Ledger: ledger, Logger: logger, Now: time.Now}
}

func notFound(kind, id string) error {
	err := fmt.Errorf("%s %s: %w", kind, id, entity.ErrNotFound)
	return &DomainError{Code: CodeNotFound, Message: err.Error(), Err: err}
}

func (uc *FeeLedgerUseCase) AddInstallment(ctx context.Context, input AddInstallmentInput) (*entity.LedgerResult, error) {
	if !isValidID(input.LeadID) {
		return nil, notFound("lead", input.LeadID)
	}

	amount, err := entity.ParseAmount(string(input.Amount))
	if err != nil {
		return nil, classify(err)
	}

	paid := uc.Now()
	if strings.TrimSpace(input.PaymentDate) != "" {
		if paid, err = parseDate(input.PaymentDate); err != nil {
			return nil, validationError("payment_date: must be a valid date (YYYY-MM-DD)")
		}
	}

	inst, err := entity.NewFeeInstallment(input.LeadID, amount, paid)
	if err != nil {
		return nil, classify(err)
	}

	res, err := uc.Ledger.AddInstallment(ctx, inst)
	if err != nil {
		uc.Logger.Warn("add installment failed", zap.String("lead_id", input.LeadID), zap.Error(err))
		return nil, classify(err)
	}

	uc.Logger.Info("installment added",
		zap.String("lead_id", res.LeadID),
		zap.String("installment_id", inst.ID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("fees_paid", res.FeesPaid.StringFixed(2)),
	)
	return res, nil
}

func (uc *FeeLedgerUseCase) UpdateInstallment(ctx context.Context, input UpdateInstallmentInput) (*entity.LedgerResult, error) {
	if !isValidID(input.ID) {
		return nil, notFound("installment", input.ID)
	}

	amount, err := entity.ParseAmount(string(input.Amount))
	if err != nil {
		return nil, classify(err)
	}

	res, err := uc.Ledger.UpdateInstallment(ctx, input.ID, amount)
	if err != nil {
		uc.Logger.Warn("update installment failed", zap.String("installment_id", input.ID), zap.Error(err))
		return nil, classify(err)
	}

	uc.Logger.Info("installment updated",
		zap.String("lead_id", res.LeadID),
		zap.String("installment_id", input.ID),
		zap.String("fees_paid", res.FeesPaid.StringFixed(2)),
	)
	return res, nil
}

func (uc *FeeLedgerUseCase) DeleteInstallment(ctx context.Context, id string) (*entity.LedgerResult, error) {
	if !isValidID(id) {
		return nil, notFound("installment", id)
	}

	res, err := uc.Ledger.DeleteInstallment(ctx, id)
	if err != nil {
		uc.Logger.Warn("delete installment failed", zap.String("installment_id", id), zap.Error(err))
		return nil, classify(err)
	}

	uc.Logger.Info("installment deleted",
		zap.String("lead_id", res.LeadID),
		zap.String("installment_id", id),
		zap.String("fees_paid", res.FeesPaid.StringFixed(2)),
	)
	return res, nil
}

func (uc *FeeLedgerUseCase) ListInstallments(ctx context.Context, leadID string) ([]entity.FeeInstallment, error) {
	if !isValidID(leadID) {
		return nil, notFound("lead", leadID)
	}
	out, err := uc.Ledger.ListInstallments(ctx, leadID)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}
