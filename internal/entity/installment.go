package entity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeInstallment is one recorded payment. It is owned by its lead and only
// written through the fee ledger.
type FeeInstallment struct {
	ID          string          `json:"id"`
	LeadID      string          `json:"lead_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	CreatedAt   time.Time       `json:"created_at"`
}

func NewFeeInstallment(leadID string, amount decimal.Decimal, paymentDate time.Time) (*FeeInstallment, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}
	return &FeeInstallment{
		ID:          uuid.New().String(),
		LeadID:      leadID,
		Amount:      amount,
		PaymentDate: DateOnly(paymentDate),
		CreatedAt:   time.Now(),
	}, nil
}

// ParseAmount accepts the textual form operators type ("5000", "2500.50").
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	amt, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if err := ValidateAmount(amt); err != nil {
		return decimal.Zero, err
	}
	return amt, nil
}

// MaxAmount is the largest value fee_installments.amount NUMERIC(12,2) holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// MaxFeesPaid is the largest leads.fees_paid NUMERIC(14,2) holds.
var MaxFeesPaid = decimal.RequireFromString("999999999999.99")

func ValidateAmount(amt decimal.Decimal) error {
	if !amt.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amt.String())
	}
	if amt.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: %s exceeds %s", ErrInvalidAmount, amt.String(), MaxAmount.String())
	}
	if !amt.Equal(amt.Round(2)) {
		return fmt.Errorf("%w: %s has more than 2 decimals", ErrInvalidAmount, amt.String())
	}
	return nil
}

func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LedgerResult is the lead aggregate after a committed ledger mutation.
type LedgerResult struct {
	Installment *FeeInstallment `json:"installment,omitempty"`
	LeadID      string          `json:"lead_id"`
	FeesPaid    decimal.Decimal `json:"fees_paid"`
}

// LedgerRepositoryInterface mutates installments and recomputes the owning
// lead's fees_paid in the same transaction.
type LedgerRepositoryInterface interface {
	AddInstallment(ctx context.Context, inst *FeeInstallment) (*LedgerResult, error)
	UpdateInstallment(ctx context.Context, id string, amount decimal.Decimal) (*LedgerResult, error)
	DeleteInstallment(ctx context.Context, id string) (*LedgerResult, error)
	ListInstallments(ctx context.Context, leadID string) ([]FeeInstallment, error)
}
