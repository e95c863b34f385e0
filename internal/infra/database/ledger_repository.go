package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

// LedgerRepository serializes every installment mutation on the owning lead's
// row lock and recomputes fees_paid from the installments before commit.
type LedgerRepository struct {
	DB *sql.DB
	tx *TxRunner
}

func NewLedgerRepository(db *sql.DB, tx *TxRunner) *LedgerRepository {
	return &LedgerRepository{DB: db, tx: tx}
}

func lockLead(ctx context.Context, tx *sql.Tx, leadID string) error {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM leads WHERE id = $1 FOR UPDATE`, leadID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lead %s: %w", leadID, entity.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock lead: %w", err)
	}
	return nil
}

func recomputeFees(ctx context.Context, tx *sql.Tx, leadID string) (decimal.Decimal, error) {
	var fees decimal.Decimal
	err := tx.QueryRowContext(ctx, `
		UPDATE leads
		SET fees_paid = (SELECT COALESCE(SUM(amount), 0) FROM fee_installments WHERE lead_id = $1),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING fees_paid
	`, leadID).Scan(&fees)
	if err != nil {
		return decimal.Zero, fmt.Errorf("recompute fees: %w", err)
	}
	return fees, nil
}

// installmentOwner resolves the lead that owns an installment so the caller
// can take the lead lock before touching the installment.
func installmentOwner(ctx context.Context, tx *sql.Tx, id string) (string, error) {
	var leadID string
	err := tx.QueryRowContext(ctx, `SELECT lead_id FROM fee_installments WHERE id = $1`, id).Scan(&leadID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("installment %s: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("find installment: %w", err)
	}
	return leadID, nil
}

func (r *LedgerRepository) AddInstallment(ctx context.Context, inst *entity.FeeInstallment) (*entity.LedgerResult, error) {
	var result *entity.LedgerResult

	err := r.tx.WithTx(ctx, nil, func(tx *sql.Tx) error {
		if err := lockLead(ctx, tx, inst.LeadID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO fee_installments (id, lead_id, amount, payment_date, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, inst.ID, inst.LeadID, inst.Amount, inst.PaymentDate, inst.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert installment: %w", err)
		}

		fees, err := recomputeFees(ctx, tx, inst.LeadID)
		if err != nil {
			return err
		}
		result = &entity.LedgerResult{Installment: inst, LeadID: inst.LeadID, FeesPaid: fees}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *LedgerRepository) UpdateInstallment(ctx context.Context, id string, amount decimal.Decimal) (*entity.LedgerResult, error) {
	var result *entity.LedgerResult

	err := r.tx.WithTx(ctx, nil, func(tx *sql.Tx) error {
		leadID, err := installmentOwner(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := lockLead(ctx, tx, leadID); err != nil {
			return err
		}

		var inst entity.FeeInstallment
		err = tx.QueryRowContext(ctx, `
			UPDATE fee_installments SET amount = $2
			WHERE id = $1 AND lead_id = $3
			RETURNING id, lead_id, amount, payment_date, created_at
		`, id, amount, leadID).Scan(&inst.ID, &inst.LeadID, &inst.Amount, &inst.PaymentDate, &inst.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			// Deleted between the owner lookup and the lock.
			return fmt.Errorf("installment %s: %w", id, entity.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("update installment: %w", err)
		}

		fees, err := recomputeFees(ctx, tx, leadID)
		if err != nil {
			return err
		}
		result = &entity.LedgerResult{Installment: &inst, LeadID: leadID, FeesPaid: fees}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *LedgerRepository) DeleteInstallment(ctx context.Context, id string) (*entity.LedgerResult, error) {
	var result *entity.LedgerResult

	err := r.tx.WithTx(ctx, nil, func(tx *sql.Tx) error {
		leadID, err := installmentOwner(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := lockLead(ctx, tx, leadID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM fee_installments WHERE id = $1 AND lead_id = $2`, id, leadID)
		if err != nil {
			return fmt.Errorf("delete installment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("installment %s: %w", id, entity.ErrNotFound)
		}

		fees, err := recomputeFees(ctx, tx, leadID)
		if err != nil {
			return err
		}
		result = &entity.LedgerResult{LeadID: leadID, FeesPaid: fees}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *LedgerRepository) ListInstallments(ctx context.Context, leadID string) ([]entity.FeeInstallment, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, lead_id, amount, payment_date, created_at
		FROM fee_installments
		WHERE lead_id = $1
		ORDER BY payment_date DESC, created_at DESC
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()

	out := []entity.FeeInstallment{}
	for rows.Next() {
		var inst entity.FeeInstallment
		if err := rows.Scan(&inst.ID, &inst.LeadID, &inst.Amount, &inst.PaymentDate, &inst.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}
