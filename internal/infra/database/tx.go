package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNumericOutOfRange    = "22003"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// TxRunner runs a function inside a transaction and retries it when Postgres
// reports a serialization failure or deadlock.
type TxRunner struct {
	DB          *sql.DB
	RetryBudget int
	Backoff     time.Duration
}

func NewTxRunner(db *sql.DB, retryBudget int, backoff time.Duration) *TxRunner {
	if retryBudget <= 0 {
		retryBudget = 3
	}
	if backoff <= 0 {
		backoff = 20 * time.Millisecond
	}
	return &TxRunner{DB: db, RetryBudget: retryBudget, Backoff: backoff}
}

// WithTx commits when fn returns nil. Retryable failures are retried up to the
// budget and then reported as entity.ErrConflictWriteFailed.
func (r *TxRunner) WithTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.RetryBudget; attempt++ {
		err := r.runOnce(ctx, opts, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return mapError(err)
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * r.Backoff):
		}
	}
	return fmt.Errorf("%w: %v", entity.ErrConflictWriteFailed, lastErr)
}

func (r *TxRunner) runOnce(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isRetryable(err error) bool {
	switch sqlState(err) {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}

// mapError translates driver errors into entity sentinels. Errors that are
// already domain errors pass through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch sqlState(err) {
	case codeUniqueViolation, codeForeignKeyViolation, codeCheckViolation:
		return fmt.Errorf("%w: %v", entity.ErrConstraintViolation, err)
	case codeNumericOutOfRange:
		return fmt.Errorf("%w: %v", entity.ErrInvalidAmount, err)
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%w: %v", entity.ErrConflictWriteFailed, err)
	}
	return err
}
