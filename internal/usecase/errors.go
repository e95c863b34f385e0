package usecase

import (
	"errors"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

const (
	CodeInvalidJSON         = "INVALID_JSON"
	CodeInvalidIdentity     = "INVALID_IDENTITY"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInvalidStatus       = "INVALID_STATUS"
	CodeInvalidFilter       = "INVALID_FILTER"
	CodeValidation          = "VALIDATION_ERROR"
	CodeBatchTooLarge       = "BATCH_TOO_LARGE"
	CodeNotFound            = "NOT_FOUND"
	CodeConflictWriteFailed = "CONFLICT_WRITE_FAILED"
	CodeConstraintViolation = "CONSTRAINT_VIOLATION"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL_ERROR"
)

// DomainError is an error the caller can act on. Err keeps the entity
// sentinel so errors.Is still works through it.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

var sentinelCodes = []struct {
	err  error
	code string
}{
	{entity.ErrInvalidIdentity, CodeInvalidIdentity},
	{entity.ErrInvalidAmount, CodeInvalidAmount},
	{entity.ErrInvalidStatus, CodeInvalidStatus},
	{entity.ErrInvalidFilter, CodeInvalidFilter},
	{entity.ErrBatchTooLarge, CodeBatchTooLarge},
	{entity.ErrNotFound, CodeNotFound},
	{entity.ErrConflictWriteFailed, CodeConflictWriteFailed},
	{entity.ErrConstraintViolation, CodeConstraintViolation},
}

// classify turns a store or entity error into a DomainError when it carries a
// known sentinel, and into a TechnicalError otherwise.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) || IsTechnicalError(err) {
		return err
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return &DomainError{Code: s.code, Message: err.Error(), Err: err}
		}
	}
	return &TechnicalError{Code: CodeInternal, Message: err.Error(), Err: err}
}

func validationError(msg string) error {
	return &DomainError{Code: CodeValidation, Message: msg}
}

// ErrorCode returns the envelope code for any error returned by a use case.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var te *TechnicalError
	if errors.As(err, &te) && te.Code != "" {
		return te.Code
	}
	return CodeInternal
}
