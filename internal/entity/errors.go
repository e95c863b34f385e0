package entity

import "errors"

var (
	ErrInvalidIdentity     = errors.New("invalid identity: contact has too few digits")
	ErrInvalidAmount       = errors.New("invalid amount: must be a positive number with at most 2 decimals")
	ErrInvalidStatus       = errors.New("invalid lead status")
	ErrInvalidFilter       = errors.New("invalid search filter")
	ErrBatchTooLarge       = errors.New("batch exceeds the maximum number of candidates")
	ErrNotFound            = errors.New("not found")
	ErrConflictWriteFailed = errors.New("write conflict: transaction could not commit, retry the operation")
	ErrConstraintViolation = errors.New("storage constraint violated")
)
