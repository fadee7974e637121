package wallet

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the wallet services.
var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrWalletInactive          = errors.New("wallet inactive")
	ErrConcurrentConflict      = errors.New("concurrent conflict")
	ErrIdempotencyConflict     = errors.New("idempotency key reused with different request")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrWalletExists            = errors.New("wallet already exists")
	ErrForeignWallet           = errors.New("wallet belongs to another distributor")
	ErrDuplicateCollection     = errors.New("field collection already exists")
	ErrCollectionNotFound      = errors.New("field collection not found")
	ErrInvalidOwnerType        = errors.New("invalid owner type")
	ErrInvalidOwnerID          = errors.New("invalid owner id")
	ErrInvalidDistributorID    = errors.New("invalid distributor id")
	ErrInvalidWalletID         = errors.New("invalid wallet id")
	ErrInvalidCollectionID     = errors.New("invalid collection id")
	ErrInvalidIdempotencyKey   = errors.New("invalid idempotency key")
	ErrInvalidMetadataJSON     = errors.New("invalid metadata json")
	ErrInvalidTransactionType  = errors.New("invalid transaction type")
	ErrInvalidCollectionStatus = errors.New("invalid collection status")
	ErrInvalidPage             = errors.New("invalid page")
	ErrInvalidDateRange        = errors.New("invalid date range")
	ErrInvalidServiceConfig    = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}

// IsRejection reports whether err is a domain rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	for _, rejection := range []error{
		ErrInvalidAmount,
		ErrWalletNotFound,
		ErrInsufficientBalance,
		ErrWalletInactive,
		ErrIdempotencyConflict,
		ErrWalletExists,
		ErrForeignWallet,
		ErrDuplicateCollection,
		ErrCollectionNotFound,
		ErrInvalidOwnerType,
		ErrInvalidOwnerID,
		ErrInvalidDistributorID,
		ErrInvalidWalletID,
		ErrInvalidCollectionID,
		ErrInvalidIdempotencyKey,
		ErrInvalidMetadataJSON,
		ErrInvalidTransactionType,
		ErrInvalidCollectionStatus,
		ErrInvalidPage,
		ErrInvalidDateRange,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}
	return false
}
