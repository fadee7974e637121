package wallet

import (
	"errors"
	"fmt"
	"testing"
)

const (
	operationName    = "store"
	subjectName      = "wallet"
	codeName         = "update_failed"
	baseErrorMessage = "base error"
)

func TestOperationErrorFormatting(test *testing.T) {
	test.Parallel()
	baseError := errors.New(baseErrorMessage)
	wrappedError := WrapError(operationName, subjectName, codeName, baseError)
	expected := operationName + "." + subjectName + "." + codeName + ": " + baseErrorMessage
	if wrappedError == nil || wrappedError.Error() != expected {
		test.Fatalf("expected %q, got %v", expected, wrappedError)
	}
	if !errors.Is(wrappedError, baseError) {
		test.Fatalf("wrapped error must unwrap to its cause")
	}
	var operationError OperationError
	if !errors.As(wrappedError, &operationError) || operationError.Code() != codeName || operationError.Subject() != subjectName || operationError.Operation() != operationName {
		test.Fatalf("unexpected operation error %+v", operationError)
	}
}

func TestWrapErrorNil(test *testing.T) {
	test.Parallel()
	if WrapError(operationName, subjectName, codeName, nil) != nil {
		test.Fatalf("expected nil wrapped error")
	}
}

func TestIsRejection(test *testing.T) {
	test.Parallel()
	rejections := []error{
		fmt.Errorf("%w: detail", ErrInsufficientBalance),
		WrapError("store", "wallet", "missing", ErrWalletNotFound),
		ErrIdempotencyConflict,
	}
	for _, err := range rejections {
		if !IsRejection(err) {
			test.Fatalf("expected %v to be a rejection", err)
		}
	}
	for _, err := range []error{ErrConcurrentConflict, ErrDuplicateIdempotencyKey, errors.New("disk full"), nil} {
		if IsRejection(err) {
			test.Fatalf("expected %v not to be a rejection", err)
		}
	}
}
