package testutil

import (
	"errors"
	"testing"

	apperrors "triptribe/internal/errors"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertBalancesSum fails the test unless the balances sum to exactly zero.
func AssertBalancesSum(t *testing.T, balances map[string]int64) {
	t.Helper()

	var sum int64
	for _, b := range balances {
		sum += b
	}
	if sum != 0 {
		t.Errorf("expected balances to sum to zero, got %d (%v)", sum, balances)
	}
}
