package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vnykmshr/admit/internal/testutil"
)

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrClosed", ErrClosed, "resource is closed"},
		{"ErrTimeout", ErrTimeout, "operation timed out"},
		{"ErrCapacityExceeded", ErrCapacityExceeded, "capacity exceeded"},
		{"ErrInvalidConfiguration", ErrInvalidConfiguration, "invalid configuration"},
		{"ErrRateLimited", ErrRateLimited, "rate limited"},
		{"ErrContractViolation", ErrContractViolation, "contract violation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, tt.err.Error(), tt.want)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "without hint",
			err:  &ValidationError{Module: "guard", Field: "budget", Value: -1, Reason: "must be positive"},
			want: "guard: invalid budget=-1 (must be positive)",
		},
		{
			name: "with hint",
			err: &ValidationError{
				Module: "guard",
				Field:  "budget",
				Value:  0,
				Reason: "must be positive",
				Hint:   "use a value greater than 0",
			},
			want: "guard: invalid budget=0 (must be positive) - use a value greater than 0",
		},
		{
			name: "string value",
			err:  &ValidationError{Module: "guard", Field: "key", Value: "", Reason: "cannot be empty"},
			want: "guard: invalid key= (cannot be empty)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, tt.err.Error(), tt.want)
		})
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	verr := NewValidationError("config", "resources", 0, "test")

	if !errors.Is(verr, ErrInvalidConfiguration) {
		t.Error("ValidationError should wrap ErrInvalidConfiguration")
	}
	if !errors.Is(fmt.Errorf("loading: %w", verr), ErrInvalidConfiguration) {
		t.Error("wrapped ValidationError should still match ErrInvalidConfiguration")
	}
}

func TestValidationError_WithHint(t *testing.T) {
	err := NewValidationError("guard", "budget", 0, "invalid").
		WithHint("try using a positive value")

	testutil.AssertEqual(t, err.Hint, "try using a positive value")
	testutil.AssertEqual(t, err.WithHint("new hint"), err)
}

func TestOperationError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewOperationError("report", "Write", cause)

	if got, want := err.Error(), "report.Write failed: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("OperationError should wrap the cause error")
	}

	err.WithContext("sink redis")
	if got, want := err.Error(), "report.Write failed: connection refused (sink redis)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestClassifiers(t *testing.T) {
	verr := NewValidationError("guard", "budget", 0, "must be positive")

	tests := []struct {
		name       string
		err        error
		retryable  bool
		temporary  bool
		validation bool
		violation  bool
	}{
		{"timeout", ErrTimeout, true, true, false, false},
		{"rate limited", ErrRateLimited, true, false, false, false},
		{"capacity exceeded", ErrCapacityExceeded, false, true, false, false},
		{"closed", ErrClosed, false, false, false, false},
		{"validation", verr, false, false, true, false},
		{"wrapped validation", &OperationError{Cause: verr}, false, false, true, false},
		{"violation", fmt.Errorf("exit orders: %w", ErrContractViolation), false, false, false, true},
		{"wrapped rate limited", &OperationError{Cause: ErrRateLimited}, true, false, false, false},
		{"random", errors.New("random"), false, false, false, false},
		{"nil", nil, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
			if got := IsTemporary(tt.err); got != tt.temporary {
				t.Errorf("IsTemporary() = %v, want %v", got, tt.temporary)
			}
			if got := IsValidationError(tt.err); got != tt.validation {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.validation)
			}
			if got := IsContractViolation(tt.err); got != tt.violation {
				t.Errorf("IsContractViolation() = %v, want %v", got, tt.violation)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	err := NewValidationError("mymodule", "myfield", 42, "must be less than 10").
		WithHint("use a value between 0 and 10")

	msg := err.Error()
	for _, part := range []string{"mymodule", "myfield", "42", "must be less than 10", "use a value between 0 and 10"} {
		if !strings.Contains(msg, part) {
			t.Errorf("error message should contain %q, got %q", part, msg)
		}
	}
}
