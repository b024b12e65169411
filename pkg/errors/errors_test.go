package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidPath, "path does not exist: %s", "/tmp/missing")
	if err.Code != ErrCodeInvalidPath {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidPath)
	}
	if err.Message != "path does not exist: /tmp/missing" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Cause != nil {
		t.Errorf("Cause = %v, want nil", err.Cause)
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  New(ErrCodeConnection, "dial failed"),
			want: "CONNECTION_FAILED: dial failed",
		},
		{
			name: "with cause",
			err:  Wrap(ErrCodeAuth, fmt.Errorf("unauthorized"), "verify connectivity"),
			want: "AUTH_FAILED: verify connectivity: unauthorized",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCodeConnection, cause, "dial %s", "bolt://localhost")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error does not unwrap to cause")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q, missing cause text", err.Error())
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"matching code", New(ErrCodeAuth, "rejected"), ErrCodeAuth, true},
		{"mismatched code", New(ErrCodeAuth, "rejected"), ErrCodeConnection, false},
		{"wrapped in fmt", fmt.Errorf("outer: %w", New(ErrCodeScan, "bad file")), ErrCodeScan, true},
		{"plain error", fmt.Errorf("plain"), ErrCodeAuth, false},
		{"nil error", nil, ErrCodeAuth, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodePersistence, "x")); got != ErrCodePersistence {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodePersistence)
	}
	if got := GetCode(fmt.Errorf("plain")); got != Code("") {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeInvalidDepth, "save depth must be -1 or >= 0")
	if got := UserMessage(err); got != "save depth must be -1 or >= 0" {
		t.Errorf("UserMessage() = %q", got)
	}
	plain := fmt.Errorf("plain failure")
	if got := UserMessage(plain); got != "plain failure" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
}
