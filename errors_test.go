package gopixel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestClientError(t *testing.T) {
	err := &ClientError{
		Type:    ErrorTypeTransport,
		Message: "request failed",
	}
	if err.Error() != "Transport: request failed" {
		t.Errorf("Unexpected message %q", err.Error())
	}

	err.Cause = errors.New("connection refused")
	err.RequestID = "req-1"
	err.Attempt = 2
	want := "[req-1] Transport: request failed (connection refused) (attempt 2)"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestClientErrorNil(t *testing.T) {
	var err *ClientError
	if err.Error() != "<nil>" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Error("Expected nil cause")
	}
	if err.Is(ErrTransport) {
		t.Error("A nil error matches nothing")
	}
}

func TestClientErrorIs(t *testing.T) {
	tests := []struct {
		errorType string
		sentinel  error
	}{
		{ErrorTypeTransport, ErrTransport},
		{ErrorTypeDecode, ErrDecode},
		{ErrorTypeValidation, ErrInvalidConfig},
		{ErrorTypeEmptyPool, ErrEmptyKeyPool},
		{ErrorTypeLookup, ErrPlayerNotFound},
		{ErrorTypeNoClient, ErrNoClientBound},
		{ErrorTypeRetryLimit, ErrRetryLimitExceeded},
		{ErrorTypeCanceled, ErrCanceled},
	}

	for _, tt := range tests {
		err := fmt.Errorf("wrapped: %w", newError(tt.errorType, "msg", nil))
		if !errors.Is(err, tt.sentinel) {
			t.Errorf("%s: expected to match %v", tt.errorType, tt.sentinel)
		}
		if errors.Is(err, ErrTransport) != (tt.sentinel == ErrTransport) {
			t.Errorf("%s: unexpected match with ErrTransport", tt.errorType)
		}
		if !errors.Is(err, &ClientError{Type: tt.errorType}) {
			t.Errorf("%s: expected to match a ClientError of the same type", tt.errorType)
		}
	}
}

func TestClientErrorUnwrap(t *testing.T) {
	err := newError(ErrorTypeCanceled, "gave up", context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("Expected the cause to be reachable")
	}
	if err.KeyIndex != -1 {
		t.Errorf("Expected KeyIndex -1 before a pool stamps it, got %d", err.KeyIndex)
	}
	if err.Timestamp.IsZero() {
		t.Error("Expected a timestamp")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), false},
		{"connection", &ClientError{Type: ErrorTypeTransport}, true},
		{"429", &ClientError{Type: ErrorTypeTransport, StatusCode: 429}, true},
		{"503", &ClientError{Type: ErrorTypeTransport, StatusCode: 503}, true},
		{"403", &ClientError{Type: ErrorTypeTransport, StatusCode: 403}, false},
		{"decode", &ClientError{Type: ErrorTypeDecode}, false},
		{"validation", &ClientError{Type: ErrorTypeValidation}, false},
	}

	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestClientErrorDebugInfo(t *testing.T) {
	err := &ClientError{
		Type:       ErrorTypeTransport,
		Message:    "request failed",
		RequestID:  "req-1",
		Action:     "player",
		URL:        "https://api.example.test/player?key=REDACTED",
		StatusCode: 502,
		KeyIndex:   1,
		Attempt:    3,
		Timestamp:  time.Now(),
		Duration:   time.Second,
		Cause:      errors.New("bad gateway"),
	}

	info := err.DebugInfo()
	for _, want := range []string{
		"Error Type: Transport",
		"Request ID: req-1",
		"Action: player",
		"key=REDACTED",
		"Status Code: 502",
		"Attempt: 3 (key 1)",
		"Cause: bad gateway",
	} {
		if !strings.Contains(info, want) {
			t.Errorf("Expected %q in debug info:\n%s", want, info)
		}
	}

	var nilErr *ClientError
	if nilErr.DebugInfo() != "Error: <nil>" {
		t.Error("Unexpected debug info for nil error")
	}
}
