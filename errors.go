package gopixel

import (
	"errors"
	"fmt"
	"time"
)

// Error types carried by ClientError.Type.
const (
	ErrorTypeTransport  = "Transport"
	ErrorTypeDecode     = "Decode"
	ErrorTypeValidation = "Validation"
	ErrorTypeEmptyPool  = "EmptyPool"
	ErrorTypeLookup     = "Lookup"
	ErrorTypeNoClient   = "NoClient"
	ErrorTypeRetryLimit = "RetryLimit"
	ErrorTypeCanceled   = "Canceled"
)

// Sentinel errors for common failure scenarios. A *ClientError matches the
// sentinel of its Type under errors.Is.
var (
	// ErrTransport is returned when the request could not be sent or the
	// service answered with a non-2xx status.
	ErrTransport = errors.New("gopixel: transport failure")

	// ErrDecode is returned when the response body is not a JSON object.
	ErrDecode = errors.New("gopixel: invalid response body")

	// ErrInvalidConfig is returned when construction parameters are invalid.
	ErrInvalidConfig = errors.New("gopixel: invalid configuration")

	// ErrEmptyKeyPool is returned when a MultiKeyClient is built without keys.
	ErrEmptyKeyPool = errors.New("gopixel: key pool is empty")

	// ErrPlayerNotFound is returned when the identity lookup knows no such name.
	ErrPlayerNotFound = errors.New("gopixel: player not found")

	// ErrNoClientBound is returned by strict players that have no API to call.
	ErrNoClientBound = errors.New("gopixel: no client bound to player")

	// ErrRetryLimitExceeded is returned when a bounded retry policy gives up
	// while every attempt was throttled.
	ErrRetryLimitExceeded = errors.New("gopixel: retry limit exceeded")

	// ErrCanceled is returned when the context ends while waiting to retry.
	ErrCanceled = errors.New("gopixel: canceled")
)

var sentinels = map[string]error{
	ErrorTypeTransport:  ErrTransport,
	ErrorTypeDecode:     ErrDecode,
	ErrorTypeValidation: ErrInvalidConfig,
	ErrorTypeEmptyPool:  ErrEmptyKeyPool,
	ErrorTypeLookup:     ErrPlayerNotFound,
	ErrorTypeNoClient:   ErrNoClientBound,
	ErrorTypeRetryLimit: ErrRetryLimitExceeded,
	ErrorTypeCanceled:   ErrCanceled,
}

// ClientError describes a failed call with enough context to debug it.
// URL never contains the key value.
type ClientError struct {
	Type       string
	Message    string
	Cause      error
	RequestID  string
	Action     string
	URL        string
	StatusCode int
	KeyIndex   int
	Attempt    int
	Timestamp  time.Time
	Duration   time.Duration
}

// IsRetryable reports whether err is a transport failure worth retrying
// later: no response at all, a 429 or a 5xx.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	if clientErr.Type != ErrorTypeTransport {
		return false
	}
	return clientErr.StatusCode == 0 || clientErr.StatusCode == 429 || clientErr.StatusCode >= 500
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d)", msg, e.Attempt)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another *ClientError of the same Type or the sentinel for Type.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	sentinel, ok := sentinels[e.Type]
	return ok && sentinel == target
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *ClientError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Action != "" {
		info += fmt.Sprintf("Action: %s\n", e.Action)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if e.Attempt > 0 {
		info += fmt.Sprintf("Attempt: %d (key %d)\n", e.Attempt, e.KeyIndex)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

func newError(errorType, message string, cause error) *ClientError {
	return &ClientError{
		Type:      errorType,
		Message:   message,
		Cause:     cause,
		KeyIndex:  -1,
		Timestamp: time.Now(),
	}
}
