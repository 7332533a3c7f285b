package gopixel

import "time"

// RetryPolicy decides what a MultiKeyClient does after a throttled
// response. attempt counts the throttled attempts so far, starting at 1.
// Returning false stops the call with ErrRetryLimitExceeded.
type RetryPolicy interface {
	ShouldRetry(resp Response, attempt int) (time.Duration, bool)
}

// FixedDelayPolicy waits the same Delay after every throttle. A zero
// MaxAttempts retries without limit.
type FixedDelayPolicy struct {
	Delay       time.Duration
	MaxAttempts int
}

// NewFixedDelayPolicy creates the default throttle policy.
func NewFixedDelayPolicy(delay time.Duration, maxAttempts int) *FixedDelayPolicy {
	if delay < 0 {
		delay = 0
	}
	return &FixedDelayPolicy{Delay: delay, MaxAttempts: maxAttempts}
}

// ShouldRetry implements the RetryPolicy interface.
func (p *FixedDelayPolicy) ShouldRetry(_ Response, attempt int) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return 0, false
	}
	return p.Delay, true
}

// RetryPolicyFunc adapts a function to RetryPolicy.
type RetryPolicyFunc func(resp Response, attempt int) (time.Duration, bool)

// ShouldRetry implements the RetryPolicy interface.
func (f RetryPolicyFunc) ShouldRetry(resp Response, attempt int) (time.Duration, bool) {
	return f(resp, attempt)
}
