// Package retry computes backoff delays for transient failures and runs
// operations under a retry policy. The external link checker is its only
// caller today.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoffMode
	Initial    time.Duration
	Max        time.Duration
	MaxRetries int // attempts after the first failure
}

// DefaultPolicy returns exponential backoff from 500ms capped at 5s with two retries.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffExponential, Initial: 500 * time.Millisecond, Max: 5 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy from raw config fields; zero or unknown values
// keep the defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDelay time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	}
	if m := config.NormalizeRetryBackoff(string(mode)); m != "" {
		p.Mode = m
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// FromLinkCheck builds the policy used for external link checks.
func FromLinkCheck(lc config.LinkCheckConfig) Policy {
	_, initial, maxDelay := lc.Durations()
	return NewPolicy(lc.RetryBackoff, initial, maxDelay, lc.MaxRetries)
}

// Delay returns the backoff delay for the given retry (1-based).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffLinear:
		d = time.Duration(retryCount) * p.Initial
	default:
		shift := min(retryCount-1, 30)
		d = p.Initial * (1 << shift)
	}
	if d > p.Max || d <= 0 {
		return p.Max
	}
	return d
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// Retryable reports whether err may succeed on another attempt. Classified
// errors decide through their retry strategy and cancellation never
// retries; anything else is treated as transient.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if classified, ok := foundation.AsClassified(err); ok {
		return classified.CanRetry()
	}
	return true
}

// Do runs op until it succeeds, returns an error retryable rejects, or the
// policy's retries are exhausted. The last error is returned. A nil
// retryable means Retryable.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, op func(ctx context.Context) error) error {
	if retryable == nil {
		retryable = Retryable
	}
	var err error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.Delay(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || !retryable(err) {
			return err
		}
	}
}
