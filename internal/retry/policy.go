package retry

import (
	"context"
	"time"

	"git.home.luguber.info/inful/skelbuilder/internal/config"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

// Policy decides whether and when a failed build attempt runs again.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // retries after the first failed attempt
}

// DefaultPolicy returns exponential backoff, 500ms initial, 10s cap and 2
// retries (three attempts in total).
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffExponential, Initial: 500 * time.Millisecond, Max: 10 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy from raw settings. Zero or unknown values keep
// the default and initial is clamped to max.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// FromConfig builds the pipeline policy from the build section.
func FromConfig(b config.BuildConfig) Policy {
	return NewPolicy(b.RetryBackoff, b.RetryInitialDelay.Duration(), b.RetryMaxDelay.Duration(), b.MaxRetries)
}

// Attempts is the total number of attempts including the first.
func (p Policy) Attempts() int {
	return p.MaxRetries + 1
}

// Delay returns the backoff delay for the given retry number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		d := p.Initial
		for i := 1; i < retryCount; i++ {
			d *= 2
			if d >= p.Max {
				return p.Max
			}
		}
		return min(d, p.Max)
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		return min(d, p.Max)
	}
}

// ShouldRetry reports whether another attempt is allowed after err was
// returned by attempt number retryCount+1. Only errors classified as
// transient are retried.
func (p Policy) ShouldRetry(err error, retryCount int) bool {
	if err == nil || retryCount >= p.MaxRetries {
		return false
	}
	return errors.CanRetry(err)
}

// Wait blocks for the delay of the given retry number or until ctx is done.
func (p Policy) Wait(ctx context.Context, retryCount int) error {
	d := p.Delay(retryCount)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
