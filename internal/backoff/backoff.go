// Package backoff centralizes the retry policy used for oracle traffic.
package backoff

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy describes how an operation is retried: capped exponential backoff
// with jitter, bounded by a total attempt count.
type Policy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterPercent uint64
}

// DefaultPolicy matches the pipeline defaults: three attempts starting at
// 500ms, capped at 8s, with 10% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		BaseDelay:     500 * time.Millisecond,
		MaxDelay:      8 * time.Second,
		JitterPercent: 10,
	}
}

// Retry runs op until it succeeds, returns a terminal error, or the policy
// is exhausted. Mark recoverable failures with Retryable.
func (p Policy) Retry(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		// NewExponential panics on a non-positive base.
		base = DefaultPolicy().BaseDelay
	}

	b := retry.NewExponential(base)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	if p.JitterPercent > 0 {
		b = retry.WithJitterPercent(p.JitterPercent, b)
	}
	b = retry.WithMaxRetries(uint64(attempts-1), b)

	return retry.Do(ctx, b, op)
}

// Retryable marks err as recoverable so Retry will attempt it again.
func Retryable(err error) error {
	return retry.RetryableError(err)
}
