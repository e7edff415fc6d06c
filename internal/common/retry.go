package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/chainwatch/internal/service"
)

var (
	// ErrRateLimit indicates that the service asked us to slow down.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError marks a transport failure as worth another attempt.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// backoff yields successive delays for one retry loop.
type backoff struct {
	next       time.Duration
	max        time.Duration
	multiplier float64
}

func newBackoff(opts service.RetryOptions) (*backoff, int) {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	b := &backoff{next: opts.InitialDelay, max: opts.MaxDelay, multiplier: opts.Multiplier}
	if b.next <= 0 {
		b.next = 100 * time.Millisecond
	}
	if b.max <= 0 {
		b.max = 30 * time.Second
	}
	if b.multiplier <= 0 {
		b.multiplier = 2
	}
	return b, attempts
}

// delay returns the wait before the next attempt. A rate-limited service
// gets the longest wait straight away.
func (b *backoff) delay(err error) time.Duration {
	if errors.Is(err, ErrRateLimit) {
		return b.max
	}
	d := b.next
	b.next = min(time.Duration(float64(b.next)*b.multiplier), b.max)
	return d
}

// Retry calls fetch until it succeeds, returns a non-retryable error, or
// runs out of attempts. Only idempotent requests should be retried.
func Retry[T any](ctx context.Context, fetch func(context.Context) (T, error), opts service.RetryOptions) (T, error) {
	var zero T
	b, attempts := newBackoff(opts)

	for attempt := 1; ; attempt++ {
		v, err := fetch(ctx)
		if err == nil {
			return v, nil
		}
		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == attempts {
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempts, err)
		}

		wait := b.delay(err)
		slog.Warn("Request failed, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", wait,
			"error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// WithRetry is Retry for operations without a result.
func WithRetry(ctx context.Context, op func(context.Context) error, opts service.RetryOptions) error {
	_, err := Retry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts)
	return err
}
