// Package ratelimit bounds and paces calls to a metadata provider.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config defines rate limit configuration.
type Config struct {
	// MaxConcurrent is the maximum number of calls in flight at once.
	// Excess calls queue rather than fail.
	MaxConcurrent int
	// RequestsPerSecond caps the call rate; zero disables the cap.
	RequestsPerSecond float64
	// Burst is the token bucket size when RequestsPerSecond is set.
	Burst int
	// MaxAttempts bounds how often a throttled call is tried in total.
	MaxAttempts int
	// BaseDelay is the first backoff delay; each retry doubles it.
	BaseDelay time.Duration
	// MaxDelay caps a single backoff delay.
	MaxDelay time.Duration
	// Retryable reports whether an error is a throttling signal worth
	// retrying. Other errors are returned immediately.
	Retryable func(error) bool
}

// DefaultConfig returns the default rate limit configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 4,
		MaxAttempts:   4,
		BaseDelay:     500 * time.Millisecond,
		MaxDelay:      8 * time.Second,
	}
}

// ExhaustedError is returned when a call was still throttled after
// MaxAttempts tries.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: still rate limited after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Stats counts limiter activity.
type Stats struct {
	Calls   int64 `json:"calls" yaml:"calls"`
	Retries int64 `json:"retries" yaml:"retries"`
}

// Limiter bounds concurrent provider calls, optionally paces them, and
// retries throttled calls with exponential backoff.
type Limiter struct {
	sem    *semaphore.Weighted
	pacer  *rate.Limiter
	config Config
	logger zerolog.Logger

	calls   atomic.Int64
	retries atomic.Int64
}

// NewLimiter creates a new rate limiter.
func NewLimiter(config Config, logger zerolog.Logger) *Limiter {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultConfig().BaseDelay
	}
	if config.MaxDelay < config.BaseDelay {
		config.MaxDelay = config.BaseDelay
	}

	l := &Limiter{
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrent)),
		config: config,
		logger: logger.With().Str("component", "rate-limiter").Logger(),
	}
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		l.pacer = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}
	return l
}

// Do runs fn under the concurrency cap. Waiting for a slot, for the pacer and
// for a backoff delay all honor ctx; once fn has started it runs to completion
// with a context that is not cancelled together with ctx.
func (l *Limiter) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	b := l.backoff()
	for attempt := 1; ; attempt++ {
		err := l.once(ctx, fn)
		if err == nil || !l.retryable(err) {
			return err
		}

		delay, stop := b.Next()
		if stop {
			l.logger.Warn().
				Str("op", op).
				Int("attempts", attempt).
				Msg("Rate limit retries exhausted")
			return &ExhaustedError{Op: op, Attempts: attempt, Err: err}
		}

		l.retries.Add(1)
		l.logger.Debug().
			Str("op", op).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Rate limited, backing off")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Limiter) once(ctx context.Context, fn func(context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)

	if l.pacer != nil {
		if err := l.pacer.Wait(ctx); err != nil {
			return err
		}
	}

	l.calls.Add(1)
	return fn(context.WithoutCancel(ctx))
}

func (l *Limiter) backoff() retry.Backoff {
	b := retry.NewExponential(l.config.BaseDelay)
	b = retry.WithCappedDuration(l.config.MaxDelay, b)
	return retry.WithMaxRetries(uint64(l.config.MaxAttempts-1), b)
}

func (l *Limiter) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return l.config.Retryable != nil && l.config.Retryable(err)
}

// Stats returns the number of calls made and retries scheduled so far.
func (l *Limiter) Stats() Stats {
	return Stats{Calls: l.calls.Load(), Retries: l.retries.Load()}
}
