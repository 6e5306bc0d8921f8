package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errThrottled = errors.New("throttled")

func testConfig() Config {
	return Config{
		MaxConcurrent: 2,
		MaxAttempts:   3,
		BaseDelay:     time.Millisecond,
		MaxDelay:      4 * time.Millisecond,
		Retryable:     func(err error) bool { return errors.Is(err, errThrottled) },
	}
}

func TestLimiter_CapsConcurrency(t *testing.T) {
	l := NewLimiter(testConfig(), zerolog.Nop())

	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(context.Background(), "call", func(context.Context) error {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int64(10), l.Stats().Calls)
}

func TestLimiter_RetriesThrottledCalls(t *testing.T) {
	l := NewLimiter(testConfig(), zerolog.Nop())

	attempts := 0
	err := l.Do(context.Background(), "call", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errThrottled
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, int64(2), l.Stats().Retries)
}

func TestLimiter_ExhaustsAfterMaxAttempts(t *testing.T) {
	l := NewLimiter(testConfig(), zerolog.Nop())

	attempts := 0
	err := l.Do(context.Background(), "search", func(context.Context) error {
		attempts++
		return errThrottled
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "search", exhausted.Op)
	assert.ErrorIs(t, err, errThrottled)
	assert.Equal(t, 3, attempts)
}

func TestLimiter_OtherErrorsAreNotRetried(t *testing.T) {
	l := NewLimiter(testConfig(), zerolog.Nop())
	boom := errors.New("boom")

	attempts := 0
	err := l.Do(context.Background(), "call", func(context.Context) error {
		attempts++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestLimiter_CancelledWhileBackingOff(t *testing.T) {
	cfg := testConfig()
	cfg.BaseDelay = time.Hour
	cfg.MaxDelay = time.Hour
	l := NewLimiter(cfg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	err := l.Do(ctx, "call", func(context.Context) error {
		cancel()
		return errThrottled
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestLimiter_InFlightCallSurvivesCancellation(t *testing.T) {
	l := NewLimiter(testConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	var callErr error
	err := l.Do(ctx, "call", func(callCtx context.Context) error {
		cancel()
		callErr = callCtx.Err()
		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, callErr)
}

func TestLimiter_QueuedCallAbortsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	l := NewLimiter(cfg, zerolog.Nop())

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = l.Do(context.Background(), "holder", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ran := false
	err := l.Do(ctx, "queued", func(context.Context) error {
		ran = true
		return nil
	})
	close(release)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
}

func TestLimiter_Pacing(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerSecond = 100
	cfg.Burst = 1
	l := NewLimiter(cfg, zerolog.Nop())

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Do(context.Background(), "call", func(context.Context) error { return nil }))
	}

	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}
