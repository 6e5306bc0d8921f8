package metadata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

type memoEntry[V any] struct {
	value V
	err   error
}

// Memo memoizes lookups by key for the lifetime of one batch run.
// Concurrent requests for a key collapse into a single fetch and every
// waiter receives the same result, success or failure. Results caused by
// cancellation are not remembered.
type Memo[V any] struct {
	mu    sync.RWMutex
	items map[string]memoEntry[V]
	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemo creates an empty memo.
func NewMemo[V any]() *Memo[V] {
	return &Memo[V]{items: make(map[string]memoEntry[V])}
}

// Do returns the memoized result for key, calling fetch at most once per key
// across all concurrent and later callers. A caller whose ctx ends while it
// waits on another caller's fetch returns ctx.Err(); the fetch itself
// continues for the remaining waiters.
func (m *Memo[V]) Do(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, error) {
	for {
		if e, ok := m.get(key); ok {
			m.hits.Add(1)
			return e.value, e.err
		}

		var fetched bool
		ch := m.group.DoChan(key, func() (interface{}, error) {
			// A previous flight may have finished between get and DoChan.
			if e, ok := m.get(key); ok {
				return e, nil
			}
			fetched = true
			m.misses.Add(1)

			v, err := fetch(ctx)
			e := memoEntry[V]{value: v, err: err}
			if !isContextErr(err) {
				m.mu.Lock()
				m.items[key] = e
				m.mu.Unlock()
			}
			return e, nil
		})

		select {
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		case res := <-ch:
			e := res.Val.(memoEntry[V])
			// The flight was started by a caller that has since been
			// cancelled; try again on our own behalf.
			if !fetched && isContextErr(e.err) && ctx.Err() == nil {
				continue
			}
			if !fetched {
				m.hits.Add(1)
			}
			return e.value, e.err
		}
	}
}

func (m *Memo[V]) get(key string) (memoEntry[V], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[key]
	return e, ok
}

// Len returns the number of remembered keys.
func (m *Memo[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Hits returns how many lookups were answered without calling fetch.
func (m *Memo[V]) Hits() int64 {
	return m.hits.Load()
}

// Misses returns how many times fetch was called.
func (m *Memo[V]) Misses() int64 {
	return m.misses.Load()
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
