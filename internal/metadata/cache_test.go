package metadata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemo_CachesValue(t *testing.T) {
	m := NewMemo[string]()
	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		return "value1", nil
	}

	for i := 0; i < 3; i++ {
		v, err := m.Do(context.Background(), "key1", fetch)
		require.NoError(t, err)
		assert.Equal(t, "value1", v)
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1), m.Misses())
	assert.Equal(t, int64(2), m.Hits())
	assert.Equal(t, 1, m.Len())
}

func TestMemo_CachesFailure(t *testing.T) {
	m := NewMemo[int]()
	boom := errors.New("boom")
	var calls atomic.Int32
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		return 0, boom
	}

	_, err := m.Do(context.Background(), "k", fetch)
	assert.ErrorIs(t, err, boom)
	_, err = m.Do(context.Background(), "k", fetch)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMemo_DoesNotCacheCancellation(t *testing.T) {
	m := NewMemo[int]()

	_, err := m.Do(context.Background(), "k", func(context.Context) (int, error) {
		return 0, context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Len())

	v, err := m.Do(context.Background(), "k", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestMemo_CollapsesConcurrentCalls(t *testing.T) {
	m := NewMemo[int]()
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make([]int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := m.Do(context.Background(), "shared", fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Let the goroutines pile up on the in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestMemo_WaiterCancelled(t *testing.T) {
	m := NewMemo[int]()
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_, _ = m.Do(context.Background(), "k", func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Do(ctx, "k", func(context.Context) (int, error) {
		t.Error("fetch must not run twice")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.Eventually(t, func() bool { return m.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemo_DistinctKeys(t *testing.T) {
	m := NewMemo[string]()
	for _, k := range []string{"a", "b", "c"} {
		k := k
		v, err := m.Do(context.Background(), k, func(context.Context) (string, error) { return k + k, nil })
		require.NoError(t, err)
		assert.Equal(t, k+k, v)
	}
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, int64(3), m.Misses())
}
