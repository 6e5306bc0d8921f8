package progress

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []EventType
	last   Activity
}

func (s *recordingSink) Publish(eventType EventType, a Activity) {
	s.events = append(s.events, eventType)
	s.last = a
}

func TestManager_Lifecycle(t *testing.T) {
	sink := &recordingSink{}
	m := NewManager(sink, zerolog.Nop())

	m.Start("batch", ActivityTypeResolve, "Resolving", 3)
	m.Advance("batch", "a.mkv")
	m.Advance("batch", "b.mkv")

	a, ok := m.Get("batch")
	require.True(t, ok)
	assert.Equal(t, 2, a.Done)
	assert.Equal(t, 66, a.Percent())

	m.Complete("batch", "done")
	_, ok = m.Get("batch")
	assert.False(t, ok)

	assert.Equal(t, []EventType{EventTypeStarted, EventTypeUpdate, EventTypeUpdate, EventTypeCompleted}, sink.events)
	assert.Equal(t, StatusCompleted, sink.last.Status)
	assert.NotNil(t, sink.last.CompletedAt)

	// Unknown ids are ignored.
	m.Advance("batch", "late")
	assert.Len(t, sink.events, 4)
}

func TestManager_FailAndCancel(t *testing.T) {
	sink := &recordingSink{}
	m := NewManager(sink, zerolog.Nop())

	m.Start("a", ActivityTypeApply, "Applying", 1)
	m.Fail("a", "boom")
	assert.Equal(t, StatusFailed, sink.last.Status)
	assert.Equal(t, "boom", sink.last.Subtitle)

	m.Start("b", ActivityTypeUndo, "Undoing", 0)
	m.Cancel("b")
	assert.Equal(t, StatusCancelled, sink.last.Status)
	assert.Equal(t, -1, sink.last.Percent())
}

func TestManager_ConcurrentAdvance(t *testing.T) {
	var mu sync.Mutex
	count := 0
	m := NewManager(SinkFunc(func(e EventType, _ Activity) {
		if e == EventTypeUpdate {
			mu.Lock()
			count++
			mu.Unlock()
		}
	}), zerolog.Nop())

	m.Start("x", ActivityTypeResolve, "Resolving", 50)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Advance("x", "file")
		}()
	}
	wg.Wait()

	a, _ := m.Get("x")
	assert.Equal(t, 50, a.Done)
	assert.Equal(t, 50, count)
}

func TestManager_Nil(t *testing.T) {
	var m *Manager
	m.Start("x", ActivityTypeApply, "t", 1)
	m.Advance("x", "y")
	m.Complete("x", "z")
	_, ok := m.Get("x")
	assert.False(t, ok)
}
