// Package progress tracks long-running batch activities (resolving a batch,
// applying a plan) and publishes their progress to a sink.
package progress

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ActivityType identifies the type of activity being tracked.
type ActivityType string

const (
	ActivityTypeResolve ActivityType = "resolve"
	ActivityTypeApply   ActivityType = "apply"
	ActivityTypeUndo    ActivityType = "undo"
)

// Status represents the current state of an activity.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Activity is a trackable unit of work over Total items.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	Subtitle    string       `json:"subtitle"`
	Done        int          `json:"done"`
	Total       int          `json:"total"`
	Status      Status       `json:"status"`
	StartedAt   time.Time    `json:"startedAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// Percent returns completion in [0,100], or -1 when the total is unknown.
func (a Activity) Percent() int {
	if a.Total <= 0 {
		return -1
	}
	return a.Done * 100 / a.Total
}

// EventType identifies the type of progress event.
type EventType string

const (
	EventTypeStarted   EventType = "progress:started"
	EventTypeUpdate    EventType = "progress:update"
	EventTypeCompleted EventType = "progress:completed"
	EventTypeError     EventType = "progress:error"
	EventTypeCancelled EventType = "progress:cancelled"
)

// Sink receives progress events. Publish is called with the manager's lock
// held and must not call back into the manager.
type Sink interface {
	Publish(eventType EventType, activity Activity)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(eventType EventType, activity Activity)

func (f SinkFunc) Publish(eventType EventType, activity Activity) {
	f(eventType, activity)
}

// Manager tracks and publishes progress for all activities. A nil *Manager
// is valid and discards everything.
type Manager struct {
	sink       Sink
	activities map[string]*Activity
	mu         sync.Mutex
	logger     zerolog.Logger
	now        func() time.Time
}

// NewManager creates a new progress manager.
func NewManager(sink Sink, logger zerolog.Logger) *Manager {
	return &Manager{
		sink:       sink,
		activities: make(map[string]*Activity),
		logger:     logger.With().Str("component", "progress").Logger(),
		now:        time.Now,
	}
}

// Start begins tracking a new activity over total items.
func (m *Manager) Start(id string, activityType ActivityType, title string, total int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	activity := &Activity{
		ID:        id,
		Type:      activityType,
		Title:     title,
		Subtitle:  "Starting",
		Total:     total,
		Status:    StatusInProgress,
		StartedAt: m.now(),
	}
	m.activities[id] = activity
	m.publish(EventTypeStarted, activity)

	m.logger.Debug().
		Str("id", id).
		Str("type", string(activityType)).
		Int("total", total).
		Msg("Activity started")
}

// Advance records one more finished item. It is safe to call from
// concurrent workers.
func (m *Manager) Advance(id, subtitle string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	activity, ok := m.activities[id]
	if !ok {
		return
	}
	activity.Done++
	activity.Subtitle = subtitle
	m.publish(EventTypeUpdate, activity)
}

// Complete marks an activity finished and stops tracking it.
func (m *Manager) Complete(id, subtitle string) {
	m.finish(id, StatusCompleted, EventTypeCompleted, subtitle)
}

// Fail marks an activity failed and stops tracking it.
func (m *Manager) Fail(id, errorMsg string) {
	m.finish(id, StatusFailed, EventTypeError, errorMsg)
}

// Cancel marks an activity cancelled and stops tracking it.
func (m *Manager) Cancel(id string) {
	m.finish(id, StatusCancelled, EventTypeCancelled, "Cancelled")
}

func (m *Manager) finish(id string, status Status, event EventType, subtitle string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	activity, ok := m.activities[id]
	if !ok {
		return
	}
	now := m.now()
	activity.Status = status
	activity.Subtitle = subtitle
	activity.CompletedAt = &now
	m.publish(event, activity)
	delete(m.activities, id)

	m.logger.Debug().
		Str("id", id).
		Str("status", string(status)).
		Int("done", activity.Done).
		Dur("elapsed", now.Sub(activity.StartedAt)).
		Msg("Activity finished")
}

// Get returns a copy of an active activity.
func (m *Manager) Get(id string) (Activity, bool) {
	if m == nil {
		return Activity{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok {
		return Activity{}, false
	}
	return *a, true
}

func (m *Manager) publish(eventType EventType, activity *Activity) {
	if m.sink == nil {
		return
	}
	m.sink.Publish(eventType, *activity)
}

// LogSink publishes progress as log lines.
func LogSink(logger zerolog.Logger) Sink {
	return SinkFunc(func(eventType EventType, a Activity) {
		evt := logger.Info()
		if eventType == EventTypeUpdate {
			evt = logger.Debug()
		}
		evt.Str("activity", string(a.Type)).
			Str("event", string(eventType)).
			Int("done", a.Done).
			Int("total", a.Total).
			Str("status", string(a.Status)).
			Msg(a.Subtitle)
	})
}
