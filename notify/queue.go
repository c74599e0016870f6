// Package notify implements the process-wide queue of transient user-facing
// messages (toasts). Every message expires on its own after a fixed duration
// unless it is dismissed first.
package notify

import (
	"sync"
	"time"
)

// DefaultDuration is how long a toast stays visible.
const DefaultDuration = 5 * time.Second

// Severity classifies a toast.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Toast is one transient message. ID is the creation instant in Unix
// milliseconds; two toasts created in the same millisecond share an ID.
type Toast struct {
	ID        int64
	Severity  Severity
	Message   string
	CreatedAt time.Time
}

// EventKind tells listeners what happened to a toast.
type EventKind int

const (
	EventAdded EventKind = iota
	EventRemoved
)

// Event is delivered to listeners after the queue changed.
type Event struct {
	Kind  EventKind
	Toast Toast
}

// Listener observes queue changes. It is called without the queue lock held.
type Listener func(Event)

// Queue is an insertion-ordered set of toasts. It is safe for concurrent use.
type Queue struct {
	mu        sync.Mutex
	toasts    []Toast
	timers    map[int64][]*time.Timer
	duration  time.Duration
	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer
	listeners []Listener
	closed    bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithDuration sets how long each toast is displayed. Zero or negative
// disables auto-expiry.
func WithDuration(d time.Duration) Option {
	return func(q *Queue) {
		q.duration = d
	}
}

// WithClock overrides the clock used to stamp toast IDs.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// WithListener registers a listener for added and removed toasts.
func WithListener(l Listener) Option {
	return func(q *Queue) {
		q.listeners = append(q.listeners, l)
	}
}

// New creates an empty queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		timers:    make(map[int64][]*time.Timer),
		duration:  DefaultDuration,
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push appends a toast and schedules its expiry.
func (q *Queue) Push(severity Severity, message string) Toast {
	created := q.now()
	t := Toast{
		ID:        created.UnixMilli(),
		Severity:  severity,
		Message:   message,
		CreatedAt: created,
	}

	q.mu.Lock()
	q.toasts = append(q.toasts, t)
	if q.duration > 0 && !q.closed {
		id := t.ID
		timer := q.afterFunc(q.duration, func() { q.Dismiss(id) })
		q.timers[id] = append(q.timers[id], timer)
	}
	listeners := q.listeners
	q.mu.Unlock()

	notifyAll(listeners, Event{Kind: EventAdded, Toast: t})
	return t
}

// Success pushes a success toast.
func (q *Queue) Success(message string) {
	q.Push(SeveritySuccess, message)
}

// Error pushes an error toast.
func (q *Queue) Error(message string) {
	q.Push(SeverityError, message)
}

// Info pushes an informational toast.
func (q *Queue) Info(message string) {
	q.Push(SeverityInfo, message)
}

// Dismiss removes every toast with the given id. Dismissing an id that is no
// longer queued is a no-op.
func (q *Queue) Dismiss(id int64) {
	q.mu.Lock()
	var removed []Toast
	kept := q.toasts[:0]
	for _, t := range q.toasts {
		if t.ID == id {
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}
	q.toasts = kept
	for _, timer := range q.timers[id] {
		timer.Stop()
	}
	delete(q.timers, id)
	listeners := q.listeners
	q.mu.Unlock()

	for _, t := range removed {
		notifyAll(listeners, Event{Kind: EventRemoved, Toast: t})
	}
}

// Messages returns the visible toasts in insertion order.
func (q *Queue) Messages() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Toast, len(q.toasts))
	copy(out, q.toasts)
	return out
}

// Len returns the number of visible toasts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.toasts)
}

// Close stops all pending expiry timers. Toasts already queued stay visible
// and later pushes no longer expire.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, timers := range q.timers {
		for _, timer := range timers {
			timer.Stop()
		}
		delete(q.timers, id)
	}
	q.closed = true
}

func notifyAll(listeners []Listener, ev Event) {
	for _, l := range listeners {
		l(ev)
	}
}
