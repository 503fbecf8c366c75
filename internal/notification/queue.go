package notification

import (
	"sync"
	"time"

	"auction-console/internal/models"
	"auction-console/utils"

	"github.com/jonboulle/clockwork"
)

// DefaultTTL is how long a notification stays visible when no ttl is given.
const DefaultTTL = 3 * time.Second

type entry struct {
	note  models.Notification
	timer clockwork.Timer
}

// Queue holds the notifications currently visible to the operator.
type Queue struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	ttl     time.Duration
	entries []*entry
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock replaces the real clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(q *Queue) { q.clock = clock }
}

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(q *Queue) { q.ttl = ttl }
}

func NewQueue(opts ...Option) *Queue {
	q := &Queue{clock: clockwork.NewRealClock(), ttl: DefaultTTL}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Show enqueues message with the default ttl and returns its id.
func (q *Queue) Show(message string, severity models.Severity) string {
	return q.ShowFor(message, severity, q.ttl)
}

// ShowFor enqueues message and removes it after ttl. A ttl <= 0 keeps it until
// Dismiss is called.
func (q *Queue) ShowFor(message string, severity models.Severity, ttl time.Duration) string {
	if ttl < 0 {
		ttl = 0
	}
	e := &entry{note: models.Notification{
		ID:        utils.GenerateID(),
		Message:   message,
		Severity:  severity,
		TTLMs:     ttl.Milliseconds(),
		CreatedAt: q.clock.Now().UTC(),
	}}

	q.mu.Lock()
	defer q.mu.Unlock()

	id := e.note.ID
	if ttl > 0 {
		e.timer = q.clock.AfterFunc(ttl, func() { q.remove(id) })
	}
	q.entries = append(q.entries, e)

	utils.Debug("notification: shown", map[string]any{"id": id, "severity": severity, "ttl_ms": e.note.TTLMs})
	return id
}

// Dismiss removes a notification. Unknown or already-removed ids are ignored.
func (q *Queue) Dismiss(id string) {
	if e := q.remove(id); e != nil && e.timer != nil {
		e.timer.Stop()
	}
}

// List returns the visible notifications in insertion order.
func (q *Queue) List() []models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.Notification, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e.note)
	}
	return out
}

// Len returns the number of visible notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) remove(id string) *entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.note.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return e
		}
	}
	return nil
}
