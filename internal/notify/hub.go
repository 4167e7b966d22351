// Package notify is the in-process notification channel. Components publish
// short messages for a visitor (the audience); pages and websocket streams
// subscribe to them. A notification may carry actions whose continuations run
// when the visitor picks one, which is how confirmations are expressed.
package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Default display durations.
const (
	DefaultDuration = 3 * time.Second
	ErrorDuration   = 5 * time.Second
)

// Action is a labelled continuation offered with a notification.
type Action struct {
	Label string
	Run   func(ctx context.Context)
}

// Notification is a single message. Duration zero keeps it until it is
// dismissed or one of its actions is selected.
type Notification struct {
	ID        string
	Message   string
	Severity  Severity
	Duration  time.Duration
	Actions   []Action
	CreatedAt time.Time
}

type EventKind string

const (
	EventPublished EventKind = "published"
	EventRemoved   EventKind = "removed"
)

// Event is delivered to subscribers of an audience.
type Event struct {
	Kind         EventKind
	Notification Notification
}

var ErrNotFound = errors.New("notification not found")

type entry struct {
	n     Notification
	timer *time.Timer
}

// Hub routes notifications to per-audience subscribers and owns their
// lifetime timers.
type Hub struct {
	mu      sync.Mutex
	items   map[string]map[string]*entry
	subs    map[string]map[int]chan Event
	nextSub int
	now     func() time.Time
	log     *zap.Logger
	onPub   func(Severity)
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		items: make(map[string]map[string]*entry),
		subs:  make(map[string]map[int]chan Event),
		now:   time.Now,
		log:   log,
	}
}

// OnPublish registers a hook called for every published notification.
func (h *Hub) OnPublish(fn func(Severity)) { h.onPub = fn }

// Publish stores n for audience and returns its id. Negative durations are
// treated as zero.
func (h *Hub) Publish(audience string, n Notification) string {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Severity == "" {
		n.Severity = SeverityInfo
	}
	if n.Duration < 0 {
		n.Duration = 0
	}
	n.CreatedAt = h.now()

	e := &entry{n: n}
	h.mu.Lock()
	if h.items[audience] == nil {
		h.items[audience] = make(map[string]*entry)
	}
	h.items[audience][n.ID] = e
	if n.Duration > 0 {
		id := n.ID
		e.timer = time.AfterFunc(n.Duration, func() { _, _ = h.remove(audience, id) })
	}
	h.broadcastLocked(audience, Event{Kind: EventPublished, Notification: n})
	h.mu.Unlock()

	if h.onPub != nil {
		h.onPub(n.Severity)
	}
	return n.ID
}

// Dismiss removes a notification without running any action.
func (h *Hub) Dismiss(audience, id string) error {
	_, err := h.remove(audience, id)
	return err
}

// Select removes the notification and runs the continuation of the action
// at index. Each notification can be selected at most once.
func (h *Hub) Select(ctx context.Context, audience, id string, index int) error {
	h.mu.Lock()
	e, ok := h.items[audience][id]
	if !ok || index < 0 || index >= len(e.n.Actions) {
		h.mu.Unlock()
		return ErrNotFound
	}
	h.mu.Unlock()

	n, err := h.remove(audience, id)
	if err != nil {
		return err
	}
	if run := n.Actions[index].Run; run != nil {
		run(ctx)
	}
	return nil
}

// Pending lists the live notifications of audience, oldest first.
func (h *Hub) Pending(audience string) []Notification {
	h.mu.Lock()
	out := make([]Notification, 0, len(h.items[audience]))
	for _, e := range h.items[audience] {
		out = append(out, e.n)
	}
	h.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Subscribe returns a channel of events for audience and a cancel func that
// must be called to release it. Slow subscribers miss events rather than
// blocking publishers.
func (h *Hub) Subscribe(audience string) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	if h.subs[audience] == nil {
		h.subs[audience] = make(map[int]chan Event)
	}
	h.subs[audience][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[audience], id)
			if len(h.subs[audience]) == 0 {
				delete(h.subs, audience)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Forget drops the notifications of audience that never expire, such as
// unanswered confirmations, and returns how many were dropped. Their
// continuations would run without the session they were asked under.
func (h *Hub) Forget(audience string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	dropped := 0
	for id, e := range h.items[audience] {
		if e.timer != nil {
			continue
		}
		delete(h.items[audience], id)
		h.broadcastLocked(audience, Event{Kind: EventRemoved, Notification: e.n})
		dropped++
	}
	if len(h.items[audience]) == 0 {
		delete(h.items, audience)
	}
	return dropped
}

func (h *Hub) remove(audience, id string) (Notification, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.items[audience][id]
	if !ok {
		return Notification{}, ErrNotFound
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(h.items[audience], id)
	if len(h.items[audience]) == 0 {
		delete(h.items, audience)
	}
	h.broadcastLocked(audience, Event{Kind: EventRemoved, Notification: e.n})
	return e.n, nil
}

func (h *Hub) broadcastLocked(audience string, ev Event) {
	for id, ch := range h.subs[audience] {
		select {
		case ch <- ev:
		default:
			h.log.Warn("notify: subscriber too slow, dropping event",
				zap.String("audience", audience), zap.Int("subscriber", id))
		}
	}
}
