package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// ringCapacity bounds per-session replay history. Subscribers further
	// behind than this must do a REST reload.
	ringCapacity = 256
	// subscriberBuffer is the per-subscriber channel capacity beyond the
	// replay backlog. A subscriber that falls this far behind live traffic
	// is dropped.
	subscriberBuffer = 64
)

// ErrSessionClosed is returned by Subscribe after the session's terminal
// frame has been delivered.
var ErrSessionClosed = errors.New("session stream closed")

type subscriber struct {
	id     string
	ch     chan Event
	reason CloseReason
}

type topic struct {
	ring   []Event // oldest first, len <= ringCapacity
	nextID int64   // next event id to assign, starts at 1
	subs   map[string]*subscriber
	closed bool
}

// Bus owns all session topics in this process.
type Bus struct {
	mu     sync.Mutex
	topics map[string]*topic
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{topics: make(map[string]*topic)}
}

func (b *Bus) topicLocked(sessionID string) *topic {
	t, ok := b.topics[sessionID]
	if !ok {
		t = &topic{nextID: 1, subs: make(map[string]*subscriber)}
		b.topics[sessionID] = t
	}
	return t
}

// Publish appends an event to the session's log and fans it out. Slow
// subscribers are dropped rather than ever blocking the publisher.
func (b *Bus) Publish(sessionID, eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshaling %s payload: %w", eventType, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topicLocked(sessionID)
	if t.closed {
		return Event{}, ErrSessionClosed
	}

	evt := Event{
		ID:        t.nextID,
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: nowRFC3339(),
		Payload:   raw,
	}
	t.nextID++
	t.ring = append(t.ring, evt)
	if len(t.ring) > ringCapacity {
		t.ring = t.ring[len(t.ring)-ringCapacity:]
	}

	for id, sub := range t.subs {
		select {
		case sub.ch <- evt:
		default:
			// Never block the publisher: drop the laggard.
			slog.Warn("Dropping slow stream subscriber",
				"session_id", sessionID, "subscriber_id", id, "event_id", evt.ID)
			sub.reason = ReasonSlowConsumer
			close(sub.ch)
			delete(t.subs, id)
		}
	}
	return evt, nil
}

// Subscription is one subscriber's view of a session stream. Events is closed
// when the subscription ends; Reason reports why.
type Subscription struct {
	Events <-chan Event

	bus       *Bus
	sessionID string
	sub       *subscriber
}

// Subscribe attaches to a session's stream. Events retained in the replay
// ring with id > since are delivered first, in order, before any live event.
func (b *Bus) Subscribe(sessionID string, since int64) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topicLocked(sessionID)
	if t.closed {
		return nil, ErrSessionClosed
	}

	sub := &subscriber{
		id: uuid.NewString(),
		// Replay always fits: ring length is capped at ringCapacity.
		ch: make(chan Event, ringCapacity+subscriberBuffer),
	}
	for _, evt := range t.ring {
		if evt.ID > since {
			sub.ch <- evt
		}
	}
	t.subs[sub.id] = sub

	return &Subscription{
		Events:    sub.ch,
		bus:       b,
		sessionID: sessionID,
		sub:       sub,
	}, nil
}

// Reason reports why the subscription's channel was closed. Only meaningful
// after Events is closed; the reason is always recorded under the bus lock
// before the channel close.
func (s *Subscription) Reason() CloseReason {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.sub.reason
}

// Cancel detaches the subscription and closes its channel. Idempotent.
func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	t, ok := s.bus.topics[s.sessionID]
	if !ok {
		return
	}
	if _, ok := t.subs[s.sub.id]; ok {
		s.sub.reason = ReasonCancelled
		close(s.sub.ch)
		delete(t.subs, s.sub.id)
	}
}

// CloseTopic seals a session's stream after its terminal frame has been
// published: every subscriber channel is closed and later subscribes are
// refused. The replay ring is retained until RemoveTopic.
func (b *Bus) CloseTopic(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[sessionID]
	if !ok {
		return
	}
	t.closed = true
	for id, sub := range t.subs {
		sub.reason = ReasonTerminal
		close(sub.ch)
		delete(t.subs, id)
	}
}

// RemoveTopic drops all state for a session. Used by the retention sweeper.
func (b *Bus) RemoveTopic(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.topics[sessionID]; ok {
		for id, sub := range t.subs {
			sub.reason = ReasonTerminal
			close(sub.ch)
			delete(t.subs, id)
		}
		delete(b.topics, sessionID)
	}
}

// SubscriberCount returns the number of live subscribers for a session.
// Used by tests to poll instead of sleeping.
func (b *Bus) SubscriberCount(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.topics[sessionID]; ok {
		return len(t.subs)
	}
	return 0
}
