package events

import (
	"sync"
	"sync/atomic"
	"time"
)

type Kind string

const (
	AlertCreated     Kind = "alert_created"
	AlertReported    Kind = "alert_reported"
	AlertHelpOffered Kind = "alert_help_offered"
	AlertResolved    Kind = "alert_resolved"
)

// AlertEvent is published whenever an alert changes in a way that
// affects scoring, moderation, or gamification. AuthorID is always the
// alert's author; ActorID is the user who triggered the event (reporter,
// helper), which may differ from the author.
type AlertEvent struct {
	Kind     Kind
	AlertID  string
	AuthorID string
	ActorID  string
	At       time.Time
}

type Bus struct {
	subscribers map[uint64]chan AlertEvent
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[uint64]chan AlertEvent),
	}
}

func (b *Bus) Subscribe() (uint64, chan AlertEvent) {
	id := b.nextID.Add(1)
	ch := make(chan AlertEvent, 100)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(evt AlertEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing consumers to exit gracefully
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
