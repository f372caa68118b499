// Package service holds the pod services behind the API: the installed
// product catalog and its validation runs, the export queue, the event bus
// and the prometheus metrics.
package service

import (
	"slices"
	"sync"
)

// Event resources.
const (
	ResourceQueue      = "queue"
	ResourceCatalog    = "catalog"
	ResourceValidation = "validation"
)

// Event actions.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionDeleted   = "deleted"
	ActionReported  = "reported"  // one validation message
	ActionCompleted = "completed" // a validation run's field checks finished
)

// Event represents a resource mutation or a validation message.
type Event struct {
	Resource string
	Action   string
	ID       string // resource ID or validation run ID
	Data     any    // payload, e.g. a validate.Error or a Report
}

// EventBus is a fan-out pub/sub for resource change events. Publishing
// never blocks: a subscriber whose buffer is full misses the event.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event][]string
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event][]string)}
}

// Publish sends an event to the subscribers of its resource. A nil bus
// drops it.
func (b *EventBus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, resources := range b.subs {
		if len(resources) > 0 && !slices.Contains(resources, e.Resource) {
			continue
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a buffered channel receiving the events of resources,
// or of every resource when none are given.
func (b *EventBus) Subscribe(resources ...string) chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = resources
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
