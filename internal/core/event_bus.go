package core

import (
	"sync"
	"time"

	"terminal-coder/internal/logging"
)

// EventBus is a synchronous, in-process pub/sub channel. Publish delivers to
// every subscriber in registration order before returning; a panicking
// subscriber is isolated and never drops the event for the others.
type EventBus struct {
	mu          sync.Mutex
	subscribers []func(Event)
	queue       []Event
}

// NewEventBus constructs an empty EventBus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a handler. Handlers are invoked in the order they were
// registered.
func (b *EventBus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

// Publish stamps CreatedAt if unset, appends the event to the drainable
// buffer, then synchronously invokes every subscriber. A subscriber panic is
// recovered and logged - it never prevents delivery to the remaining
// subscribers or the caller of Publish.
func (b *EventBus) Publish(evt Event) {
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now()
	}

	b.mu.Lock()
	b.queue = append(b.queue, evt)
	subs := make([]func(Event), len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, sub := range subs {
		b.dispatch(sub, evt)
	}
}

func (b *EventBus) dispatch(sub func(Event), evt Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryEngine).Warn("event subscriber panicked: %v", r)
		}
	}()
	sub(evt)
}

// Drain returns and clears the buffered events.
func (b *EventBus) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.queue
	b.queue = nil
	return out
}
