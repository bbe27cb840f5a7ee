// Package bus fans avatar, speech and chat events out to in-process subscribers.
package bus

import (
	"sync"
	"time"

	"github.com/sourcegraph/conc"
)

// EventType identifies different event types
type EventType string

const (
	// Model lifecycle
	EventTypeModelLoaded EventType = "model.loaded"
	EventTypeModelError  EventType = "model.error"

	// Avatar events
	EventTypeEmotionChanged   EventType = "avatar.emotion_changed"
	EventTypeGestureStarted   EventType = "avatar.gesture_started"
	EventTypeGestureCompleted EventType = "avatar.gesture_completed"
	EventTypeGestureDropped   EventType = "avatar.gesture_dropped"

	// Speech events
	EventTypeSpeakingStarted EventType = "speech.started"
	EventTypeSpeakingStopped EventType = "speech.stopped"
	EventTypeViseme          EventType = "speech.viseme"

	// Chat events
	EventTypeChatToken    EventType = "chat.token"
	EventTypeChatComplete EventType = "chat.complete"
	EventTypeChatError    EventType = "chat.error"

	// Frame loop
	EventTypeFrameSlow EventType = "frame.slow"
)

// Event represents a bus event
type Event struct {
	Type EventType      `json:"type"`
	Time time.Time      `json:"time"`
	Data map[string]any `json:"data,omitempty"`
}

// Handler receives one event. Publish runs it on its own goroutine.
type Handler func(Event)

// EventBus routes events by type. Handlers registered with SubscribeAll see every event.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for an event type
func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeMultiple adds a handler for multiple event types
func (b *EventBus) SubscribeMultiple(eventTypes []EventType, handler Handler) {
	for _, et := range eventTypes {
		b.Subscribe(et, handler)
	}
}

// SubscribeAll adds a handler that sees every event.
func (b *EventBus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.all = append(b.all, handler)
}

func (b *EventBus) handlersFor(event Event) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	handlers := make([]Handler, 0, len(b.handlers[event.Type])+len(b.all))
	handlers = append(handlers, b.handlers[event.Type]...)
	return append(handlers, b.all...)
}

func stamp(event Event) Event {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	return event
}

// Publish sends an event to all subscribed handlers without waiting.
func (b *EventBus) Publish(event Event) {
	event = stamp(event)
	for _, handler := range b.handlersFor(event) {
		go handler(event)
	}
}

// PublishSync sends an event and waits for all handlers to complete. A
// panicking handler is re-raised here once the others finish.
func (b *EventBus) PublishSync(event Event) {
	event = stamp(event)
	var wg conc.WaitGroup
	for _, handler := range b.handlersFor(event) {
		h := handler
		wg.Go(func() { h(event) })
	}
	wg.Wait()
}

// Clear removes all handlers
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]Handler)
	b.all = nil
}
