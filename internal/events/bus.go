package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers. A nil bus drops the event.
// Usage: bus.Publish(PipelineErrorEvent{...})
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case DeviceDiscoveredEvent:
		event.Publish(b.dispatcher, e)
	case PipelineStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case PipelineErrorEvent:
		event.Publish(b.dispatcher, e)
	case SessionShutdownEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives.
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e PipelineErrorEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(DeviceDiscoveredEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PipelineStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PipelineErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionShutdownEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}

// Close stops delivery to every subscriber.
func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	return b.dispatcher.Close()
}
