package outbox

import "context"

// Event is a named domain notification emitted after a unit of work commits.
type Event interface {
	EventName() string
}

// Handler reacts to one published event.
type Handler func(ctx context.Context, e Event) error

// Publisher delivers events to interested subscribers. Delivery is
// best-effort; transactional truth stays in the store.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers by event name.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
