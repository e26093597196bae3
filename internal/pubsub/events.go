// Package pubsub provides a generic publish/subscribe event system.
//
// It is used in two places: the registry store fans out reconciled
// snapshots to UI observers, and the logger publishes formatted entries
// for in-app log viewers.
package pubsub

import "time"

// EventType represents the type of event being published.
type EventType string

const (
	SnapshotEvent EventType = "snapshot" // new current state after a remote change
	CreatedEvent  EventType = "created"
	UpdatedEvent  EventType = "updated"
	DeletedEvent  EventType = "deleted"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe() (<-chan Event[T], *Subscription)
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
