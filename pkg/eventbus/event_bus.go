// Package eventbus abstracts publish/subscribe of hub lifecycle events.
package eventbus

import (
	"context"

	"github.com/webrpa/hub/pkg/events"
)

// Event is anything the bus can carry.
type Event interface {
	GetType() events.EventType
}

// EventHandler processes one decoded event.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	Publish(ctx context.Context, key string, event Event) error
	Subscribe(ctx context.Context) error
	Handle(eventType events.EventType, handler EventHandler) error
	GenerateID() string
	Close() error
}
