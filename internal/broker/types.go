package broker

import (
	"context"

	"github.com/casualjim/hoot/events"
)

// Broker hands out topics by id. Asking twice for the same id returns the same topic.
type Broker interface {
	Topic(context.Context, string) Topic
}

// Topic fans events out to its subscribers.
type Topic interface {
	Publish(context.Context, events.Event) error
	Subscribe(context.Context, events.Hook) (Subscription, error)
}

// Subscription is an active hook registration on a topic.
type Subscription interface {
	ID() string
	Unsubscribe()
}
