package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/hoot/events"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix namespaces conversation topics on a shared NATS server.
const DefaultSubjectPrefix = "hoot.conversations"

type natsBroker struct {
	client *nats.Conn
	prefix string
	topics *haxmap.Map[string, *natsTopic]
}

// NATS returns a broker publishing envelopes from events.ToJSON on
// "<prefix>.<topic id>" subjects. An empty prefix uses DefaultSubjectPrefix.
func NATS(client *nats.Conn, prefix string) *natsBroker {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &natsBroker{
		client: client,
		prefix: strings.TrimSuffix(prefix, "."),
		topics: haxmap.New[string, *natsTopic](),
	}
}

func (b *natsBroker) Topic(ctx context.Context, id string) Topic {
	top, _ := b.topics.GetOrCompute(id, func() *natsTopic {
		return &natsTopic{
			subject: b.prefix + "." + id,
			client:  b.client,
		}
	})
	return top
}

type natsTopic struct {
	client  *nats.Conn
	subject string
}

func (t *natsTopic) Publish(ctx context.Context, event events.Event) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	eb, err := events.ToJSON(event)
	if err != nil {
		return err
	}
	return t.client.Publish(t.subject, eb)
}

func (t *natsTopic) Subscribe(ctx context.Context, hook events.Hook) (Subscription, error) {
	if hook == nil {
		return nil, fmt.Errorf("hook is required")
	}

	ch := make(chan events.Event, subscriberBuffer)
	done := make(chan struct{})
	nsub, err := t.client.Subscribe(t.subject, func(msg *nats.Msg) {
		event, err := events.FromJSON(msg.Data)
		if err != nil {
			slog.Error("failed to unmarshal event", slogx.Error(err), slog.String("subject", msg.Subject))
			return
		}
		select {
		case ch <- event:
		case <-done:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, err
	}
	nsub.SetClosedHandler(func(_ string) { close(done) })

	go func() {
		for {
			select {
			case event := <-ch:
				events.Dispatch(ctx, hook, event)
			case <-done:
				return
			case <-ctx.Done():
				if err := nsub.Unsubscribe(); err != nil && err != nats.ErrBadSubscription {
					slog.Error("failed to unsubscribe", slogx.Error(err))
				}
				return
			}
		}
	}()

	return &natsSubscription{
		id:  uuid.NewString(),
		sub: nsub,
	}, nil
}

type natsSubscription struct {
	id  string
	sub *nats.Subscription
}

func (n *natsSubscription) ID() string {
	return n.id
}

func (n *natsSubscription) Unsubscribe() {
	if err := n.sub.Unsubscribe(); err != nil && err != nats.ErrBadSubscription {
		slog.Error("failed to unsubscribe", slogx.Error(err), slog.String("subscription", n.id))
	}
}
