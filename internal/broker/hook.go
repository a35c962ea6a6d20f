package broker

import (
	"context"
	"log/slog"

	"github.com/casualjim/hoot/events"
	"github.com/casualjim/hoot/pkg/slogx"
)

type publishingHook struct {
	topic Topic
}

// PublishingHook returns a hook that republishes every event on topic. Publish
// failures are logged and otherwise ignored so observers never break a turn.
func PublishingHook(topic Topic) events.Hook {
	return &publishingHook{topic: topic}
}

func (p *publishingHook) publish(ctx context.Context, ev events.Event) {
	if err := p.topic.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "failed to publish event",
			slogx.LoggerName("broker"),
			slogx.Error(err),
			slog.String("type", ev.Type()),
		)
	}
}

func (p *publishingHook) OnTurnAppended(ctx context.Context, e events.TurnAppended) {
	p.publish(ctx, e)
}

func (p *publishingHook) OnToolDispatched(ctx context.Context, e events.ToolDispatched) {
	p.publish(ctx, e)
}

func (p *publishingHook) OnLoopDetected(ctx context.Context, e events.LoopDetected) {
	p.publish(ctx, e)
}

func (p *publishingHook) OnCompleted(ctx context.Context, e events.Completed) {
	p.publish(ctx, e)
}

func (p *publishingHook) OnFailed(ctx context.Context, e events.Failed) {
	p.publish(ctx, e)
}
