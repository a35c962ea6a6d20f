package events

import (
	"context"
	"log/slog"

	"github.com/casualjim/hoot/pkg/slogx"
)

// Hook observes orchestration events. Methods are called synchronously from the
// loop and should return quickly.
type Hook interface {
	OnTurnAppended(context.Context, TurnAppended)
	OnToolDispatched(context.Context, ToolDispatched)
	OnLoopDetected(context.Context, LoopDetected)
	OnCompleted(context.Context, Completed)
	OnFailed(context.Context, Failed)
}

// Dispatch calls the hook method matching ev.
func Dispatch(ctx context.Context, h Hook, ev Event) {
	if h == nil {
		return
	}
	switch e := ev.(type) {
	case TurnAppended:
		h.OnTurnAppended(ctx, e)
	case ToolDispatched:
		h.OnToolDispatched(ctx, e)
	case LoopDetected:
		h.OnLoopDetected(ctx, e)
	case Completed:
		h.OnCompleted(ctx, e)
	case Failed:
		h.OnFailed(ctx, e)
	}
}

// NopHook ignores every event. Embed it to implement only some methods.
type NopHook struct{}

func (NopHook) OnTurnAppended(context.Context, TurnAppended)     {}
func (NopHook) OnToolDispatched(context.Context, ToolDispatched) {}
func (NopHook) OnLoopDetected(context.Context, LoopDetected)     {}
func (NopHook) OnCompleted(context.Context, Completed)           {}
func (NopHook) OnFailed(context.Context, Failed)                 {}

type multi []Hook

// Multi fans events out to every non-nil hook in order.
func Multi(hooks ...Hook) Hook {
	var m multi
	for _, h := range hooks {
		if h != nil {
			m = append(m, h)
		}
	}
	return m
}

func (m multi) OnTurnAppended(ctx context.Context, e TurnAppended) {
	for _, h := range m {
		h.OnTurnAppended(ctx, e)
	}
}

func (m multi) OnToolDispatched(ctx context.Context, e ToolDispatched) {
	for _, h := range m {
		h.OnToolDispatched(ctx, e)
	}
}

func (m multi) OnLoopDetected(ctx context.Context, e LoopDetected) {
	for _, h := range m {
		h.OnLoopDetected(ctx, e)
	}
}

func (m multi) OnCompleted(ctx context.Context, e Completed) {
	for _, h := range m {
		h.OnCompleted(ctx, e)
	}
}

func (m multi) OnFailed(ctx context.Context, e Failed) {
	for _, h := range m {
		h.OnFailed(ctx, e)
	}
}

type logHook struct {
	logger *slog.Logger
}

// LogHook logs every event. A nil logger uses slog.Default.
func LogHook(logger *slog.Logger) Hook {
	if logger == nil {
		logger = slog.Default()
	}
	return &logHook{logger: logger.With(slogx.LoggerName("events"))}
}

func metaAttrs(m Meta) []any {
	return []any{slogx.Run(m.RunID), slogx.Conversation(m.ConversationID)}
}

func (l *logHook) OnTurnAppended(ctx context.Context, e TurnAppended) {
	attrs := append(metaAttrs(e.Meta), slogx.Iteration(e.Iteration), slog.String("role", e.Turn.Role.String()))
	if e.Turn.ToolName != "" {
		attrs = append(attrs, slogx.Tool(e.Turn.ToolName))
	}
	l.logger.DebugContext(ctx, "turn appended", attrs...)
}

func (l *logHook) OnToolDispatched(ctx context.Context, e ToolDispatched) {
	attrs := append(metaAttrs(e.Meta),
		slogx.Iteration(e.Iteration),
		slogx.Tool(e.Tool),
		slog.String("arguments", e.Arguments),
		slog.Duration("duration", e.Duration),
	)
	if e.Failed {
		l.logger.WarnContext(ctx, "tool failed", append(attrs, slog.String("result", e.Result))...)
		return
	}
	l.logger.InfoContext(ctx, "tool dispatched", attrs...)
}

func (l *logHook) OnLoopDetected(ctx context.Context, e LoopDetected) {
	l.logger.WarnContext(ctx, "repeated tool call detected",
		append(metaAttrs(e.Meta),
			slogx.Iteration(e.Iteration),
			slog.String("signature", e.Signature),
			slog.Int("repeats", e.Repeats),
		)...)
}

func (l *logHook) OnCompleted(ctx context.Context, e Completed) {
	l.logger.InfoContext(ctx, "turn completed",
		append(metaAttrs(e.Meta),
			slog.Int("iterations", e.Iterations),
			slog.Bool("exhausted", e.Exhausted),
		)...)
}

func (l *logHook) OnFailed(ctx context.Context, e Failed) {
	l.logger.ErrorContext(ctx, "turn failed",
		append(metaAttrs(e.Meta),
			slogx.Iteration(e.Iteration),
			slog.String("kind", e.Kind),
			slog.String("error", e.Error),
		)...)
}
