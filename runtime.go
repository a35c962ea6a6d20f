package hoot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casualjim/hoot/api"
	"github.com/casualjim/hoot/being"
	"github.com/casualjim/hoot/events"
	"github.com/casualjim/hoot/internal/dispatch"
	"github.com/casualjim/hoot/internal/executor"
	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/provider/models"
	"github.com/casualjim/hoot/retrieval"
	"github.com/casualjim/hoot/store"
	"github.com/casualjim/hoot/store/memory"
	"github.com/casualjim/hoot/tool"
	"github.com/fogfish/opts"
)

// ErrMissingBeing is returned by New when no being was configured.
var ErrMissingBeing = errors.New("a being is required")

// Runtime answers user messages on behalf of a being.
type Runtime struct {
	being     *being.Being
	tools     *tool.Registry
	store     store.Store
	providers *models.Registry
	retriever retrieval.Retriever
	hooks     []events.Hook

	maxIterations int
	historyLimit  int
	topK          int
	parallelism   int

	executor executor.Executor
}

type Option = opts.Option[Runtime]

var (
	WithBeing         = opts.ForName[Runtime, *being.Being]("being")
	WithTools         = opts.ForName[Runtime, *tool.Registry]("tools")
	WithStore         = opts.ForName[Runtime, store.Store]("store")
	WithProviders     = opts.ForName[Runtime, *models.Registry]("providers")
	WithRetriever     = opts.ForName[Runtime, retrieval.Retriever]("retriever")
	WithMaxIterations = opts.ForName[Runtime, int]("maxIterations")
	WithHistoryLimit  = opts.ForName[Runtime, int]("historyLimit")
	WithTopK          = opts.ForName[Runtime, int]("topK")
	WithParallelism   = opts.ForName[Runtime, int]("parallelism")
)

// WithHooks adds observers for orchestration events.
func WithHooks(hook events.Hook, extraHooks ...events.Hook) Option {
	return opts.Type[Runtime](func(r *Runtime) error {
		r.hooks = append(r.hooks, hook)
		r.hooks = append(r.hooks, extraHooks...)
		return nil
	})
}

// New composes a runtime. Without explicit options it uses an empty tool
// registry, an in-memory store, providers configured from an empty
// models.Settings, and no retrieval.
func New(options ...Option) (*Runtime, error) {
	r := &Runtime{
		maxIterations: executor.DefaultMaxIterations,
		historyLimit:  executor.DefaultHistoryLimit,
		topK:          retrieval.DefaultTopK,
	}
	if err := opts.Apply(r, options); err != nil {
		return nil, err
	}
	if r.being == nil {
		return nil, ErrMissingBeing
	}
	if err := r.being.Validate(); err != nil {
		return nil, fmt.Errorf("invalid being: %w", err)
	}
	if strings.TrimSpace(r.being.ContextID) == "" {
		r.being.ContextID = strings.ToLower(strings.TrimSpace(r.being.Character.Name))
	}
	if r.tools == nil {
		r.tools = tool.NewRegistry()
	}
	if r.store == nil {
		r.store = memory.New()
	}
	if r.providers == nil {
		r.providers = models.Default(models.Settings{})
	}
	if r.retriever == nil {
		r.retriever = retrieval.Nop{}
	}

	r.executor = executor.NewLocal(
		r.store,
		dispatch.New(r.tools, dispatch.WithParallelism(r.parallelism)),
		r.providers,
		r.tools,
	)
	return r, nil
}

func (r *Runtime) Being() *being.Being  { return r.being }
func (r *Runtime) Tools() *tool.Registry { return r.tools }
func (r *Runtime) Store() store.Store    { return r.store }

// Respond runs one turn of the conversation. An empty conversationID uses the
// being's context id.
func (r *Runtime) Respond(ctx context.Context, conversationID, message string) (executor.Result, error) {
	cmd, err := executor.NewRunCommand(conversationID, r.being, message)
	if err != nil {
		return executor.Result{}, api.NewError(api.KindConfig, conversationID, 0, err)
	}

	cmd = cmd.
		WithMaxIterations(r.maxIterations).
		WithHistoryLimit(r.historyLimit).
		WithRetrievalContext(r.retrieve(ctx, cmd.ConversationID, message)).
		WithHook(events.Multi(r.hooks...))

	return r.executor.Run(ctx, cmd)
}

// Chat runs one turn in the being's own conversation and returns the reply.
func (r *Runtime) Chat(ctx context.Context, message string) (string, error) {
	res, err := r.Respond(ctx, "", message)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Go runs Respond in the background.
func (r *Runtime) Go(ctx context.Context, conversationID, message string) Future[executor.Result] {
	f := newFuture[executor.Result]()
	go func() {
		res, err := r.Respond(ctx, conversationID, message)
		f.complete(res, err)
	}()
	return f
}

// History returns up to limit of the most recent turns, oldest first.
func (r *Runtime) History(ctx context.Context, conversationID string, limit int) ([]messages.Turn, error) {
	if conversationID == "" {
		conversationID = r.being.ContextID
	}
	turns, err := r.store.Tail(ctx, conversationID, limit)
	if err != nil {
		return nil, api.NewError(api.KindStorage, conversationID, 0, err)
	}
	return turns, nil
}

// Clear removes one conversation's transcript.
func (r *Runtime) Clear(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		conversationID = r.being.ContextID
	}
	if err := r.store.Clear(ctx, conversationID); err != nil {
		return api.NewError(api.KindStorage, conversationID, 0, err)
	}
	return nil
}

// ClearAll removes every stored transcript.
func (r *Runtime) ClearAll(ctx context.Context) error {
	if err := r.store.ClearAll(ctx); err != nil {
		return api.NewError(api.KindStorage, "", 0, err)
	}
	return nil
}

func (r *Runtime) Close() error {
	return r.store.Close()
}

// retrieve computes the retrieval block once per turn. Failures degrade to an
// empty block.
func (r *Runtime) retrieve(ctx context.Context, conversationID, message string) string {
	if strings.TrimSpace(message) == "" {
		return ""
	}
	text, err := r.retriever.Retrieve(ctx, message, r.topK)
	if err != nil {
		slog.WarnContext(ctx, "retrieval failed, continuing without context",
			slogx.LoggerName("runtime"),
			slogx.Conversation(conversationID),
			slogx.Error(err),
		)
		return ""
	}
	return text
}
