package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casualjim/hoot/api"
	"github.com/casualjim/hoot/events"
	"github.com/casualjim/hoot/internal/dispatch"
	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/provider"
	"github.com/casualjim/hoot/store"
	"github.com/casualjim/hoot/tool"
	"github.com/casualjim/hoot/toolcall"
	"github.com/google/uuid"
)

// Executor runs one conversation turn.
type Executor interface {
	Run(context.Context, RunCommand) (Result, error)
}

// Dispatcher executes parsed tool calls.
type Dispatcher interface {
	RunOne(context.Context, toolcall.Invocation) dispatch.Result
	RunBatch(context.Context, []toolcall.Invocation) []dispatch.Result
}

// Providers resolves a being's provider identifier and model.
type Providers interface {
	Resolve(ctx context.Context, id, model string) (provider.Provider, error)
}

// Catalog lists the tools offered to the model.
type Catalog interface {
	Definitions() []tool.Definition
}

// Result describes a finished turn.
type Result struct {
	RunID uuid.UUID
	// Text is the reply returned to the caller.
	Text string
	// Iterations counts the model calls made.
	Iterations int
	// ToolResults holds the rendered tool results in dispatch order.
	ToolResults []string
	// Additions are the turns persisted during this call, in order.
	Additions []messages.Turn
	// LoopDetected is set when the repeat breaker ended the turn.
	LoopDetected bool
	// Clarification is the request issued when LoopDetected is set.
	Clarification string
	// Exhausted is set when the iteration bound ended the turn.
	Exhausted bool
}

var _ Executor = (*Local)(nil)

type Local struct {
	store      store.Store
	dispatcher Dispatcher
	providers  Providers
	catalog    Catalog
}

func NewLocal(st store.Store, dispatcher Dispatcher, providers Providers, catalog Catalog) *Local {
	return &Local{
		store:      st,
		dispatcher: dispatcher,
		providers:  providers,
		catalog:    catalog,
	}
}

// run binds the collaborators of one Run call.
type run struct {
	*Local
	cmd    RunCommand
	id     uuid.UUID
	hook   events.Hook
	logger *slog.Logger
	state  *orchestration
}

func (l *Local) Run(ctx context.Context, cmd RunCommand) (Result, error) {
	r := &run{
		Local: l,
		cmd:   cmd,
		id:    cmd.ID(),
		hook:  cmd.hook(),
	}
	r.logger = slogx.FromContext(ctx).With(
		slogx.LoggerName("executor"),
		slogx.Conversation(cmd.ConversationID),
		slogx.Run(r.id),
	)

	if strings.TrimSpace(cmd.Message) == "" {
		return Result{}, r.fail(ctx, api.KindInput, 0, api.ErrEmptyMessage)
	}
	if err := cmd.Validate(); err != nil {
		return Result{}, r.fail(ctx, api.KindConfig, 0, err)
	}

	prov, err := l.providers.Resolve(ctx, cmd.Being.ModelProvider, cmd.Being.Model)
	if err != nil {
		return Result{}, r.fail(ctx, api.KindConfig, 0, err)
	}

	persisted, err := l.store.Tail(ctx, cmd.ConversationID, cmd.HistoryLimit)
	if err != nil {
		return Result{}, r.fail(ctx, api.KindStorage, 0, err)
	}
	r.state = newOrchestration(cmd.Message, persisted)

	if err := r.append(ctx, 0, messages.User(cmd.Message)); err != nil {
		return Result{}, err
	}

	r.logger.DebugContext(ctx, "starting turn",
		slog.String("provider", prov.Name()),
		slog.Int("history", len(persisted)),
	)
	return r.loop(ctx, prov)
}

func (r *run) loop(ctx context.Context, prov provider.Provider) (Result, error) {
	st := r.state
	for st.iterations < r.cmd.MaxIterations {
		st.iterations++
		iteration := st.iterations

		text, err := r.generate(ctx, prov, iteration)
		if err != nil {
			return r.result(), err
		}
		st.lastText = text
		if err := r.append(ctx, iteration, messages.Assistant(text)); err != nil {
			return r.result(), err
		}

		// parser and dispatcher log with the run scope
		ictx := slogx.NewContext(ctx, r.logger.With(slogx.Iteration(iteration)))
		calls := toolcall.ParseContext(ictx, text)
		switch len(calls) {
		case 0:
			return r.complete(ctx, r.result()), nil
		case 1:
			if st.observe(calls[0].Signature()) {
				return r.breakLoop(ctx, iteration, calls[0]), nil
			}
			res := r.dispatcher.RunOne(ictx, calls[0])
			if err := r.record(ctx, iteration, calls[0], res); err != nil {
				return r.result(), err
			}
		default:
			st.resetStreak()
			results := r.dispatcher.RunBatch(ictx, calls)
			for i, res := range results {
				if err := r.record(ctx, iteration, calls[i], res); err != nil {
					return r.result(), err
				}
			}
		}
		st.current = st.synthesize()
	}

	r.logger.WarnContext(ctx, "iteration limit reached", slogx.Iteration(st.iterations))
	res := r.result()
	res.Exhausted = true
	return r.complete(ctx, res), nil
}

func (r *run) generate(ctx context.Context, prov provider.Provider, iteration int) (string, error) {
	instructions, err := r.cmd.Being.Prompt(r.cmd.RetrievalContext, r.catalog.Definitions())
	if err != nil {
		return "", r.fail(ctx, api.KindConfig, iteration, err)
	}

	text, err := prov.Generate(ctx, provider.CompletionParams{
		RunID:        r.id,
		Instructions: instructions,
		Message:      r.state.current,
		History:      r.state.history.Context(r.cmd.HistoryLimit),
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = provider.Wrap(prov.Name(), "", provider.ErrEmptyResponse)
	}
	if err != nil {
		return "", r.fail(ctx, api.KindProvider, iteration, err)
	}
	return text, nil
}

// append persists t and adds it to the working history.
func (r *run) append(ctx context.Context, iteration int, t messages.Turn) error {
	stored, err := r.store.Append(ctx, r.cmd.ConversationID, t)
	if err != nil {
		return r.fail(ctx, api.KindStorage, iteration, err)
	}
	r.state.history.Add(stored)
	r.hook.OnTurnAppended(ctx, events.TurnAppended{
		Meta:      r.meta(),
		Iteration: iteration,
		Turn:      stored,
	})
	return nil
}

func (r *run) record(ctx context.Context, iteration int, call toolcall.Invocation, res dispatch.Result) error {
	args, err := call.Arguments()
	if err != nil {
		r.logger.WarnContext(ctx, "tool arguments not encodable, reporting the raw directive",
			slogx.Iteration(iteration),
			slogx.Tool(call.Name),
			slogx.Error(err),
		)
		args = call.Directive
	}
	r.hook.OnToolDispatched(ctx, events.ToolDispatched{
		Meta:      r.meta(),
		Iteration: iteration,
		Tool:      res.Name,
		Arguments: args,
		Result:    res.Text,
		Failed:    res.Failed(),
		Duration:  res.Duration,
	})
	if err := r.append(ctx, iteration, messages.Tool(res.Name, res.Text)); err != nil {
		return err
	}
	r.state.toolResults = append(r.state.toolResults, res.Text)
	return nil
}

func (r *run) breakLoop(ctx context.Context, iteration int, call toolcall.Invocation) Result {
	st := r.state
	st.current = Clarification
	r.logger.WarnContext(ctx, "repeated tool call, asking for clarification",
		slogx.Iteration(iteration),
		slogx.Tool(call.Name),
		slog.Int("repeats", st.repeatCount),
	)
	r.hook.OnLoopDetected(ctx, events.LoopDetected{
		Meta:          r.meta(),
		Iteration:     iteration,
		Signature:     st.lastSignature.String(),
		Repeats:       st.repeatCount,
		Clarification: Clarification,
	})

	res := r.result()
	res.LoopDetected = true
	res.Clarification = Clarification
	return r.complete(ctx, res)
}

func (r *run) complete(ctx context.Context, res Result) Result {
	r.hook.OnCompleted(ctx, events.Completed{
		Meta:       r.meta(),
		Iterations: res.Iterations,
		Text:       res.Text,
		Exhausted:  res.Exhausted,
	})
	r.logger.InfoContext(ctx, "turn completed",
		slog.Int("iterations", res.Iterations),
		slog.Int("tool_results", len(res.ToolResults)),
		slog.Bool("loop_detected", res.LoopDetected),
		slog.Bool("exhausted", res.Exhausted),
	)
	return res
}

func (r *run) result() Result {
	if r.state == nil {
		return Result{RunID: r.id}
	}
	return Result{
		RunID:       r.id,
		Text:        r.state.lastText,
		Iterations:  r.state.iterations,
		ToolResults: append([]string(nil), r.state.toolResults...),
		Additions:   r.state.history.Additions(),
	}
}

func (r *run) meta() events.Meta {
	return events.NewMeta(r.id, r.cmd.ConversationID)
}

// fail logs err, reports it to the hook and returns it classified as kind.
func (r *run) fail(ctx context.Context, kind api.Kind, iteration int, err error) error {
	wrapped := api.NewError(kind, r.cmd.ConversationID, iteration, err)
	r.logger.ErrorContext(ctx, fmt.Sprintf("%s error", kind),
		slogx.Iteration(iteration),
		slogx.Error(err),
	)
	r.hook.OnFailed(ctx, events.Failed{
		Meta:      r.meta(),
		Iteration: iteration,
		Kind:      kind.String(),
		Error:     err.Error(),
	})
	return wrapped
}
