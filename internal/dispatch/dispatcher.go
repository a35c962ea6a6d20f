package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/tool"
	"github.com/casualjim/hoot/toolcall"
	"github.com/fogfish/opts"
	"golang.org/x/sync/errgroup"
)

var (
	ErrToolNotFound = errors.New("tool not found")
	ErrToolFailed   = errors.New("tool execution failed")
)

// Tools is the lookup side of a tool registry.
type Tools interface {
	Lookup(name string) (tool.Entry, bool)
}

// Result is the outcome of one tool call.
type Result struct {
	Name string
	// Value is the raw value returned by the tool, nil on failure.
	Value any
	// Text is the rendering folded back into the conversation.
	Text string
	// Err records why the call failed. It is informational only.
	Err      error
	Duration time.Duration
}

// Failed reports whether the call did not produce a value.
func (r Result) Failed() bool { return r.Err != nil }

// Dispatcher runs tool calls.
type Dispatcher struct {
	tools       Tools
	parallelism int
}

// Option configures a Dispatcher.
type Option = opts.Option[Dispatcher]

// WithParallelism bounds how many calls of a batch run at once. Values below
// one mean "one per CPU".
func WithParallelism(n int) Option {
	return opts.Type[Dispatcher](func(d *Dispatcher) error {
		d.parallelism = n
		return nil
	})
}

// New creates a dispatcher over tools.
func New(tools Tools, options ...Option) *Dispatcher {
	d := &Dispatcher{tools: tools}
	if err := opts.Apply(d, options); err != nil {
		slog.Warn("ignoring invalid dispatcher option", slogx.Error(err))
	}
	if d.parallelism < 1 {
		d.parallelism = runtime.GOMAXPROCS(0)
	}
	return d
}

// RunOne executes a single call. Log lines go to the logger carried by ctx
// (see slogx.NewContext).
func (d *Dispatcher) RunOne(ctx context.Context, call toolcall.Invocation) Result {
	start := time.Now()
	res := d.run(ctx, call)
	res.Name = call.Name
	res.Duration = time.Since(start)

	logger := slogx.FromContext(ctx)
	if res.Err != nil {
		logger.WarnContext(ctx, "tool call failed", slogx.Tool(call.Name), slogx.Error(res.Err))
	} else {
		logger.DebugContext(ctx, "tool call completed", slogx.Tool(call.Name), slog.Duration("duration", res.Duration))
	}
	return res
}

// RunBatch executes independent calls concurrently. The i-th result belongs
// to the i-th call.
func (d *Dispatcher) RunBatch(ctx context.Context, calls []toolcall.Invocation) []Result {
	results := make([]Result, len(calls))
	var g errgroup.Group
	g.SetLimit(d.parallelism)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = d.RunOne(ctx, call)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (d *Dispatcher) run(ctx context.Context, call toolcall.Invocation) Result {
	entry, ok := d.tools.Lookup(call.Name)
	if !ok {
		return Result{
			Text: fmt.Sprintf("Tool '%s' not found in registry.", call.Name),
			Err:  fmt.Errorf("%w: %s", ErrToolNotFound, call.Name),
		}
	}

	arguments, err := call.Arguments()
	if err != nil {
		return paramFailure(call.Name, &tool.ParamError{Reason: err.Error()})
	}
	if err := entry.ValidateJSON(arguments); err != nil {
		return paramFailure(call.Name, err)
	}
	args, err := buildArgList(ctx, arguments, entry.Definition)
	if err != nil {
		return paramFailure(call.Name, err)
	}

	value, err := callFunction(entry.Function, args)
	if err != nil {
		if tool.IsParamError(err) {
			return paramFailure(call.Name, err)
		}
		return execFailure(call.Name, err)
	}

	text, err := render(value)
	if err != nil {
		return execFailure(call.Name, fmt.Errorf("render result: %w", err))
	}
	if text == "" {
		text = fmt.Sprintf("Tool '%s' completed with no result.", call.Name)
	}
	return Result{Value: value, Text: text}
}

func paramFailure(name string, err error) Result {
	return Result{
		Text: fmt.Sprintf("Invalid parameters for tool '%s': %v", name, err),
		Err:  err,
	}
}

func execFailure(name string, cause error) Result {
	err := cause
	if !errors.Is(err, ErrToolFailed) {
		err = fmt.Errorf("%w: %w", ErrToolFailed, cause)
	}
	return Result{
		Text: fmt.Sprintf("Tool '%s' failed: %v", name, cause),
		Err:  err,
	}
}
