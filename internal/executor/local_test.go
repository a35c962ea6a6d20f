package executor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casualjim/hoot/api"
	"github.com/casualjim/hoot/being"
	"github.com/casualjim/hoot/events"
	"github.com/casualjim/hoot/internal/dispatch"
	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/provider"
	"github.com/casualjim/hoot/provider/models"
	"github.com/casualjim/hoot/store/memory"
	"github.com/casualjim/hoot/tool"
	"github.com/casualjim/hoot/toolcall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type scriptedProvider struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []provider.CompletionParams
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(_ context.Context, params provider.CompletionParams) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, params)
	if p.err != nil {
		return "", p.err
	}
	if len(p.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	reply := p.replies[0]
	if len(p.replies) > 1 {
		p.replies = p.replies[1:]
	}
	return reply, nil
}

func (p *scriptedProvider) Calls() []provider.CompletionParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]provider.CompletionParams(nil), p.calls...)
}

type recordingHook struct {
	events.NopHook
	mu   sync.Mutex
	seen []events.Event
}

func (h *recordingHook) add(ev events.Event) {
	h.mu.Lock()
	h.seen = append(h.seen, ev)
	h.mu.Unlock()
}

func (h *recordingHook) OnTurnAppended(_ context.Context, ev events.TurnAppended)     { h.add(ev) }
func (h *recordingHook) OnToolDispatched(_ context.Context, ev events.ToolDispatched) { h.add(ev) }
func (h *recordingHook) OnLoopDetected(_ context.Context, ev events.LoopDetected)     { h.add(ev) }
func (h *recordingHook) OnCompleted(_ context.Context, ev events.Completed)           { h.add(ev) }
func (h *recordingHook) OnFailed(_ context.Context, ev events.Failed)                 { h.add(ev) }

func (h *recordingHook) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.seen))
	for _, ev := range h.seen {
		out = append(out, ev.Type())
	}
	return out
}

type failingStore struct {
	*memory.Store
	tailErr   error
	appendErr error
	// failAfter is the number of appends that succeed before appendErr is returned.
	failAfter int
	appends   int
}

func (s *failingStore) Tail(ctx context.Context, id string, limit int) ([]messages.Turn, error) {
	if s.tailErr != nil {
		return nil, s.tailErr
	}
	return s.Store.Tail(ctx, id, limit)
}

func (s *failingStore) Append(ctx context.Context, id string, t messages.Turn) (messages.Turn, error) {
	s.appends++
	if s.appendErr != nil && s.appends > s.failAfter {
		return messages.Turn{}, s.appendErr
	}
	return s.Store.Append(ctx, id, t)
}

type fixture struct {
	store    *memory.Store
	provider *scriptedProvider
	hook     *recordingHook
	tools    *tool.Registry
	weather  atomic.Int32
	executor *Local
}

func newFixture(t *testing.T, replies ...string) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		provider: &scriptedProvider{replies: replies},
		hook:     &recordingHook{},
	}

	tools := tool.NewRegistry()
	require.NoError(t, tools.Add(func(location string) string {
		f.weather.Add(1)
		return "The weather in " + location + " is sunny."
	}, tool.Name("weather"), tool.Description("Get the weather"), tool.Parameters("location")))
	require.NoError(t, tools.Add(func() string {
		return "12:00"
	}, tool.Name("get_current_time"), tool.Description("Get the time")))

	providers := models.New()
	providers.Register("scripted", func(context.Context, string) (provider.Provider, error) {
		return f.provider, nil
	})

	f.tools = tools
	f.executor = NewLocal(f.store, dispatch.New(tools), providers, tools)
	return f
}

func testBeing() *being.Being {
	return &being.Being{
		ContextID:     "owl",
		ModelProvider: "scripted",
		System:        "Be helpful.",
		Character: being.Character{
			Name:        "Owl",
			Bio:         "A wise owl.",
			Personality: "Calm",
		},
	}
}

func (f *fixture) command(t *testing.T, message string) RunCommand {
	t.Helper()
	cmd, err := NewRunCommand("", testBeing(), message)
	require.NoError(t, err)
	return cmd.WithHook(f.hook)
}

func (f *fixture) transcript(t *testing.T) []messages.Turn {
	t.Helper()
	turns, err := f.store.List(context.Background(), "owl")
	require.NoError(t, err)
	return turns
}

func roles(turns []messages.Turn) []messages.Role {
	out := make([]messages.Role, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Role)
	}
	return out
}

func TestNewRunCommand(t *testing.T) {
	cmd, err := NewRunCommand("", testBeing(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "owl", cmd.ConversationID)
	assert.Equal(t, DefaultMaxIterations, cmd.MaxIterations)
	assert.Equal(t, DefaultHistoryLimit, cmd.HistoryLimit)
	assert.NotEqual(t, cmd.ID().String(), "")

	cmd, err = NewRunCommand("other", testBeing(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "other", cmd.ConversationID)

	_, err = NewRunCommand("", nil, "hi")
	require.Error(t, err)

	_, err = NewRunCommand("", &being.Being{}, "hi")
	require.Error(t, err)
}

func TestLocal_Run_PlainText(t *testing.T) {
	f := newFixture(t, "Hello there!")
	res, err := f.executor.Run(context.Background(), f.command(t, "Hi"))
	require.NoError(t, err)

	assert.Equal(t, "Hello there!", res.Text)
	assert.Equal(t, 1, res.Iterations)
	assert.Empty(t, res.ToolResults)
	assert.False(t, res.LoopDetected)
	assert.False(t, res.Exhausted)

	calls := f.provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Hi", calls[0].Message)
	assert.Contains(t, calls[0].Instructions, "Be helpful.")
	assert.Contains(t, calls[0].Instructions, "weather(location: string)")
	assert.Equal(t, res.RunID, calls[0].RunID)

	turns := f.transcript(t)
	assert.Equal(t, []messages.Role{messages.RoleUser, messages.RoleAssistant}, roles(turns))
	assert.Equal(t, turns, res.Additions)
	assert.Equal(t, []string{
		events.TypeTurnAppended,
		events.TypeTurnAppended,
		events.TypeCompleted,
	}, f.hook.types())
}

func TestLocal_Run_SingleToolCall(t *testing.T) {
	f := newFixture(t,
		`Let me check. FUNCTION: weather PARAMS: {"location": "Paris"}`,
		"It is sunny in Paris.",
	)
	res, err := f.executor.Run(context.Background(), f.command(t, "Weather in Paris?"))
	require.NoError(t, err)

	assert.Equal(t, "It is sunny in Paris.", res.Text)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, []string{"The weather in Paris is sunny."}, res.ToolResults)
	assert.EqualValues(t, 1, f.weather.Load())

	turns := f.transcript(t)
	assert.Equal(t, []messages.Role{
		messages.RoleUser, messages.RoleAssistant, messages.RoleTool, messages.RoleAssistant,
	}, roles(turns))
	assert.Equal(t, "weather", turns[2].ToolName)
	assert.Equal(t, "The weather in Paris is sunny.", turns[2].Content)

	calls := f.provider.Calls()
	require.Len(t, calls, 2)
	second := calls[1]
	assert.True(t, strings.HasPrefix(second.Message, "The user asked: Weather in Paris?"))
	assert.Contains(t, second.Message, "1. The weather in Paris is sunny.")
	// history holds the user turn, the directive and the tool result
	require.Len(t, second.History, 3)
	assert.Equal(t, messages.RoleTool, second.History[2].Role)

	assert.Contains(t, f.hook.types(), events.TypeToolDispatched)
}

func TestLocal_Run_BatchKeepsOrder(t *testing.T) {
	f := newFixture(t,
		"FUNCTION: get_current_time PARAMS: {}\nFUNCTION: weather PARAMS: {'location': 'Oslo'}",
		"Done.",
	)
	res, err := f.executor.Run(context.Background(), f.command(t, "time and weather"))
	require.NoError(t, err)
	assert.Equal(t, "Done.", res.Text)
	assert.Equal(t, []string{"12:00", "The weather in Oslo is sunny."}, res.ToolResults)

	turns := f.transcript(t)
	require.Len(t, turns, 5)
	assert.Equal(t, "get_current_time", turns[2].ToolName)
	assert.Equal(t, "weather", turns[3].ToolName)

	second := f.provider.Calls()[1].Message
	assert.Contains(t, second, "1. 12:00\n2. The weather in Oslo is sunny.")
}

func TestLocal_Run_RepeatBreaker(t *testing.T) {
	directive := `FUNCTION: weather PARAMS: {"location": "Paris"}`
	f := newFixture(t, directive)
	res, err := f.executor.Run(context.Background(), f.command(t, "loop please"))
	require.NoError(t, err)

	assert.True(t, res.LoopDetected)
	assert.Equal(t, Clarification, res.Clarification)
	assert.Equal(t, directive, res.Text)
	assert.Equal(t, 3, res.Iterations)
	assert.EqualValues(t, 2, f.weather.Load())
	assert.Len(t, f.provider.Calls(), 3)
	assert.Contains(t, f.hook.types(), events.TypeLoopDetected)

	// quoting and spacing do not change the signature
	f = newFixture(t,
		`FUNCTION: weather PARAMS: {"location": "Paris"}`,
		`FUNCTION: weather PARAMS: {'location': 'Paris'}`,
		`FUNCTION: weather PARAMS: {"location":"Paris"}`,
	)
	res, err = f.executor.Run(context.Background(), f.command(t, "loop"))
	require.NoError(t, err)
	assert.True(t, res.LoopDetected)
}

func TestLocal_Run_DifferentCallsResetRepeat(t *testing.T) {
	f := newFixture(t,
		`FUNCTION: weather PARAMS: {"location": "Paris"}`,
		`FUNCTION: weather PARAMS: {"location": "Paris"}`,
		`FUNCTION: weather PARAMS: {"location": "Rome"}`,
		`FUNCTION: weather PARAMS: {"location": "Rome"}`,
		"final",
	)
	res, err := f.executor.Run(context.Background(), f.command(t, "compare"))
	require.NoError(t, err)
	assert.False(t, res.LoopDetected)
	assert.Equal(t, "final", res.Text)
	assert.Equal(t, 5, res.Iterations)
	assert.EqualValues(t, 4, f.weather.Load())
}

func TestLocal_Run_BatchResetsRepeat(t *testing.T) {
	single := `FUNCTION: weather PARAMS: {"location": "Paris"}`
	f := newFixture(t,
		single,
		single,
		"FUNCTION: get_current_time PARAMS: {}\nFUNCTION: get_current_time PARAMS: {}",
		single,
		"ok",
	)
	res, err := f.executor.Run(context.Background(), f.command(t, "mixed"))
	require.NoError(t, err)
	assert.False(t, res.LoopDetected)
	assert.Equal(t, "ok", res.Text)
	assert.EqualValues(t, 3, f.weather.Load())
}

func TestLocal_Run_ToolNotFound(t *testing.T) {
	f := newFixture(t, "FUNCTION: teleport PARAMS: {}", "I cannot teleport.")
	res, err := f.executor.Run(context.Background(), f.command(t, "beam me up"))
	require.NoError(t, err)
	assert.Equal(t, "I cannot teleport.", res.Text)
	assert.Equal(t, []string{"Tool 'teleport' not found in registry."}, res.ToolResults)

	turns := f.transcript(t)
	require.Len(t, turns, 4)
	assert.Equal(t, "Tool 'teleport' not found in registry.", turns[2].Content)
}

func TestLocal_Run_Exhausted(t *testing.T) {
	f := newFixture(t,
		`FUNCTION: weather PARAMS: {"location": "A"}`,
		`FUNCTION: weather PARAMS: {"location": "B"}`,
		`FUNCTION: weather PARAMS: {"location": "C"}`,
	)
	cmd := f.command(t, "go").WithMaxIterations(3)
	res, err := f.executor.Run(context.Background(), cmd)
	require.NoError(t, err)

	assert.True(t, res.Exhausted)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, `FUNCTION: weather PARAMS: {"location": "C"}`, res.Text)
	assert.EqualValues(t, 3, f.weather.Load())
	assert.Len(t, f.provider.Calls(), 3)
}

func TestLocal_Run_MalformedDirective(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing value", "FUNCTION: weather PARAMS: {location: }"},
		{"unbalanced braces", "FUNCTION: weather PARAMS: {location: Paris"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.text)
			res, err := f.executor.Run(context.Background(), f.command(t, "weather"))
			require.NoError(t, err)
			assert.Equal(t, tt.text, res.Text)
			assert.Equal(t, 1, res.Iterations)
			assert.Empty(t, res.ToolResults)
			assert.Zero(t, f.weather.Load())
			assert.Len(t, f.provider.Calls(), 1)
		})
	}
}

func TestLocal_Run_RollDice(t *testing.T) {
	f := newFixture(t,
		"Rolling!\n"+
			"FUNCTION: generate_random_number PARAMS: {'min_val': 1, 'max_val': 6}\n"+
			"FUNCTION: generate_random_number PARAMS: {'min_val': 2, 'max_val': 6}\n"+
			"FUNCTION: generate_random_number PARAMS: {'min_val': 3, 'max_val': 6}",
		"You rolled 4, 5 and 6.",
	)

	// each roll waits for the one after it, so the batch completes in reverse
	finished := map[int]chan struct{}{1: make(chan struct{}), 2: make(chan struct{}), 3: make(chan struct{})}
	var mu sync.Mutex
	var completed []int
	require.NoError(t, f.tools.Add(func(minVal, maxVal int) (int, error) {
		if next, ok := finished[minVal+1]; ok {
			select {
			case <-next:
			case <-time.After(2 * time.Second):
				return 0, errors.New("rolls did not run concurrently")
			}
		}
		mu.Lock()
		completed = append(completed, minVal)
		mu.Unlock()
		close(finished[minVal])
		return minVal + 3, nil
	}, tool.Name("generate_random_number"), tool.Description("Roll a die"), tool.Parameters("min_val", "max_val")))
	f.executor.dispatcher = dispatch.New(f.tools, dispatch.WithParallelism(3))

	res, err := f.executor.Run(context.Background(), f.command(t, "Roll 3 dice"))
	require.NoError(t, err)

	assert.Equal(t, "You rolled 4, 5 and 6.", res.Text)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, []string{"4", "5", "6"}, res.ToolResults)
	assert.Equal(t, []int{3, 2, 1}, completed)

	calls := f.provider.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t,
		"The user asked: Roll 3 dice\n\nTool results so far:\n1. 4\n2. 5\n3. 6\n\n"+
			"Using these results, answer the user's request. If you still need information, call another tool.",
		calls[1].Message,
	)

	turns := f.transcript(t)
	require.Len(t, turns, 6)
	for i, want := range []string{"4", "5", "6"} {
		assert.Equal(t, "generate_random_number", turns[2+i].ToolName)
		assert.Equal(t, want, turns[2+i].Content)
	}
}

func logLines(buf *bytes.Buffer) []gjson.Result {
	var out []gjson.Result
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line != "" {
			out = append(out, gjson.Parse(line))
		}
	}
	return out
}

func findLog(t *testing.T, lines []gjson.Result, message string) gjson.Result {
	t.Helper()
	for _, line := range lines {
		if line.Get("message").String() == message {
			return line
		}
	}
	require.Failf(t, "log line not found", "message %q", message)
	return gjson.Result{}
}

func TestLocal_Run_LogsCarryRunScope(t *testing.T) {
	f := newFixture(t,
		"FUNCTION: teleport PARAMS: {}",
		"FUNCTION: weather PARAMS: {location: }",
	)
	var buf bytes.Buffer
	logger := slogx.NewLogger(&buf, slog.LevelDebug, "json")
	ctx := slogx.NewContext(context.Background(), logger)

	res, err := f.executor.Run(ctx, f.command(t, "beam me up"))
	require.NoError(t, err)

	lines := logLines(&buf)
	failed := findLog(t, lines, "tool call failed")
	assert.Equal(t, "teleport", failed.Get(slogx.KeyTool).String())
	assert.Equal(t, int64(1), failed.Get(slogx.KeyIteration).Int())

	dropped := findLog(t, lines, "dropping malformed tool call")
	assert.Equal(t, "weather", dropped.Get(slogx.KeyTool).String())
	assert.Equal(t, int64(2), dropped.Get(slogx.KeyIteration).Int())

	for _, line := range []gjson.Result{failed, dropped, findLog(t, lines, "turn completed")} {
		assert.Equal(t, "owl", line.Get(slogx.KeyConversation).String())
		assert.Equal(t, res.RunID.String(), line.Get(slogx.KeyRun).String())
	}
}

func TestRun_RecordFallsBackToDirective(t *testing.T) {
	f := newFixture(t)
	cmd := f.command(t, "hi")
	r := &run{
		Local:  f.executor,
		cmd:    cmd,
		id:     cmd.ID(),
		hook:   f.hook,
		logger: slog.Default(),
		state:  newOrchestration("hi", nil),
	}
	call := toolcall.Invocation{
		Name:       "weather",
		Parameters: map[string]any{"location": make(chan int)},
		Directive:  "FUNCTION: weather PARAMS: {location: ?}",
	}
	require.NoError(t, r.record(context.Background(), 1, call, dispatch.Result{Name: "weather", Text: "sunny"}))

	f.hook.mu.Lock()
	defer f.hook.mu.Unlock()
	var dispatched *events.ToolDispatched
	for _, ev := range f.hook.seen {
		if td, ok := ev.(events.ToolDispatched); ok {
			dispatched = &td
		}
	}
	require.NotNil(t, dispatched)
	assert.Equal(t, call.Directive, dispatched.Arguments)
	assert.Equal(t, "sunny", dispatched.Result)
}

func TestLocal_Run_HistoryIsBounded(t *testing.T) {
	f := newFixture(t, "reply")
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := f.executor.Run(ctx, f.command(t, "turn"))
		require.NoError(t, err)
	}

	cmd := f.command(t, "latest").WithHistoryLimit(3)
	_, err := f.executor.Run(ctx, cmd)
	require.NoError(t, err)

	calls := f.provider.Calls()
	last := calls[len(calls)-1]
	// three persisted turns plus the new user turn
	assert.Len(t, last.History, 4)
	assert.Equal(t, "latest", last.History[3].Content)
}

func TestLocal_Run_Errors(t *testing.T) {
	t.Run("empty message", func(t *testing.T) {
		f := newFixture(t, "unused")
		_, err := f.executor.Run(context.Background(), f.command(t, "   "))
		require.Error(t, err)
		assert.True(t, api.IsKind(err, api.KindInput))
		assert.ErrorIs(t, err, api.ErrEmptyMessage)
		assert.Empty(t, f.provider.Calls())
		assert.Empty(t, f.transcript(t))
	})

	t.Run("missing provider", func(t *testing.T) {
		f := newFixture(t, "unused")
		cmd := f.command(t, "hi")
		cmd.Being.ModelProvider = ""
		_, err := f.executor.Run(context.Background(), cmd)
		assert.True(t, api.IsKind(err, api.KindConfig))
		assert.ErrorIs(t, err, api.ErrMissingProvider)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		f := newFixture(t, "unused")
		cmd := f.command(t, "hi")
		cmd.Being.ModelProvider = "carrier-pigeon"
		_, err := f.executor.Run(context.Background(), cmd)
		assert.True(t, api.IsKind(err, api.KindConfig))
		assert.ErrorIs(t, err, api.ErrUnsupportedProvider)
		assert.Empty(t, f.transcript(t))
	})

	t.Run("provider failure", func(t *testing.T) {
		f := newFixture(t)
		f.provider.err = errors.New("rate limited")
		_, err := f.executor.Run(context.Background(), f.command(t, "hi"))
		require.Error(t, err)
		assert.True(t, api.IsKind(err, api.KindProvider))

		var ae *api.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, 1, ae.Iteration)
		assert.Equal(t, "owl", ae.ConversationID)
		assert.Contains(t, f.hook.types(), events.TypeFailed)

		// the user turn stays persisted
		assert.Len(t, f.transcript(t), 1)
	})

	t.Run("empty provider reply", func(t *testing.T) {
		f := newFixture(t, "  ")
		_, err := f.executor.Run(context.Background(), f.command(t, "hi"))
		assert.True(t, api.IsKind(err, api.KindProvider))
		assert.ErrorIs(t, err, provider.ErrEmptyResponse)
	})

	t.Run("invalid command", func(t *testing.T) {
		f := newFixture(t, "unused")
		cmd := f.command(t, "hi").WithMaxIterations(0)
		_, err := f.executor.Run(context.Background(), cmd)
		assert.True(t, api.IsKind(err, api.KindConfig))
	})

	t.Run("history read failure", func(t *testing.T) {
		f := newFixture(t, "unused")
		f.executor.store = &failingStore{Store: f.store, tailErr: errors.New("disk gone")}
		_, err := f.executor.Run(context.Background(), f.command(t, "hi"))
		assert.True(t, api.IsKind(err, api.KindStorage))
		assert.Empty(t, f.provider.Calls())
	})

	t.Run("append failure", func(t *testing.T) {
		f := newFixture(t, "reply")
		f.executor.store = &failingStore{Store: f.store, appendErr: errors.New("read only"), failAfter: 1}
		_, err := f.executor.Run(context.Background(), f.command(t, "hi"))
		require.Error(t, err)
		assert.True(t, api.IsKind(err, api.KindStorage))

		var ae *api.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, 1, ae.Iteration)
	})
}

func TestLocal_Run_RestrictsTools(t *testing.T) {
	f := newFixture(t, "ok")
	cmd := f.command(t, "hi")
	cmd.Being.Tools = []string{"get_current_time"}
	_, err := f.executor.Run(context.Background(), cmd)
	require.NoError(t, err)

	instructions := f.provider.Calls()[0].Instructions
	assert.Contains(t, instructions, "get_current_time")
	assert.NotContains(t, instructions, "weather(")
}

func TestOrchestration_Synthesize(t *testing.T) {
	o := newOrchestration("What now?", nil)
	o.toolResults = []string{"a", "b"}
	assert.Equal(t,
		"The user asked: What now?\n\nTool results so far:\n1. a\n2. b\n\nUsing these results, answer the user's request. If you still need information, call another tool.",
		o.synthesize(),
	)
}

func TestOrchestration_Observe(t *testing.T) {
	o := newOrchestration("m", nil)
	a := toolcall.Parse(`FUNCTION: weather PARAMS: {"location": "x"}`)[0].Signature()
	b := toolcall.Parse(`FUNCTION: weather PARAMS: {"location": "y"}`)[0].Signature()

	assert.False(t, o.observe(a))
	assert.False(t, o.observe(a))
	assert.True(t, o.observe(a))
	assert.False(t, o.observe(b))
	assert.Equal(t, 1, o.repeatCount)

	o.resetStreak()
	assert.True(t, o.lastSignature.IsZero())
	assert.Zero(t, o.repeatCount)
}
