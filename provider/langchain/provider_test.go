package langchain

import (
	"context"
	"errors"
	"testing"

	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	reply string
	err   error
	seen  []llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, msgs []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.seen = msgs
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textOf(t *testing.T, mc llms.MessageContent) string {
	t.Helper()
	require.Len(t, mc.Parts, 1)
	tc, ok := mc.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestProvider_Generate(t *testing.T) {
	fm := &fakeModel{reply: " hoot hoot "}
	p := Wrap(Config{Name: "local", Model: "m"}, fm)

	text, err := p.Generate(context.Background(), provider.CompletionParams{
		Instructions: "sys",
		Message:      "hi",
		History:      []messages.Turn{messages.User("earlier"), messages.Assistant("reply")},
	})
	require.NoError(t, err)
	assert.Equal(t, "hoot hoot", text)

	require.Len(t, fm.seen, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, fm.seen[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, fm.seen[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, fm.seen[2].Role)
	assert.Equal(t, "hi", textOf(t, fm.seen[3]))
}

func TestProvider_Generate_InlineSystem(t *testing.T) {
	fm := &fakeModel{reply: "ok"}
	p := Wrap(Config{Name: "google", InlineSystem: true}, fm)

	_, err := p.Generate(context.Background(), provider.CompletionParams{Instructions: "sys", Message: "hi"})
	require.NoError(t, err)
	require.Len(t, fm.seen, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, fm.seen[0].Role)
	assert.Equal(t, "sys\n\nhi", textOf(t, fm.seen[0]))
}

func TestProvider_Generate_Errors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Wrap(Config{Name: "local"}, &fakeModel{err: boom}).Generate(context.Background(), provider.CompletionParams{Message: "hi"})
	assert.ErrorIs(t, err, boom)

	_, err = Wrap(Config{Name: "local"}, &fakeModel{reply: ""}).Generate(context.Background(), provider.CompletionParams{Message: "hi"})
	assert.ErrorIs(t, err, provider.ErrEmptyResponse)
}

func TestNewGoogle_MissingCredentials(t *testing.T) {
	p := NewGoogle("", "")
	assert.Equal(t, "google", p.Name())
	assert.Equal(t, DefaultGoogleModel, p.Model())

	_, err := p.Generate(context.Background(), provider.CompletionParams{Message: "hi"})
	assert.ErrorIs(t, err, provider.ErrMissingCredentials)
}

func TestNewOllama_Defaults(t *testing.T) {
	p := NewOllama("", "")
	assert.Equal(t, "local", p.Name())
	assert.Equal(t, DefaultOllamaModel, p.Model())
}

func TestProvider_BuildsOnce(t *testing.T) {
	calls := 0
	p := New(Config{Name: "x"}, func(context.Context) (llms.Model, error) {
		calls++
		return &fakeModel{reply: "r"}, nil
	})
	for range 3 {
		_, err := p.Generate(context.Background(), provider.CompletionParams{Message: "hi"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}
