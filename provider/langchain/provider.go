package langchain

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/provider"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	// DefaultGoogleModel is used when no Gemini model is configured.
	DefaultGoogleModel = "gemini-2.0-flash"
	// DefaultOllamaModel is used when no local model is configured.
	DefaultOllamaModel = "llama3.2"
	// DefaultOllamaURL is the address of a stock Ollama install.
	DefaultOllamaURL = "http://localhost:11434"

	defaultTemperature = 0.1
)

// Builder constructs the underlying model on first use.
type Builder func(context.Context) (llms.Model, error)

// Config describes a langchaingo backed provider.
type Config struct {
	Name  string
	Model string
	// InlineSystem folds the system prompt into the first user message for models
	// that reject system messages.
	InlineSystem bool
}

var _ provider.Provider = (*Provider)(nil)

type Provider struct {
	cfg   Config
	build Builder

	once     sync.Once
	llm      llms.Model
	buildErr error
}

// New creates a provider that builds its model lazily.
func New(cfg Config, build Builder) *Provider {
	return &Provider{cfg: cfg, build: build}
}

// Wrap creates a provider around an existing model.
func Wrap(cfg Config, llm llms.Model) *Provider {
	return New(cfg, func(context.Context) (llms.Model, error) { return llm, nil })
}

// NewGoogle creates a Gemini provider.
func NewGoogle(apiKey, model string) *Provider {
	if model == "" {
		model = DefaultGoogleModel
	}
	return New(Config{Name: "google", Model: model, InlineSystem: true}, func(ctx context.Context) (llms.Model, error) {
		if strings.TrimSpace(apiKey) == "" {
			return nil, provider.ErrMissingCredentials
		}
		return googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	})
}

// NewOllama creates a provider for a local Ollama server.
func NewOllama(serverURL, model string) *Provider {
	if model == "" {
		model = DefaultOllamaModel
	}
	if serverURL == "" {
		serverURL = DefaultOllamaURL
	}
	return New(Config{Name: "local", Model: model}, func(context.Context) (llms.Model, error) {
		return ollama.New(ollama.WithModel(model), ollama.WithServerURL(serverURL))
	})
}

func (p *Provider) Name() string { return p.cfg.Name }

// Model returns the configured model identifier.
func (p *Provider) Model() string { return p.cfg.Model }

func (p *Provider) model(ctx context.Context) (llms.Model, error) {
	p.once.Do(func() {
		p.llm, p.buildErr = p.build(ctx)
	})
	return p.llm, p.buildErr
}

func (p *Provider) Generate(ctx context.Context, params provider.CompletionParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", provider.Wrap(p.cfg.Name, p.cfg.Model, err)
	}
	llm, err := p.model(ctx)
	if err != nil {
		return "", provider.Wrap(p.cfg.Name, p.cfg.Model, err)
	}

	content := buildMessages(params.Instructions, provider.Transcript(params.History, params.Message), p.cfg.InlineSystem)
	slog.DebugContext(ctx, "generating content",
		slogx.LoggerName("provider.langchain"),
		slogx.Run(params.RunID),
		slog.String("provider", p.cfg.Name),
		slog.String("model", p.cfg.Model),
		slog.Int("messages", len(content)),
	)

	resp, err := llm.GenerateContent(ctx, content, llms.WithTemperature(defaultTemperature))
	if err != nil {
		return "", provider.Wrap(p.cfg.Name, p.cfg.Model, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", provider.Wrap(p.cfg.Name, p.cfg.Model, provider.ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", provider.Wrap(p.cfg.Name, p.cfg.Model, provider.ErrEmptyResponse)
	}
	return text, nil
}

func buildMessages(instructions string, entries []provider.Entry, inlineSystem bool) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(entries)+1)
	instructions = strings.TrimSpace(instructions)
	if instructions != "" && !inlineSystem {
		result = append(result, llms.TextParts(llms.ChatMessageTypeSystem, instructions))
	}

	inlined := instructions == "" || !inlineSystem
	for _, e := range entries {
		switch e.Role {
		case messages.RoleAssistant:
			result = append(result, llms.TextParts(llms.ChatMessageTypeAI, e.Content))
		default:
			text := e.Content
			if !inlined {
				text = instructions + "\n\n" + text
				inlined = true
			}
			result = append(result, llms.TextParts(llms.ChatMessageTypeHuman, text))
		}
	}
	return result
}
