package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// OpenRouterBaseURL is the OpenAI-compatible endpoint of OpenRouter.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1/"
	// DefaultOpenRouterModel is used when no model is configured for OpenRouter.
	DefaultOpenRouterModel = "moonshotai/kimi-k2:free"
	// DefaultModel is used when no model is configured for OpenAI.
	DefaultModel = openai.ChatModelGPT4oMini

	defaultTemperature = 0.1
)

// Config describes one OpenAI-compatible endpoint.
type Config struct {
	// Name is reported by Provider.Name, e.g. "openAI" or "openRouter"
	Name string
	// APIKey is required; Generate fails without it
	APIKey string
	// BaseURL overrides the API endpoint
	BaseURL string
	// Model is the chat model identifier
	Model string
	// Temperature defaults to 0.1 when zero
	Temperature float64
	// Headers are sent with every request
	Headers map[string]string
}

var _ provider.Provider = (*Provider)(nil)

type Provider struct {
	client *openai.Client
	cfg    Config
}

// New creates a provider for an OpenAI-compatible chat completions endpoint.
// Additional request options are applied after the ones derived from cfg.
func New(cfg Config, options ...option.RequestOption) *Provider {
	if cfg.Name == "" {
		cfg.Name = "openAI"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}

	opts := make([]option.RequestOption, 0, len(options)+len(cfg.Headers)+2)
	opts = append(opts, option.WithAPIKey(cfg.APIKey))
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	opts = append(opts, options...)

	return &Provider{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}
}

// NewOpenRouter creates a provider that talks to OpenRouter.
func NewOpenRouter(apiKey, model string, options ...option.RequestOption) *Provider {
	if model == "" {
		model = DefaultOpenRouterModel
	}
	return New(Config{
		Name:    "openRouter",
		APIKey:  apiKey,
		BaseURL: OpenRouterBaseURL,
		Model:   model,
		Headers: map[string]string{"X-Title": "hoot"},
	}, options...)
}

func (p *Provider) Name() string { return p.cfg.Name }

// Model returns the configured chat model.
func (p *Provider) Model() string { return p.cfg.Model }

func (p *Provider) Generate(ctx context.Context, params provider.CompletionParams) (string, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return "", provider.Wrap(p.cfg.Name, p.cfg.Model, provider.ErrMissingCredentials)
	}
	if err := params.Validate(); err != nil {
		return "", provider.Wrap(p.cfg.Name, p.cfg.Model, err)
	}

	req := p.buildRequest(&params)
	slog.DebugContext(ctx, "sending chat completion request",
		slogx.LoggerName("provider.openai"),
		slogx.Run(params.RunID),
		slog.String("provider", p.cfg.Name),
		slog.String("model", p.cfg.Model),
		slog.Int("messages", len(req.Messages.Value)),
	)

	chat, err := p.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", provider.Wrap(p.cfg.Name, p.cfg.Model, err)
	}
	if len(chat.Choices) == 0 {
		return "", provider.Wrap(p.cfg.Name, p.cfg.Model, provider.ErrEmptyResponse)
	}
	text := strings.TrimSpace(chat.Choices[0].Message.Content)
	if text == "" {
		return "", provider.Wrap(p.cfg.Name, p.cfg.Model, provider.ErrEmptyResponse)
	}
	return text, nil
}

func (p *Provider) buildRequest(params *provider.CompletionParams) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Messages:    openai.F(messagesToOpenAI(params.Instructions, provider.Transcript(params.History, params.Message))),
		Model:       openai.F(p.cfg.Model),
		N:           openai.Int(1),
		Temperature: openai.Float(p.cfg.Temperature),
	}
}

func messagesToOpenAI(instructions string, entries []provider.Entry) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(entries)+1)
	if strings.TrimSpace(instructions) != "" {
		result = append(result, openai.SystemMessage(instructions))
	}
	for _, e := range entries {
		switch e.Role {
		case messages.RoleAssistant:
			am := openai.ChatCompletionAssistantMessageParam{
				Role: openai.F(openai.ChatCompletionAssistantMessageParamRoleAssistant),
			}
			am.Content.Value = append(am.Content.Value, openai.TextPart(e.Content))
			result = append(result, am)
		default:
			result = append(result, openai.UserMessageParts(openai.TextPart(e.Content)))
		}
	}
	return result
}
