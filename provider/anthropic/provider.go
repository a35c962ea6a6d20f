package anthropic

import (
	"context"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/provider"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = string(anthropic.ModelClaude3_7SonnetLatest)

	defaultMaxTokens   = 1024
	defaultTemperature = 0.1
)

// Config describes the Anthropic backend.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
}

var _ provider.Provider = (*Provider)(nil)

type Provider struct {
	client anthropic.Client
	cfg    Config
}

func New(cfg Config, options ...option.RequestOption) *Provider {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, options...)

	return &Provider{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
	}
}

func (p *Provider) Name() string { return "anthropic" }

// Model returns the configured model identifier.
func (p *Provider) Model() string { return p.cfg.Model }

func (p *Provider) Generate(ctx context.Context, params provider.CompletionParams) (string, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return "", provider.Wrap(p.Name(), p.cfg.Model, provider.ErrMissingCredentials)
	}
	if err := params.Validate(); err != nil {
		return "", provider.Wrap(p.Name(), p.cfg.Model, err)
	}

	req := p.buildRequest(&params)
	slog.DebugContext(ctx, "sending messages request",
		slogx.LoggerName("provider.anthropic"),
		slogx.Run(params.RunID),
		slog.String("model", p.cfg.Model),
		slog.Int("messages", len(req.Messages)),
	)

	msg, err := p.client.Messages.New(ctx, req)
	if err != nil {
		return "", provider.Wrap(p.Name(), p.cfg.Model, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", provider.Wrap(p.Name(), p.cfg.Model, provider.ErrEmptyResponse)
	}
	return text, nil
}

func (p *Provider) buildRequest(params *provider.CompletionParams) anthropic.MessageNewParams {
	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.cfg.Model),
		MaxTokens:   p.cfg.MaxTokens,
		Messages:    toMessages(provider.Transcript(params.History, params.Message)),
		Temperature: anthropic.Float(defaultTemperature),
	}
	if strings.TrimSpace(params.Instructions) != "" {
		req.System = []anthropic.TextBlockParam{{Text: params.Instructions}}
	}
	return req
}

func toMessages(entries []provider.Entry) []anthropic.MessageParam {
	entries = provider.Merge(entries)
	for len(entries) > 0 && entries[0].Role != messages.RoleUser {
		entries = entries[1:]
	}

	conv := make([]anthropic.MessageParam, 0, len(entries))
	for _, e := range entries {
		switch e.Role {
		case messages.RoleAssistant:
			conv = append(conv, anthropic.NewAssistantMessage(anthropic.NewTextBlock(e.Content)))
		default:
			conv = append(conv, anthropic.NewUserMessage(anthropic.NewTextBlock(e.Content)))
		}
	}
	return conv
}
