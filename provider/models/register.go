package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/casualjim/hoot/api"
	"github.com/casualjim/hoot/internal/registry"
	"github.com/casualjim/hoot/provider"
	"github.com/casualjim/hoot/provider/anthropic"
	"github.com/casualjim/hoot/provider/langchain"
	"github.com/casualjim/hoot/provider/openai"
)

// Provider identifiers accepted in being definitions.
const (
	OpenRouter = "openRouter"
	OpenAI     = "openAI"
	Anthropic  = "anthropic"
	Google     = "google"
	Local      = "local"
)

// Factory builds a provider for the given model. An empty model selects the
// backend's default.
type Factory func(ctx context.Context, model string) (provider.Provider, error)

// Credentials configure one backend.
type Credentials struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Settings holds credentials for every built-in backend.
type Settings struct {
	OpenRouter Credentials
	OpenAI     Credentials
	Anthropic  Credentials
	Google     Credentials
	Local      Credentials
}

// Registry resolves provider identifiers to providers. Resolved providers are cached
// per identifier and model.
type Registry struct {
	factories registry.Registry[Factory]
	resolved  registry.Registry[provider.Provider]
}

func New() *Registry {
	return &Registry{
		factories: registry.New[Factory](),
		resolved:  registry.New[provider.Provider](),
	}
}

// Default returns a registry with all built-in backends.
func Default(s Settings) *Registry {
	r := New()
	r.Register(OpenRouter, func(_ context.Context, model string) (provider.Provider, error) {
		if model == "" {
			model = s.OpenRouter.Model
		}
		p := openai.NewOpenRouter(s.OpenRouter.APIKey, model)
		if s.OpenRouter.BaseURL != "" {
			p = openai.New(openai.Config{Name: OpenRouter, APIKey: s.OpenRouter.APIKey, BaseURL: s.OpenRouter.BaseURL, Model: p.Model()})
		}
		return p, nil
	})
	r.Register(OpenAI, func(_ context.Context, model string) (provider.Provider, error) {
		return openai.New(openai.Config{Name: OpenAI, APIKey: s.OpenAI.APIKey, BaseURL: s.OpenAI.BaseURL, Model: orDefault(model, s.OpenAI.Model)}), nil
	})
	r.Register(Anthropic, func(_ context.Context, model string) (provider.Provider, error) {
		return anthropic.New(anthropic.Config{APIKey: s.Anthropic.APIKey, BaseURL: s.Anthropic.BaseURL, Model: orDefault(model, s.Anthropic.Model)}), nil
	})
	r.Register(Google, func(_ context.Context, model string) (provider.Provider, error) {
		return langchain.NewGoogle(s.Google.APIKey, orDefault(model, s.Google.Model)), nil
	})
	r.Register(Local, func(_ context.Context, model string) (provider.Provider, error) {
		return langchain.NewOllama(s.Local.BaseURL, orDefault(model, s.Local.Model)), nil
	})
	return r
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// Register adds or replaces a backend factory. Cached providers are kept.
func (r *Registry) Register(id string, f Factory) {
	r.factories.Add(id, f)
}

// Names lists the registered identifiers.
func (r *Registry) Names() []string {
	return r.factories.Names()
}

// Resolve returns the provider for id. An empty id yields api.ErrMissingProvider and
// an unknown id api.ErrUnsupportedProvider.
func (r *Registry) Resolve(ctx context.Context, id, model string) (provider.Provider, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, api.ErrMissingProvider
	}
	f, ok := r.factories.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", api.ErrUnsupportedProvider, id)
	}

	key := id + "\x00" + model
	if p, ok := r.resolved.Get(key); ok {
		return p, nil
	}
	p, err := f(ctx, model)
	if err != nil {
		return nil, err
	}
	r.resolved.Add(key, p)
	return p, nil
}
