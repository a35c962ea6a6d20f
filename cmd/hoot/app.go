package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casualjim/hoot"
	"github.com/casualjim/hoot/being"
	"github.com/casualjim/hoot/config"
	"github.com/casualjim/hoot/events"
	"github.com/casualjim/hoot/internal/broker"
	"github.com/casualjim/hoot/pkg/natsx"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/provider/models"
	"github.com/casualjim/hoot/retrieval/bleve"
	"github.com/casualjim/hoot/store"
	"github.com/casualjim/hoot/store/bolt"
	"github.com/casualjim/hoot/store/memory"
	"github.com/casualjim/hoot/tool"
	"github.com/casualjim/hoot/tools/builtin"
	"github.com/nats-io/nats.go"
)

// app is a fully wired runtime plus the resources it owns.
type app struct {
	rt     *hoot.Runtime
	index  *bleve.Index
	events broker.Broker
	closer []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closer) - 1; i >= 0; i-- {
		errs = append(errs, a.closer[i]())
	}
	return errors.Join(errs...)
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	default:
		st, err := bolt.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

func settings(cfg *config.Config) models.Settings {
	cred := func(p config.ProviderConfig) models.Credentials {
		return models.Credentials{APIKey: p.APIKey, BaseURL: p.BaseURL, Model: p.Model}
	}
	return models.Settings{
		OpenRouter: cred(cfg.Providers.OpenRouter),
		OpenAI:     cred(cfg.Providers.OpenAI),
		Anthropic:  cred(cfg.Providers.Anthropic),
		Google:     cred(cfg.Providers.Google),
		Local:      cred(cfg.Providers.Local),
	}
}

// buildIndex indexes the being's knowledge and the configured knowledge
// directory.
func buildIndex(ctx context.Context, cfg *config.Config, b *being.Being) (*bleve.Index, error) {
	index, err := bleve.New()
	if err != nil {
		return nil, err
	}
	if len(b.Knowledge) > 0 {
		if _, err := index.AddDocument("being:"+b.ContextID, strings.Join(b.Knowledge, "\n\n")); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("index being knowledge: %w", err)
		}
	}
	if cfg.Retrieval.Knowledge != "" {
		stats, err := index.IngestDir(ctx, cfg.Retrieval.Knowledge)
		if err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("ingest %s: %w", cfg.Retrieval.Knowledge, err)
		}
		slog.InfoContext(ctx, "knowledge indexed",
			slogx.LoggerName("hoot"),
			slog.Int("files", stats.Files),
			slog.Int("chunks", stats.Chunks),
		)
	}
	return index, nil
}

// eventBroker connects to NATS when a url is configured and falls back to the
// in-process broker.
func eventBroker(cfg *config.Config) (broker.Broker, func() error, error) {
	if cfg.NATS.URL == "" {
		return broker.Local(), func() error { return nil }, nil
	}
	conn, err := natsx.Connect(cfg.NATS.URL, nats.MaxReconnects(-1))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}
	return broker.NATS(conn, cfg.NATS.Prefix), func() error {
		return conn.Drain()
	}, nil
}

func newApp(ctx context.Context, cfg *config.Config, extraHooks ...events.Hook) (*app, error) {
	b, err := being.Load(cfg.Being)
	if err != nil {
		return nil, err
	}

	a := &app{}
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	index, err := buildIndex(ctx, cfg, b)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	a.index = index
	a.closer = append(a.closer, index.Close)

	evb, closeBroker, err := eventBroker(cfg)
	if err != nil {
		_ = a.Close()
		_ = st.Close()
		return nil, err
	}
	a.events = evb
	a.closer = append(a.closer, closeBroker)

	tools := tool.NewRegistry()
	if err := builtin.Register(tools, nil); err != nil {
		_ = a.Close()
		_ = st.Close()
		return nil, err
	}

	hooks := append([]events.Hook{
		events.LogHook(slog.Default()),
		broker.PublishingHook(evb.Topic(ctx, b.ContextID)),
	}, extraHooks...)

	rt, err := hoot.New(
		hoot.WithBeing(b),
		hoot.WithTools(tools),
		hoot.WithStore(st),
		hoot.WithProviders(models.Default(settings(cfg))),
		hoot.WithRetriever(index),
		hoot.WithMaxIterations(cfg.Agent.MaxIterations),
		hoot.WithHistoryLimit(cfg.Agent.HistoryLimit),
		hoot.WithParallelism(cfg.Agent.Parallelism),
		hoot.WithTopK(cfg.Retrieval.TopK),
		hoot.WithHooks(hooks[0], hooks[1:]...),
	)
	if err != nil {
		_ = a.Close()
		_ = st.Close()
		return nil, err
	}
	a.rt = rt
	a.closer = append(a.closer, rt.Close)
	return a, nil
}
