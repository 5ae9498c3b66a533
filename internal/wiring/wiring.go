// Package wiring builds the gateway's core services from config, shared by
// the long-running server (cmd/perpgated) and the operator CLI
// (cmd/perpgatectl) so both construct the exact same pipeline.
package wiring

import (
	"context"

	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/derivation"
	"github.com/ai-agentic-browser/internal/evaluation"
	"github.com/ai-agentic-browser/internal/ingestor"
	"github.com/ai-agentic-browser/internal/kv"
	"github.com/ai-agentic-browser/internal/marketsource"
	"github.com/ai-agentic-browser/internal/notify"
	"github.com/ai-agentic-browser/pkg/observability"
)

// Services bundles the constructed core of the gateway.
type Services struct {
	Store    kv.Store
	Source   marketsource.MarketSource
	Resolver *marketsource.Resolver
	Notifier notify.Notifier
	Engine   *derivation.Engine
	Pipeline *evaluation.Pipeline
	Ingestor *ingestor.Ingestor
}

// Build wires the store, market source, resolver, notifier, derivation
// engine, evaluation pipeline, and ingestor from cfg. useRedis selects the
// Redis-backed store; callers that only need a throwaway store (e.g. a dry
// local replay) can pass false to get an in-memory one instead.
func Build(ctx context.Context, cfg *config.Config, logger *observability.Logger, useRedis bool) (*Services, error) {
	var store kv.Store
	if useRedis {
		redisStore, err := kv.NewRedisStore(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		store = redisStore
	} else {
		store = kv.NewMemoryStore()
	}

	source := marketsource.NewOKXClient(marketsource.Config{
		BaseURL:           cfg.MarketSource.BaseURL,
		Timeout:           cfg.MarketSource.Timeout,
		RequestsPerSecond: cfg.MarketSource.RequestsPerSecond,
		Burst:             cfg.MarketSource.Burst,
	}, logger)
	resolver := marketsource.NewResolver(store, source)

	var notifier notify.Notifier
	if cfg.Notify.TelegramBotToken != "" {
		notifier = notify.NewTelegramNotifier(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID)
	} else {
		notifier = &notify.Fake{}
	}

	engine := derivation.New(store, logger)
	pipeline := evaluation.NewPipeline(store, engine, resolver, notifier, cfg.Gateway, logger)
	ing := ingestor.New(store, source, logger)

	return &Services{
		Store:    store,
		Source:   source,
		Resolver: resolver,
		Notifier: notifier,
		Engine:   engine,
		Pipeline: pipeline,
		Ingestor: ing,
	}, nil
}
