package wiring

import (
	"context"
	"testing"
	"time"

	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/notify"
	"github.com/ai-agentic-browser/pkg/observability"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		MarketSource: config.MarketSourceConfig{
			BaseURL:           "https://example.invalid",
			Timeout:           5 * time.Second,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Gateway: config.GatewayConfig{CooldownMinutes: 20},
	}
}

func TestBuild_WithMemoryStoreWiresEveryService(t *testing.T) {
	logger := observability.NewLogger(config.ObservabilityConfig{LogLevel: "error", LogFormat: "json"})

	svc, err := Build(context.Background(), testConfig(), logger, false)
	require.NoError(t, err)

	require.NotNil(t, svc.Store)
	require.NotNil(t, svc.Source)
	require.NotNil(t, svc.Resolver)
	require.NotNil(t, svc.Notifier)
	require.NotNil(t, svc.Engine)
	require.NotNil(t, svc.Pipeline)
	require.NotNil(t, svc.Ingestor)
}

func TestBuild_FallsBackToFakeNotifierWithoutTelegramToken(t *testing.T) {
	logger := observability.NewLogger(config.ObservabilityConfig{LogLevel: "error", LogFormat: "json"})

	svc, err := Build(context.Background(), testConfig(), logger, false)
	require.NoError(t, err)

	_, isFake := svc.Notifier.(*notify.Fake)
	require.True(t, isFake, "expected the Fake notifier when no Telegram token is configured")
}
