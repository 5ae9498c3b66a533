package evaluation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/derivation"
	"github.com/ai-agentic-browser/internal/kv"
	"github.com/ai-agentic-browser/internal/marketsource"
	"github.com/ai-agentic-browser/internal/model"
	"github.com/ai-agentic-browser/internal/notify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		CooldownMinutes:    20,
		DefaultMode:        "scalp",
		DefaultRiskProfile: "standard",

		MomentumMin:        0.10,
		ShockOIMin:         0.50,
		ShockPriceMin:      0.20,
		EdgePct1h:          0.15,
		SwingMinOIPct:      -0.50,
		SwingReversalMin5m: 0.05,
		ScalpSweepLookback: 3,

		MacroEnabled:       false,
		MacroBTCSymbol:     "BTCUSDT",
		MacroBTC4hPriceMin: 2.0,
		MacroBTC4hOIMin:    0.5,
		MacroBlockShorts:   true,

		RegimeEnabled: false,

		LeverageMaxCap:          10,
		LeverageRiskBudgetPct:   1.0,
		LeverageInstabilityHigh: 1.0,
		LeverageFundingHigh:     0.03,

		HeartbeatKey:        "alert:lastRun",
		HeartbeatTTLSeconds: 24 * 60 * 60,
	}
}

// seedSnapshot writes a single bucket's raw observation directly, bypassing
// the ingestor, mirroring the derivation package's own test helpers.
func seedSnapshot(t *testing.T, store kv.Store, inst string, bucket int64, price, oi, funding float64) {
	t.Helper()
	p := decimal.NewFromFloat(price)
	o := decimal.NewFromFloat(oi)
	f := decimal.NewFromFloat(funding)
	snap := model.SnapshotPoint{Ts: bucket * model.BucketMillis, Price: &p, OpenInterestContracts: &o, FundingRate: &f}
	encoded, err := json.Marshal(snap)
	require.NoError(t, err)
	_, err = store.SetNX(context.Background(), kv.SnapshotKey(inst, bucket), encoded, kv.SnapshotTTL)
	require.NoError(t, err)
}

// buildHistory derives every bucket up to but not including the final one,
// which is left for the pipeline's own evaluation call to append -- exactly
// as it would happen against a live ingestor feed.
func buildHistory(t *testing.T, store kv.Store, eng *derivation.Engine, inst string, startBucket int64, prices, ois []float64, funding float64) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < len(prices)-1; i++ {
		b := startBucket + int64(i)
		seedSnapshot(t, store, inst, b, prices[i], ois[i], funding)
		_, err := eng.Derive(ctx, inst, b)
		require.NoError(t, err)
	}
	last := len(prices) - 1
	seedSnapshot(t, store, inst, startBucket+int64(last), prices[last], ois[last], funding)
}

func resolveTo(t *testing.T, store kv.Store, base, instrument string) {
	t.Helper()
	err := store.Set(context.Background(), kv.InstrumentMapKey(base), []byte(instrument), kv.InstrumentMapTTL)
	require.NoError(t, err)
}

// ethLongBreakoutPrices/OIs ramp ETH up through a 1h range topping out at
// 1987.56, dips, then breaks out to 1988.00 on the current bucket -- the
// scalp long breakout scenario.
var ethLongBreakoutPrices = []float64{1940.00, 1945, 1950, 1955, 1960, 1965, 1970, 1975, 1980, 1985, 1987.56, 1970, 1988.00}
var ethLongBreakoutOIs = []float64{100000, 100200, 100400, 100600, 100800, 101000, 101200, 101400, 101600, 101800, 102200, 102200, 102800}

func TestPipeline_ScalpLongBreakout(t *testing.T) {
	store := kv.NewMemoryStore()
	eng := derivation.New(store, nil)
	resolver := marketsource.NewResolver(store, &marketsource.Fake{})
	resolveTo(t, store, "ETH", "ETH-USDT-SWAP")

	const currentBucket = int64(12)
	buildHistory(t, store, eng, "ETH-USDT-SWAP", 0, ethLongBreakoutPrices, ethLongBreakoutOIs, 0.0001)

	notifier := &notify.Fake{}
	pipe := NewPipeline(store, eng, resolver, notifier, testGatewayConfig(), nil)

	now := time.UnixMilli(currentBucket*model.BucketMillis + 1000)
	result, err := pipe.Run(context.Background(), []string{"ETHUSDT"}, Options{
		Modes: []model.Mode{model.ModeScalp},
		Now:   now,
	})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)

	outcome := result.Outcomes[0]
	require.True(t, outcome.Triggered, "expected a winning candidate, skip reasons: %v", outcome.SkipReasons)
	require.NotNil(t, outcome.Winner)
	assert.Equal(t, model.ModeScalp, outcome.Winner.Mode)
	assert.Equal(t, model.LeanLong, outcome.Winner.Bias)
	assert.Equal(t, ExecLongBreakout, outcome.Winner.ExecReason)
	assert.Equal(t, 1, result.TriggeredCount)
	assert.Len(t, notifier.Messages, 1)
}

func TestPipeline_CooldownBlocksRepeatAlert(t *testing.T) {
	store := kv.NewMemoryStore()
	eng := derivation.New(store, nil)
	resolver := marketsource.NewResolver(store, &marketsource.Fake{})
	resolveTo(t, store, "ETH", "ETH-USDT-SWAP")

	const currentBucket = int64(12)
	buildHistory(t, store, eng, "ETH-USDT-SWAP", 0, ethLongBreakoutPrices, ethLongBreakoutOIs, 0.0001)

	now := time.UnixMilli(currentBucket*model.BucketMillis + 1000)
	// A notification went out 5 minutes ago; the 20-minute cooldown is
	// still in effect.
	recent := now.Add(-5 * time.Minute).UnixMilli()
	writer := NewWriter(store, false)
	require.NoError(t, writeLastSentAt(context.Background(), writer, "ETH-USDT-SWAP", time.UnixMilli(recent)))

	notifier := &notify.Fake{}
	pipe := NewPipeline(store, eng, resolver, notifier, testGatewayConfig(), nil)

	result, err := pipe.Run(context.Background(), []string{"ETHUSDT"}, Options{
		Modes: []model.Mode{model.ModeScalp},
		Now:   now,
	})
	require.NoError(t, err)
	outcome := result.Outcomes[0]
	assert.False(t, outcome.Triggered)
	assert.Equal(t, SkipCooldown, outcome.SkipReasons[model.ModeScalp])
	assert.Empty(t, notifier.Messages)
}

func TestPipeline_WarmupGateBlocksBeforeEnoughHistory(t *testing.T) {
	store := kv.NewMemoryStore()
	eng := derivation.New(store, nil)
	resolver := marketsource.NewResolver(store, &marketsource.Fake{})
	resolveTo(t, store, "ETH", "ETH-USDT-SWAP")

	prices := []float64{1940.00, 1945, 1988.00}
	ois := []float64{100000, 100200, 102800}
	const currentBucket = int64(2)
	buildHistory(t, store, eng, "ETH-USDT-SWAP", 0, prices, ois, 0.0001)

	notifier := &notify.Fake{}
	pipe := NewPipeline(store, eng, resolver, notifier, testGatewayConfig(), nil)

	now := time.UnixMilli(currentBucket*model.BucketMillis + 1000)
	result, err := pipe.Run(context.Background(), []string{"ETHUSDT"}, Options{
		Modes: []model.Mode{model.ModeScalp},
		Now:   now,
	})
	require.NoError(t, err)
	outcome := result.Outcomes[0]
	assert.False(t, outcome.Triggered)
	assert.Equal(t, SkipWarmupGate1h, outcome.SkipReasons[model.ModeScalp])
}

// ethShortBreakdownPrices/OIs mirror the long breakout scenario downward:
// ETH breaks down through a 1h low of 1940.44 on the current bucket.
var ethShortBreakdownPrices = []float64{1988.00, 1983, 1978, 1973, 1968, 1963, 1958, 1953, 1948, 1943, 1940.44, 1960, 1938.00}
var ethShortBreakdownOIs = []float64{100000, 100100, 100200, 100300, 100400, 100500, 100600, 100700, 100800, 100900, 101300, 101300, 101900}

// btcBullExpansionSeries gives BTC a 4h delta satisfying the bull
// expansion condition: price up >=2%, OI up >=0.5%, lean long.
func btcBullExpansionSeries() ([]float64, []float64) {
	prices := make([]float64, 49)
	ois := make([]float64, 49)
	for i := 0; i < 49; i++ {
		prices[i] = 60000 + float64(i)*(1500.0/48.0)
		ois[i] = 100000 + float64(i)*(700.0/48.0)
	}
	return prices, ois
}

func TestPipeline_MacroBlocksShortOnNonBTCDuringBullExpansion(t *testing.T) {
	store := kv.NewMemoryStore()
	eng := derivation.New(store, nil)
	resolver := marketsource.NewResolver(store, &marketsource.Fake{})
	resolveTo(t, store, "ETH", "ETH-USDT-SWAP")
	resolveTo(t, store, "BTC", "BTC-USDT-SWAP")

	const currentBucket = int64(1048)

	btcPrices, btcOIs := btcBullExpansionSeries()
	buildHistory(t, store, eng, "BTC-USDT-SWAP", currentBucket-48, btcPrices, btcOIs, 0.0001)
	buildHistory(t, store, eng, "ETH-USDT-SWAP", currentBucket-12, ethShortBreakdownPrices, ethShortBreakdownOIs, 0.0001)

	cfg := testGatewayConfig()
	cfg.MacroEnabled = true

	notifier := &notify.Fake{}
	pipe := NewPipeline(store, eng, resolver, notifier, cfg, nil)

	now := time.UnixMilli(currentBucket*model.BucketMillis + 1000)
	result, err := pipe.Run(context.Background(), []string{"ETHUSDT"}, Options{
		Modes: []model.Mode{model.ModeScalp},
		Now:   now,
	})
	require.NoError(t, err)
	require.True(t, result.Macro.BullExpansion, "expected BTC 4h bull expansion to be detected")

	outcome := result.Outcomes[0]
	assert.False(t, outcome.Triggered)
	assert.Equal(t, SkipMacroBlockBTCBullExpansion, outcome.SkipReasons[model.ModeScalp])
	assert.Empty(t, notifier.Messages)
}

func TestPipeline_ForceBypassesWarmupGateButNotUsableRangeFloor(t *testing.T) {
	store := kv.NewMemoryStore()
	eng := derivation.New(store, nil)
	resolver := marketsource.NewResolver(store, &marketsource.Fake{})
	resolveTo(t, store, "ETH", "ETH-USDT-SWAP")

	prices := []float64{1940.00, 1945, 1988.00}
	ois := []float64{100000, 100200, 102800}
	const currentBucket = int64(2)
	buildHistory(t, store, eng, "ETH-USDT-SWAP", 0, prices, ois, 0.0001)

	notifier := &notify.Fake{}
	pipe := NewPipeline(store, eng, resolver, notifier, testGatewayConfig(), nil)

	now := time.UnixMilli(currentBucket*model.BucketMillis + 1000)
	result, err := pipe.Run(context.Background(), []string{"ETHUSDT"}, Options{
		Modes: []model.Mode{model.ModeScalp},
		Now:   now,
		Force: true,
	})
	require.NoError(t, err)
	outcome := result.Outcomes[0]
	assert.False(t, outcome.Triggered, "force bypasses the warmup gate itself but not the minimum usable-range floor")
	assert.Equal(t, SkipMissingLevelsOrPrice, outcome.SkipReasons[model.ModeScalp])
}
