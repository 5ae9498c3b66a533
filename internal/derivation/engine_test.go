package derivation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ai-agentic-browser/internal/kv"
	"github.com/ai-agentic-browser/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putSnapshot(t *testing.T, store kv.Store, inst string, bucket int64, price float64) {
	t.Helper()
	p := decimal.NewFromFloat(price)
	snap := model.SnapshotPoint{Ts: bucket * model.BucketMillis, Price: &p}
	encoded, err := json.Marshal(snap)
	require.NoError(t, err)
	_, err = store.SetNX(context.Background(), kv.SnapshotKey(inst, bucket), encoded, kv.SnapshotTTL)
	require.NoError(t, err)
}

func TestEngine_SnapshotMissing(t *testing.T) {
	store := kv.NewMemoryStore()
	eng := New(store, nil)

	result, err := eng.Derive(context.Background(), "ETH-USDT-SWAP", 100)
	require.NoError(t, err)
	assert.True(t, result.SnapshotMissing)
	assert.Equal(t, 1, result.Debug.SnapshotMisses)
	assert.Equal(t, 0, result.Debug.MarketCalls, "derivation must never call the market source")
}

func TestEngine_AppendsOncePerBucketAndTrimsTo288(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	eng := New(store, nil)

	for b := int64(0); b < 300; b++ {
		putSnapshot(t, store, "ETH-USDT-SWAP", b, 1000+float64(b))
		_, err := eng.Derive(ctx, "ETH-USDT-SWAP", b)
		require.NoError(t, err)
		// Running derive twice in the same bucket must append exactly once.
		_, err = eng.Derive(ctx, "ETH-USDT-SWAP", b)
		require.NoError(t, err)
	}

	raw, ok, err := store.Get(ctx, kv.SeriesKey("ETH-USDT-SWAP"))
	require.NoError(t, err)
	require.True(t, ok)
	var series []model.SeriesPoint
	require.NoError(t, json.Unmarshal(raw, &series))
	assert.Len(t, series, model.SeriesLength)
	assert.Equal(t, int64(299), series[len(series)-1].B)
	assert.Equal(t, int64(12), series[0].B) // 299 - 288 + 1
}

func TestEngine_DeltaWarmupBeforeEnoughPoints(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	eng := New(store, nil)

	putSnapshot(t, store, "ETH-USDT-SWAP", 0, 1900)
	result, err := eng.Derive(ctx, "ETH-USDT-SWAP", 0)
	require.NoError(t, err)

	assert.True(t, result.Deltas[model.TF1h].Warmup)
	assert.True(t, result.Levels[model.TF1h].Warmup)
}

func TestEngine_DeltaAndLevelsAfterWarmup(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	eng := New(store, nil)

	prices := []float64{1940.00, 1945, 1950, 1955, 1960, 1965, 1970, 1975, 1980, 1985, 1987.56, 1970, 1988.00}
	var result Result
	var err error
	for b, price := range prices {
		putSnapshot(t, store, "ETH-USDT-SWAP", int64(b), price)
		result, err = eng.Derive(ctx, "ETH-USDT-SWAP", int64(b))
		require.NoError(t, err)
	}

	assert.False(t, result.Levels[model.TF1h].Warmup)
	hi := result.Levels[model.TF1h].Hi
	assert.True(t, hi.Equal(decimal.NewFromFloat(1987.56)), "hi tracks the closed history, excluding the just-appended current bucket: got %s", hi)

	delta5m := result.Deltas[model.TF5m]
	require.NotNil(t, delta5m.PriceChangePct)
	assert.True(t, delta5m.PriceChangePct.GreaterThan(decimal.Zero))
}
