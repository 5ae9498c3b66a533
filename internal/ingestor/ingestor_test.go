package ingestor

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/ai-agentic-browser/internal/kv"
	"github.com/ai-agentic-browser/internal/marketsource"
	"github.com/ai-agentic-browser/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestor_WritesSnapshotOncePerBucket(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	fake := marketsource.NewFake()
	fake.Instruments = []marketsource.Instrument{{ID: "ETH-USDT-SWAP", Base: "ETH"}}
	price := decimal.NewFromFloat(1988.0)
	fake.Observations["ETH-USDT-SWAP"] = marketsource.Observation{Price: &price}

	ing := New(store, fake, nil)
	ing.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	results := ing.IngestBatch(ctx, []string{"ETHUSDT"})
	require.Len(t, results, 1)
	assert.True(t, results[0].OK)
	assert.False(t, results[0].AlreadyStored)

	// Second call in same bucket: idempotent, leaves first observation fixed.
	price2 := decimal.NewFromFloat(2500.0)
	fake.Observations["ETH-USDT-SWAP"] = marketsource.Observation{Price: &price2}
	results2 := ing.IngestBatch(ctx, []string{"ETHUSDT"})
	require.Len(t, results2, 1)
	assert.True(t, results2[0].OK)
	assert.True(t, results2[0].AlreadyStored)

	bucket := model.Bucket(1_700_000_000_000)
	raw, ok, err := store.Get(ctx, kv.SnapshotKey("ETH-USDT-SWAP", bucket))
	require.NoError(t, err)
	require.True(t, ok)
	var stored model.SnapshotPoint
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.True(t, stored.Price.Equal(price), "stored snapshot must stay at the first observation")
}

func TestIngestor_IsolatesPerSymbolFailures(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	fake := marketsource.NewFake()
	fake.Instruments = []marketsource.Instrument{
		{ID: "ETH-USDT-SWAP", Base: "ETH"},
		{ID: "BTC-USDT-SWAP", Base: "BTC"},
	}
	fake.ObserveErr["ETH-USDT-SWAP"] = fmt.Errorf("upstream timeout")
	price := decimal.NewFromFloat(60000.0)
	fake.Observations["BTC-USDT-SWAP"] = marketsource.Observation{Price: &price}

	ing := New(store, fake, nil)
	results := ing.IngestBatch(ctx, []string{"ETHUSDT", "BTCUSDT"})

	require.Len(t, results, 2)
	assert.False(t, results[0].OK)
	assert.NotEmpty(t, results[0].Error)
	assert.True(t, results[1].OK)
}
