package marketsource

import (
	"context"
	"fmt"
	"testing"

	"github.com/ai-agentic-browser/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_PositiveResultIsMemoized(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	fake := NewFake()
	fake.Instruments = []Instrument{{ID: "ETH-USDT-SWAP", Base: "ETH"}}
	r := NewResolver(store, fake)

	id, err := r.Resolve(ctx, "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, "ETH-USDT-SWAP", id)

	cached, ok, err := store.Get(ctx, kv.InstrumentMapKey("ETH"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ETH-USDT-SWAP", string(cached))
}

func TestResolver_NegativeResultMemoizedAsNone(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	fake := NewFake() // no instruments at all
	r := NewResolver(store, fake)

	_, err := r.Resolve(ctx, "NOPEUSDT")
	assert.ErrorIs(t, err, ErrNoPerpetualMarket)

	cached, ok, err := store.Get(ctx, kv.InstrumentMapKey("NOPE"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, kv.NoneSentinel, string(cached))

	// Second call should hit the cached sentinel without calling the source.
	_, err = r.Resolve(ctx, "NOPEUSDT")
	assert.ErrorIs(t, err, ErrNoPerpetualMarket)
}

func TestResolver_ListingFailureFallsBackWithoutMemoizing(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	fake := NewFake()
	fake.ListErr = fmt.Errorf("upstream unavailable")
	r := NewResolver(store, fake)

	id, err := r.Resolve(ctx, "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, "ETH-USDT-SWAP", id)

	_, ok, err := store.Get(ctx, kv.InstrumentMapKey("ETH"))
	require.NoError(t, err)
	assert.False(t, ok, "a failed listing fetch must not be memoized")
}
