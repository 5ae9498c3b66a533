package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetNX_OnlyFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	written, err := s.SetNX(ctx, "k", []byte("first"), time.Hour)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = s.SetNX(ctx, "k", []byte("second"), time.Hour)
	require.NoError(t, err)
	assert.False(t, written)

	val, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", string(val))
}

func TestMemoryStore_GetExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_LPushCapped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.LPushCapped(ctx, "history", []byte{byte(i)}, 3, time.Hour))
	}

	out, err := s.LRange(ctx, "history", 10)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, byte(4), out[0][0])
	assert.Equal(t, byte(3), out[1][0])
	assert.Equal(t, byte(2), out[2][0])
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "snap5m:ETH-USDT-SWAP:123", SnapshotKey("ETH-USDT-SWAP", 123))
	assert.Equal(t, "series5m:ETH-USDT-SWAP", SeriesKey("ETH-USDT-SWAP"))
	assert.Equal(t, "lastBucket:ETH-USDT-SWAP", LastBucketKey("ETH-USDT-SWAP"))
	assert.Equal(t, "instmap:swap:ETH", InstrumentMapKey("ETH"))
	assert.Equal(t, "alert:lastState:scalp:ETH-USDT-SWAP", LastStateKey("scalp", "ETH-USDT-SWAP"))
	assert.Equal(t, "alert:lastState15m:ETH-USDT-SWAP", LastState15mKey("ETH-USDT-SWAP"))
	assert.Equal(t, "alert:lastSentAt:ETH-USDT-SWAP", LastSentAtKey("ETH-USDT-SWAP"))
}
