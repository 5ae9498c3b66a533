package marketsource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ai-agentic-browser/internal/kv"
)

// Resolver implements the instrument-resolution contract of §3.2/§4.1: map
// an external symbol like ETHUSDT to a canonical instrument id like
// ETH-USDT-SWAP, memoizing both positive and negative results.
type Resolver struct {
	store  kv.Store
	source MarketSource
}

func NewResolver(store kv.Store, source MarketSource) *Resolver {
	return &Resolver{store: store, source: source}
}

// CanonicalGuess derives the canonical id a base would have if it has a
// perpetual market, without consulting the store or network.
func CanonicalGuess(base string) string {
	return fmt.Sprintf("%s-USDT-SWAP", base)
}

// BaseFromSymbol strips the USDT suffix from an external symbol.
func BaseFromSymbol(symbol string) string {
	return strings.TrimSuffix(strings.ToUpper(symbol), "USDT")
}

// ErrNoPerpetualMarket is returned when a base is known to have no
// resolvable SWAP instrument (memoized as the __NONE__ sentinel).
var ErrNoPerpetualMarket = fmt.Errorf("marketsource: no perpetual market for base")

// Resolve returns the canonical instrument id for an external symbol.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (string, error) {
	base := BaseFromSymbol(symbol)
	mapKey := kv.InstrumentMapKey(base)

	cached, ok, err := r.store.Get(ctx, mapKey)
	if err != nil {
		return "", fmt.Errorf("read instrument map: %w", err)
	}
	if ok {
		if string(cached) == kv.NoneSentinel {
			return "", ErrNoPerpetualMarket
		}
		return string(cached), nil
	}

	instruments, err := r.listInstruments(ctx)
	if err != nil {
		// Listing fetch failed: use the guess but do not memoize, per §4.1.
		return CanonicalGuess(base), nil
	}

	guess := CanonicalGuess(base)
	for _, inst := range instruments {
		if inst.ID == guess || strings.EqualFold(inst.Base, base) {
			if setErr := r.store.Set(ctx, mapKey, []byte(inst.ID), kv.InstrumentMapTTL); setErr != nil {
				return "", fmt.Errorf("memoize instrument map: %w", setErr)
			}
			return inst.ID, nil
		}
	}

	if setErr := r.store.Set(ctx, mapKey, []byte(kv.NoneSentinel), kv.InstrumentMapTTL); setErr != nil {
		return "", fmt.Errorf("memoize none sentinel: %w", setErr)
	}
	return "", ErrNoPerpetualMarket
}

func (r *Resolver) listInstruments(ctx context.Context) ([]Instrument, error) {
	cached, ok, err := r.store.Get(ctx, kv.InstrumentListKey)
	if err == nil && ok {
		var instruments []Instrument
		if jsonErr := json.Unmarshal(cached, &instruments); jsonErr == nil {
			return instruments, nil
		}
	}

	instruments, err := r.source.ListSwapInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch swap instrument listing: %w", err)
	}

	if encoded, encErr := json.Marshal(instruments); encErr == nil {
		_ = r.store.Set(ctx, kv.InstrumentListKey, encoded, kv.InstrumentListTTL)
	}
	return instruments, nil
}
