// Package ingestor is the sole caller of the market source. It writes one
// snapshot per instrument per 5-minute bucket, per §4.1.
package ingestor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ai-agentic-browser/internal/kv"
	"github.com/ai-agentic-browser/internal/marketsource"
	"github.com/ai-agentic-browser/internal/model"
	"github.com/ai-agentic-browser/pkg/observability"
)

// Ingestor resolves instruments and writes idempotent per-bucket snapshots.
type Ingestor struct {
	store    kv.Store
	source   marketsource.MarketSource
	resolver *marketsource.Resolver
	logger   *observability.Logger
	now      func() time.Time
}

func New(store kv.Store, source marketsource.MarketSource, logger *observability.Logger) *Ingestor {
	return &Ingestor{
		store:    store,
		source:   source,
		resolver: marketsource.NewResolver(store, source),
		logger:   logger,
		now:      time.Now,
	}
}

// SymbolResult is one entry of the batch response.
type SymbolResult struct {
	Symbol       string               `json:"symbol"`
	OK           bool                 `json:"ok"`
	Instrument   string               `json:"instrument,omitempty"`
	Bucket       int64                `json:"bucket,omitempty"`
	Snapshot     *model.SnapshotPoint `json:"snapshot,omitempty"`
	Error        string               `json:"error,omitempty"`
	AlreadyStored bool                `json:"already_stored,omitempty"`
}

// IngestBatch resolves and snapshots every symbol. A failure on one symbol
// is isolated and never prevents the others from being written, per §4.1.
func (i *Ingestor) IngestBatch(ctx context.Context, symbols []string) []SymbolResult {
	results := make([]SymbolResult, len(symbols))
	for idx, symbol := range symbols {
		results[idx] = i.ingestOne(ctx, symbol)
	}
	return results
}

func (i *Ingestor) ingestOne(ctx context.Context, symbol string) SymbolResult {
	instID, err := i.resolver.Resolve(ctx, symbol)
	if err != nil {
		return SymbolResult{Symbol: symbol, OK: false, Error: fmt.Sprintf("resolve instrument: %v", err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	obs, err := i.source.Observe(callCtx, instID)
	if err != nil {
		return SymbolResult{Symbol: symbol, OK: false, Instrument: instID, Error: fmt.Sprintf("observe: %v", err)}
	}

	ts := i.now().UnixMilli()
	bucket := model.Bucket(ts)
	point := model.SnapshotPoint{
		Ts:                    ts,
		Price:                 obs.Price,
		FundingRate:           obs.FundingRate,
		OpenInterestContracts: obs.OpenInterestContracts,
	}

	encoded, err := json.Marshal(point)
	if err != nil {
		return SymbolResult{Symbol: symbol, OK: false, Instrument: instID, Error: fmt.Sprintf("encode snapshot: %v", err)}
	}

	written, err := i.store.SetNX(ctx, kv.SnapshotKey(instID, bucket), encoded, kv.SnapshotTTL)
	if err != nil {
		return SymbolResult{Symbol: symbol, OK: false, Instrument: instID, Error: fmt.Sprintf("write snapshot: %v", err)}
	}

	if i.logger != nil {
		i.logger.Debug(ctx, "ingested snapshot", map[string]interface{}{
			"symbol":     symbol,
			"instrument": instID,
			"bucket":     bucket,
			"written":    written,
		})
	}

	// written=false means a prior call already anchored this bucket; the
	// stored value is left fixed at the first observation, per §4.1. We
	// still report success with the symbol's resolved identity.
	return SymbolResult{
		Symbol:        symbol,
		OK:            true,
		Instrument:    instID,
		Bucket:        bucket,
		Snapshot:      &point,
		AlreadyStored: !written,
	}
}
