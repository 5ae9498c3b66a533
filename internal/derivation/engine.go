package derivation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ai-agentic-browser/internal/kv"
	"github.com/ai-agentic-browser/internal/model"
	"github.com/ai-agentic-browser/pkg/observability"
)

// DebugCounters proves the snapshot-only invariant from the outside: in
// normal operation MarketCalls must always read 0.
type DebugCounters struct {
	SnapshotHits   int
	SnapshotMisses int
	MarketCalls    int
}

// Result is the derivation engine's per-symbol output.
type Result struct {
	Instrument      string
	SnapshotMissing bool
	Series          []model.SeriesPoint
	Deltas          map[model.Timeframe]model.DeltaRecord
	Levels          map[model.Timeframe]model.LevelsRecord // keys: TF1h, TF4h
	Debug           DebugCounters
}

// Engine maintains rolling series and derives deltas/levels. It holds no
// MarketSource reference by construction.
type Engine struct {
	store  kv.Store
	logger *observability.Logger
}

func New(store kv.Store, logger *observability.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// maxSteps is the largest step count among the timeframes this engine
// derives (4h -> 48 buckets), used to bound the trailing read in step 3 of
// §4.2.
const maxSteps = 48

// Derive runs the five-step contract of §4.2 for one instrument at the
// current bucket.
func (e *Engine) Derive(ctx context.Context, inst string, bucket int64) (Result, error) {
	result := Result{Instrument: inst}

	raw, ok, err := e.store.Get(ctx, kv.SnapshotKey(inst, bucket))
	if err != nil {
		return Result{}, fmt.Errorf("read snapshot: %w", err)
	}
	if !ok {
		result.SnapshotMissing = true
		result.Debug.SnapshotMisses++
		return result, nil
	}
	result.Debug.SnapshotHits++

	var snap model.SnapshotPoint
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Result{}, fmt.Errorf("decode snapshot: %w", err)
	}

	series, err := appendIfNewBucket(ctx, e.store, inst, bucket, snap)
	if err != nil {
		return Result{}, fmt.Errorf("append series point: %w", err)
	}

	trailingWindow := trailing(series, maxSteps+1)
	result.Series = trailingWindow

	deltas := make(map[model.Timeframe]model.DeltaRecord, len(model.StepCounts))
	for tf := range model.StepCounts {
		deltas[tf] = computeDelta(trailingWindow, tf)
	}
	result.Deltas = deltas

	// Structural levels summarize the established range a live price can
	// break out of, so they are computed over the closed history prior to
	// the bucket just appended, not including it.
	closedHistory := series
	if len(closedHistory) > 0 {
		closedHistory = closedHistory[:len(closedHistory)-1]
	}
	levels := map[model.Timeframe]model.LevelsRecord{
		model.TF1h: computeLevels(closedHistory, model.StepCounts[model.TF1h]),
	}
	if len(closedHistory) >= model.StepCounts[model.TF4h] {
		levels[model.TF4h] = computeLevels(closedHistory, model.StepCounts[model.TF4h])
	}
	result.Levels = levels

	return result, nil
}
