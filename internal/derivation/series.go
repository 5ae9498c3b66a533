// Package derivation maintains the rolling 24h per-instrument series and
// derives multi-timeframe deltas and structural levels, per §4.2. It never
// calls the market source — the debug counters below exist specifically to
// prove that invariant from the outside.
package derivation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ai-agentic-browser/internal/kv"
	"github.com/ai-agentic-browser/internal/model"
)

// readSeries loads the persisted series, or an empty slice if absent.
func readSeries(ctx context.Context, store kv.Store, inst string) ([]model.SeriesPoint, error) {
	raw, ok, err := store.Get(ctx, kv.SeriesKey(inst))
	if err != nil {
		return nil, fmt.Errorf("read series: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var series []model.SeriesPoint
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}
	return series, nil
}

func writeSeries(ctx context.Context, store kv.Store, inst string, series []model.SeriesPoint) error {
	encoded, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}
	if err := store.Set(ctx, kv.SeriesKey(inst), encoded, kv.SeriesTTL); err != nil {
		return fmt.Errorf("write series: %w", err)
	}
	return nil
}

func readLastBucket(ctx context.Context, store kv.Store, inst string) (int64, bool, error) {
	raw, ok, err := store.Get(ctx, kv.LastBucketKey(inst))
	if err != nil {
		return 0, false, fmt.Errorf("read last bucket: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	b, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse last bucket: %w", err)
	}
	return b, true, nil
}

func writeLastBucket(ctx context.Context, store kv.Store, inst string, bucket int64) error {
	if err := store.Set(ctx, kv.LastBucketKey(inst), []byte(strconv.FormatInt(bucket, 10)), kv.LastBucketTTL); err != nil {
		return fmt.Errorf("write last bucket: %w", err)
	}
	return nil
}

// appendIfNewBucket appends a series point for snap iff lastBucket differs
// from bucket, trims the series to model.SeriesLength using positive
// indices only, and refreshes the series/lastBucket TTLs. Returns the
// (possibly unchanged) series.
func appendIfNewBucket(ctx context.Context, store kv.Store, inst string, bucket int64, snap model.SnapshotPoint) ([]model.SeriesPoint, error) {
	series, err := readSeries(ctx, store, inst)
	if err != nil {
		return nil, err
	}

	lastBucket, hasLastBucket, err := readLastBucket(ctx, store, inst)
	if err != nil {
		return nil, err
	}

	if hasLastBucket && lastBucket == bucket {
		// Already appended this bucket; just refresh TTLs.
		if err := store.Expire(ctx, kv.SeriesKey(inst), kv.SeriesTTL); err != nil {
			return nil, err
		}
		if err := store.Expire(ctx, kv.LastBucketKey(inst), kv.LastBucketTTL); err != nil {
			return nil, err
		}
		return series, nil
	}

	point := model.SeriesPoint{B: bucket, Ts: snap.Ts, P: snap.Price, Fr: snap.FundingRate, Oi: snap.OpenInterestContracts}
	series = append(series, point)
	if len(series) > model.SeriesLength {
		start := len(series) - model.SeriesLength
		series = series[start:]
	}

	if err := writeSeries(ctx, store, inst, series); err != nil {
		return nil, err
	}
	if err := writeLastBucket(ctx, store, inst, bucket); err != nil {
		return nil, err
	}
	return series, nil
}

// trailing returns the last n points of series (or the whole series if
// shorter), never negative-indexing.
func trailing(series []model.SeriesPoint, n int) []model.SeriesPoint {
	if n >= len(series) {
		return series
	}
	return series[len(series)-n:]
}
