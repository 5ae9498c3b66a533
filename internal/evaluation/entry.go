package evaluation

import (
	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/model"
	"github.com/shopspring/decimal"
)

// entryResult is the outcome of a per-mode entry-validity check. reject
// carries the specific skip reason when fired is false, so the pipeline can
// surface why a candidate was rejected instead of a single generic reason.
type entryResult struct {
	fired      bool
	execReason ExecReason
	reject     SkipReason
}

// recentExtreme returns the min (long side) or max (short side) price over
// the trailing lookback points of series, ignoring points with no price.
func recentExtreme(series []model.SeriesPoint, lookback int, min bool) (decimal.Decimal, bool) {
	points := series
	if lookback < len(points) {
		points = points[len(points)-lookback:]
	}
	var extreme decimal.Decimal
	found := false
	for _, p := range points {
		if p.P == nil {
			continue
		}
		if !found {
			extreme = *p.P
			found = true
			continue
		}
		if min && p.P.LessThan(extreme) {
			extreme = *p.P
		}
		if !min && p.P.GreaterThan(extreme) {
			extreme = *p.P
		}
	}
	return extreme, found
}

// evaluateScalpEntry implements §4.3.7's strict scalp path: 15m OI
// confirmation must hold first; then a breakout beyond the 1h level in the
// bias direction fires outright, and otherwise price must be in the edge
// band with a sweep-and-reclaim (long) or sweep-and-reject (short).
func evaluateScalpEntry(cfg config.GatewayConfig, bias model.Lean, price decimal.Decimal, levels1h model.LevelsRecord, edge decimal.Decimal, series []model.SeriesPoint, delta15m model.DeltaRecord) entryResult {
	if delta15m.OiChangePct == nil || delta15m.OiChangePct.LessThan(decimal.NewFromFloat(cfg.ShockOIMin)) {
		return entryResult{reject: SkipOIContextReject}
	}

	switch bias {
	case model.LeanLong:
		if price.GreaterThan(levels1h.Hi) {
			return entryResult{fired: true, execReason: ExecLongBreakout}
		}
		if !inBandLong(price, levels1h, edge) {
			return entryResult{reject: SkipNotInEdgeBand}
		}
		if min, ok := recentExtreme(series, cfg.ScalpSweepLookback, true); ok &&
			min.LessThan(levels1h.Lo) && price.GreaterThan(levels1h.Lo) {
			return entryResult{fired: true, execReason: ExecLongSweepReclaim}
		}
	case model.LeanShort:
		if price.LessThan(levels1h.Lo) {
			return entryResult{fired: true, execReason: ExecShortBreakout}
		}
		if !inBandShort(price, levels1h, edge) {
			return entryResult{reject: SkipNotInEdgeBand}
		}
		if max, ok := recentExtreme(series, cfg.ScalpSweepLookback, false); ok &&
			max.GreaterThan(levels1h.Hi) && price.LessThan(levels1h.Hi) {
			return entryResult{fired: true, execReason: ExecShortSweepReject}
		}
	}
	return entryResult{reject: SkipNoEntryTrigger}
}

// evaluateSwingBuildEntry implements §4.3.7's two-path swing/build rule:
// break path or reversal path, both subject to the shared OI context
// constraint.
func evaluateSwingBuildEntry(cfg config.GatewayConfig, bias model.Lean, price decimal.Decimal, levels1h model.LevelsRecord, edge decimal.Decimal, delta15m, delta5m model.DeltaRecord) entryResult {
	if delta15m.OiChangePct != nil && delta15m.OiChangePct.LessThan(decimal.NewFromFloat(cfg.SwingMinOIPct)) {
		return entryResult{reject: SkipOIContextReject}
	}

	switch bias {
	case model.LeanLong:
		if price.GreaterThan(levels1h.Hi) {
			return entryResult{fired: true, execReason: ExecLongBreakout}
		}
		if !inBandLong(price, levels1h, edge) {
			return entryResult{reject: SkipNotInEdgeBand}
		}
		if delta5m.PriceChangePct != nil && delta5m.PriceChangePct.GreaterThanOrEqual(decimal.NewFromFloat(cfg.SwingReversalMin5m)) {
			return entryResult{fired: true, execReason: ExecLongReversal}
		}
	case model.LeanShort:
		if price.LessThan(levels1h.Lo) {
			return entryResult{fired: true, execReason: ExecShortBreakout}
		}
		if !inBandShort(price, levels1h, edge) {
			return entryResult{reject: SkipNotInEdgeBand}
		}
		if delta5m.PriceChangePct != nil && delta5m.PriceChangePct.LessThanOrEqual(decimal.NewFromFloat(cfg.SwingReversalMin5m).Neg()) {
			return entryResult{fired: true, execReason: ExecShortReversal}
		}
	}
	return entryResult{reject: SkipNoEntryTrigger}
}
