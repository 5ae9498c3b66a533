package evaluation

import (
	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/model"
	"github.com/shopspring/decimal"
)

// edgeBand computes the §4.3.6 edge width over the 1h range, widened by the
// regime-contraction hook when enabled and the symbol's 4h range shows low
// absolute price movement with strongly negative OI change.
func edgeBand(cfg config.GatewayConfig, levels1h model.LevelsRecord, delta4h model.DeltaRecord) decimal.Decimal {
	pct := decimal.NewFromFloat(cfg.EdgePct1h)
	if cfg.RegimeEnabled && isContractionRegime(cfg, delta4h) {
		pct = pct.Mul(decimal.NewFromFloat(cfg.RegimeEdgeContractionFactor))
	}
	return pct.Mul(levels1h.Range())
}

func isContractionRegime(cfg config.GatewayConfig, delta4h model.DeltaRecord) bool {
	if delta4h.Warmup || delta4h.PriceChangePct == nil || delta4h.OiChangePct == nil {
		return false
	}
	lowAbsPrice := delta4h.PriceChangePct.Abs().LessThanOrEqual(decimal.NewFromFloat(cfg.RegimeContractionPriceMax))
	stronglyNegativeOI := delta4h.OiChangePct.LessThanOrEqual(decimal.NewFromFloat(cfg.RegimeContractionOIMax))
	return lowAbsPrice && stronglyNegativeOI
}

// inBandLong reports whether price is within the long edge band:
// price <= lo + edge.
func inBandLong(price decimal.Decimal, levels1h model.LevelsRecord, edge decimal.Decimal) bool {
	return price.LessThanOrEqual(levels1h.Lo.Add(edge))
}

// inBandShort reports whether price is within the short edge band:
// price >= hi - edge.
func inBandShort(price decimal.Decimal, levels1h model.LevelsRecord, edge decimal.Decimal) bool {
	return price.GreaterThanOrEqual(levels1h.Hi.Sub(edge))
}

// b1Strong reports whether the candidate is well inside its bias-direction
// edge band (halfway or better), used by confidence grading.
func b1Strong(bias model.Lean, price decimal.Decimal, levels1h model.LevelsRecord, edge decimal.Decimal) bool {
	half := edge.Div(decimal.NewFromInt(2))
	switch bias {
	case model.LeanLong:
		return price.LessThanOrEqual(levels1h.Lo.Add(half))
	case model.LeanShort:
		return price.GreaterThanOrEqual(levels1h.Hi.Sub(half))
	default:
		return false
	}
}

// isRegimeDowngrade implements the optional regime-downgrade hook of
// §4.3.7: a strong B1 result is demoted to weak when the 4h regime is a
// strong expansion in the opposite direction of bias.
func isRegimeDowngrade(cfg config.GatewayConfig, bias model.Lean, delta4h model.DeltaRecord) bool {
	if !cfg.RegimeEnabled || delta4h.Warmup || delta4h.PriceChangePct == nil {
		return false
	}
	strongExpansion := delta4h.PriceChangePct.Abs().GreaterThanOrEqual(decimal.NewFromFloat(cfg.RegimeExpansionPriceMin))
	if !strongExpansion {
		return false
	}
	opposite := (bias == model.LeanShort && delta4h.Lean == model.LeanLong) ||
		(bias == model.LeanLong && delta4h.Lean == model.LeanShort)
	return opposite
}
