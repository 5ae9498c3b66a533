package evaluation

import (
	"math"

	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// computeLeverage implements §4.4's advisory (non-gating) leverage band.
func computeLeverage(cfg config.GatewayConfig, bias model.Lean, price decimal.Decimal, levels1h model.LevelsRecord, oi5m, oi15m, funding *decimal.Decimal) LeverageBand {
	invalidation := levels1h.Lo
	if bias == model.LeanShort {
		invalidation = levels1h.Hi
	}

	distancePct := price.Sub(invalidation).Abs().Div(price).Mul(hundred)
	if distancePct.IsZero() {
		return LeverageBand{Low: 0, High: 0}
	}

	base := math.Floor(cfg.LeverageRiskBudgetPct / mustFloat(distancePct))

	instability := math.Max(absFloat(oi5m), absFloat(oi15m))
	if instability >= cfg.LeverageInstabilityHigh {
		base *= 0.75
	}
	if funding != nil && absFloat(funding) >= cfg.LeverageFundingHigh {
		base *= 0.6
	}

	adj := int(base)
	if adj > cfg.LeverageMaxCap {
		adj = cfg.LeverageMaxCap
	}
	if adj < 0 {
		adj = 0
	}
	return LeverageBand{Low: adj / 2, High: adj}
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func absFloat(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	f, _ := d.Float64()
	if f < 0 {
		return -f
	}
	return f
}
