package derivation

import (
	"github.com/ai-agentic-browser/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// computeDelta derives the delta record for tf from the trailing points:
// the last point and the point k positions earlier. warmup is true iff
// fewer than k+1 points exist.
func computeDelta(points []model.SeriesPoint, tf model.Timeframe) model.DeltaRecord {
	k := model.StepCounts[tf]
	rec := model.DeltaRecord{Timeframe: tf}

	if len(points) < k+1 {
		rec.Warmup = true
		rec.State, rec.Lean = model.StateUnknown, model.LeanNeutral
		return rec
	}

	latest := points[len(points)-1]
	earlier := points[len(points)-1-k]

	rec.PriceChangePct = pctChange(earlier.P, latest.P)
	rec.OiChangePct = pctChange(earlier.Oi, latest.Oi)
	rec.FundingChange = diff(earlier.Fr, latest.Fr)
	rec.State, rec.Lean = model.Classify(rec.PriceChangePct, rec.OiChangePct)
	return rec
}

// pctChange returns (b-a)/|a|*100, or nil if either input is absent or a==0.
func pctChange(a, b *decimal.Decimal) *decimal.Decimal {
	if a == nil || b == nil || a.IsZero() {
		return nil
	}
	v := b.Sub(*a).Div(a.Abs()).Mul(hundred)
	return &v
}

func diff(a, b *decimal.Decimal) *decimal.Decimal {
	if a == nil || b == nil {
		return nil
	}
	v := b.Sub(*a)
	return &v
}

// computeLevels derives the hi/lo/mid structural range over the trailing
// window points. warmup is true iff fewer than window points exist or no
// point carries a price.
func computeLevels(series []model.SeriesPoint, window int) model.LevelsRecord {
	points := trailing(series, window)
	if len(points) < window {
		return model.LevelsRecord{Warmup: true}
	}

	var hi, lo decimal.Decimal
	seen := false
	for _, p := range points {
		if p.P == nil {
			continue
		}
		if !seen {
			hi, lo = *p.P, *p.P
			seen = true
			continue
		}
		if p.P.GreaterThan(hi) {
			hi = *p.P
		}
		if p.P.LessThan(lo) {
			lo = *p.P
		}
	}
	if !seen {
		return model.LevelsRecord{Warmup: true}
	}

	mid := hi.Add(lo).Div(decimal.NewFromInt(2))
	return model.LevelsRecord{Warmup: false, Hi: hi, Lo: lo, Mid: mid}
}
