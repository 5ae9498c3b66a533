package evaluation

import (
	"testing"

	"github.com/ai-agentic-browser/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEvaluateScalpEntry_LongBreakoutHasNoUpperBound(t *testing.T) {
	cfg := testGatewayConfig()
	levels1h := model.LevelsRecord{Hi: dec("100"), Lo: dec("90"), Mid: dec("95")}
	delta4h := model.DeltaRecord{Timeframe: model.TF4h, Warmup: true}
	edge := edgeBand(cfg, levels1h, delta4h)
	delta15m := model.DeltaRecord{Timeframe: model.TF15m, OiChangePct: decPtr("0.60")}

	// A strong breakout far beyond hi+edge must still fire: §4.3.7's scalp
	// long trigger is price > 1h.hi with no upper bound.
	price := dec("500")
	result := evaluateScalpEntry(cfg, model.LeanLong, price, levels1h, edge, nil, delta15m)

	assert.True(t, result.fired)
	assert.Equal(t, ExecLongBreakout, result.execReason)
}

func TestEvaluateScalpEntry_ShortBreakoutHasNoLowerBound(t *testing.T) {
	cfg := testGatewayConfig()
	levels1h := model.LevelsRecord{Hi: dec("100"), Lo: dec("90"), Mid: dec("95")}
	delta4h := model.DeltaRecord{Timeframe: model.TF4h, Warmup: true}
	edge := edgeBand(cfg, levels1h, delta4h)
	delta15m := model.DeltaRecord{Timeframe: model.TF15m, OiChangePct: decPtr("0.60")}

	price := dec("1")
	result := evaluateScalpEntry(cfg, model.LeanShort, price, levels1h, edge, nil, delta15m)

	assert.True(t, result.fired)
	assert.Equal(t, ExecShortBreakout, result.execReason)
}

func TestEvaluateScalpEntry_OIContextRejectIsDistinctFromNoEntryTrigger(t *testing.T) {
	cfg := testGatewayConfig()
	levels1h := model.LevelsRecord{Hi: dec("100"), Lo: dec("90"), Mid: dec("95")}
	delta4h := model.DeltaRecord{Timeframe: model.TF4h, Warmup: true}
	edge := edgeBand(cfg, levels1h, delta4h)

	// OI change below ShockOIMin rejects before the bias switch even runs.
	delta15m := model.DeltaRecord{Timeframe: model.TF15m, OiChangePct: decPtr("0.10")}
	result := evaluateScalpEntry(cfg, model.LeanLong, dec("500"), levels1h, edge, nil, delta15m)

	assert.False(t, result.fired)
	assert.Equal(t, SkipOIContextReject, result.reject)
}

func TestEvaluateScalpEntry_PriceOutsideEdgeBandIsNotInEdgeBand(t *testing.T) {
	cfg := testGatewayConfig()
	levels1h := model.LevelsRecord{Hi: dec("100"), Lo: dec("90"), Mid: dec("95")}
	delta4h := model.DeltaRecord{Timeframe: model.TF4h, Warmup: true}
	edge := edgeBand(cfg, levels1h, delta4h)
	delta15m := model.DeltaRecord{Timeframe: model.TF15m, OiChangePct: decPtr("0.60")}

	// Inside the range, far from both levels: neither breakout nor in-band.
	price := dec("95")
	result := evaluateScalpEntry(cfg, model.LeanLong, price, levels1h, edge, nil, delta15m)

	assert.False(t, result.fired)
	assert.Equal(t, SkipNotInEdgeBand, result.reject)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
