package evaluation

import (
	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/model"
	"github.com/shopspring/decimal"
)

// computeMacroAnalysis evaluates the BTC bull-expansion condition of
// §4.3.3 from BTC's own 4h delta record.
func computeMacroAnalysis(cfg config.GatewayConfig, btcInstrument string, btc4h model.DeltaRecord) MacroAnalysis {
	ma := MacroAnalysis{
		Enabled:       cfg.MacroEnabled,
		BTCInstrument: btcInstrument,
	}
	if !cfg.MacroEnabled || btc4h.Warmup {
		return ma
	}
	ma.BTCPriceChangePct = btc4h.PriceChangePct
	ma.BTCOiChangePct = btc4h.OiChangePct

	if btc4h.Lean != model.LeanLong || btc4h.PriceChangePct == nil || btc4h.OiChangePct == nil {
		return ma
	}

	priceOK := btc4h.PriceChangePct.GreaterThanOrEqual(decimal.NewFromFloat(cfg.MacroBTC4hPriceMin))
	oiOK := btc4h.OiChangePct.GreaterThanOrEqual(decimal.NewFromFloat(cfg.MacroBTC4hOIMin))
	ma.BullExpansion = priceOK && oiOK
	return ma
}

// macroGate denies a short-biased candidate on a non-BTC symbol when BTC is
// in bull expansion and blocking shorts is enabled. The inverse (bear
// expansion blocking longs) is explicitly not part of the contract.
func macroGate(cfg config.GatewayConfig, ma MacroAnalysis, instrument string, bias model.Lean) bool {
	if !ma.Enabled || !cfg.MacroBlockShorts {
		return true
	}
	if instrument == ma.BTCInstrument {
		return true
	}
	if ma.BullExpansion && bias == model.LeanShort {
		return false
	}
	return true
}
