package evaluation

import "github.com/ai-agentic-browser/internal/model"

// determineBias implements §4.3.5's per-mode lean aggregation with
// fallback chains: scalp looks only at 5m; swing falls back 1h -> 15m ->
// 5m; build falls back 4h -> 1h -> 15m -> 5m. The first non-warmup,
// non-unknown delta in the chain wins.
func determineBias(mode model.Mode, deltas map[model.Timeframe]model.DeltaRecord) model.Lean {
	var chain []model.Timeframe
	switch mode {
	case model.ModeScalp:
		chain = []model.Timeframe{model.TF5m}
	case model.ModeSwing:
		chain = []model.Timeframe{model.TF1h, model.TF15m, model.TF5m}
	case model.ModeBuild:
		chain = []model.Timeframe{model.TF4h, model.TF1h, model.TF15m, model.TF5m}
	default:
		chain = []model.Timeframe{model.TF5m}
	}

	for _, tf := range chain {
		d, ok := deltas[tf]
		if !ok || d.Warmup {
			continue
		}
		if d.Lean != model.LeanNeutral {
			return d.Lean
		}
	}
	return model.LeanNeutral
}
