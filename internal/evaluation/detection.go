package evaluation

import (
	"context"
	"fmt"

	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/kv"
	"github.com/ai-agentic-browser/internal/model"
	"github.com/shopspring/decimal"
)

// detectionInput bundles what the detection gate needs from the derivation
// engine's output.
type detectionInput struct {
	deltas map[model.Timeframe]model.DeltaRecord
}

// readLastState reads the stored state for setup-flip detection; ok=false
// means no prior state exists.
func readLastState(ctx context.Context, store kv.Store, mode model.Mode, inst string) (model.State, bool, error) {
	raw, ok, err := store.Get(ctx, kv.LastStateKey(string(mode), inst))
	if err != nil {
		return "", false, fmt.Errorf("read last state: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return model.State(raw), true, nil
}

// seedLastState persists the current detection-timeframe state, and mirrors
// it to lastState15m for non-scalp modes. This must run whenever the
// detection gate is evaluated, regardless of what happens afterward
// (§9's fixed open question), except under dry-run.
func seedLastState(ctx context.Context, w *Writer, mode model.Mode, inst string, current model.State) error {
	if err := w.Set(ctx, kv.LastStateKey(string(mode), inst), []byte(current), 0); err != nil {
		return fmt.Errorf("seed last state: %w", err)
	}
	if mode != model.ModeScalp {
		if err := w.Set(ctx, kv.LastState15mKey(inst), []byte(current), 0); err != nil {
			return fmt.Errorf("seed last state 15m: %w", err)
		}
	}
	return nil
}

// detectionGate evaluates the three trigger types of §4.3.1. Regardless of
// the outcome, the caller must still seed lastState (handled by the caller,
// not here, so tests can assert seeding happens even when force=true and no
// trigger is needed).
func detectionGate(cfg config.GatewayConfig, in detectionInput, detectionTF model.Timeframe, lastState model.State, hasLastState bool) (fired bool, trigger string) {
	tf := in.deltas
	current := tf[detectionTF].State

	if hasLastState && current != lastState && current != model.StateUnknown {
		return true, "setup_flip"
	}

	if d, ok := tf[model.TF5m]; ok && d.PriceChangePct != nil {
		if d.PriceChangePct.Abs().GreaterThanOrEqual(decimal.NewFromFloat(cfg.MomentumMin)) {
			return true, "momentum_confirm"
		}
	}

	for _, t := range []model.Timeframe{model.TF5m, model.TF15m} {
		d, ok := tf[t]
		if !ok {
			continue
		}
		if d.OiChangePct != nil && d.OiChangePct.GreaterThanOrEqual(decimal.NewFromFloat(cfg.ShockOIMin)) {
			return true, "positioning_shock"
		}
		if d.PriceChangePct != nil && d.PriceChangePct.Abs().GreaterThanOrEqual(decimal.NewFromFloat(cfg.ShockPriceMin)) {
			return true, "positioning_shock"
		}
	}

	return false, ""
}
