package evaluation

import "github.com/ai-agentic-browser/internal/model"

// warmupGate denies if the 1h structural range lacks enough history. force
// may bypass the gate itself, but mode-specific entry triggers that need a
// positive range will still deny when hi<=lo, per §4.3.4.
func warmupGate(levels1h model.LevelsRecord, force bool) bool {
	if levels1h.Warmup {
		return force
	}
	return true
}

// hasUsableRange reports whether hi-lo is strictly positive, the
// minimum bar mode-specific entry triggers require even under force.
func hasUsableRange(levels model.LevelsRecord) bool {
	return !levels.Warmup && levels.Hi.GreaterThan(levels.Lo)
}
