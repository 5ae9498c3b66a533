// Package evaluation implements the gating pipeline of §4.3: detection,
// cooldown, macro, warmup, bias, structural edge, per-mode entry validity,
// mode priority and the post-gate side effects, plus the non-gating
// advisory leverage (§4.4) and confidence grading (§4.5) that ride along
// with a winning candidate.
package evaluation

import (
	"time"

	"github.com/ai-agentic-browser/internal/model"
	"github.com/shopspring/decimal"
)

// SkipReason classifies why a symbol/mode did not produce a notification.
type SkipReason string

const (
	SkipNone                       SkipReason = ""
	SkipSnapshotMissing            SkipReason = "snapshot_missing"
	SkipNoDetectionTrigger         SkipReason = "no_detection_trigger"
	SkipCooldown                   SkipReason = "cooldown"
	SkipMacroBlockBTCBullExpansion SkipReason = "macro_block_btc_bull_expansion"
	SkipWarmupGate1h               SkipReason = "warmup_gate_1h"
	SkipMissingLevelsOrPrice       SkipReason = "missing_levels_or_price"
	SkipNeutralBias                SkipReason = "neutral_bias"
	SkipNotInEdgeBand              SkipReason = "not_in_edge_band"
	SkipNoEntryTrigger             SkipReason = "no_entry_trigger"
	SkipOIContextReject            SkipReason = "oi_context_reject"
	SkipAuthFailed                 SkipReason = "auth_failed"
)

// ExecReason names the concrete entry rule that fired, used by message
// rendering and confidence grading.
type ExecReason string

const (
	ExecLongBreakout        ExecReason = "long_breakout"
	ExecShortBreakout       ExecReason = "short_breakout"
	ExecLongSweepReclaim    ExecReason = "long_sweep_reclaim"
	ExecShortSweepReject    ExecReason = "short_sweep_reject"
	ExecLongReversal        ExecReason = "long_reversal"
	ExecShortReversal       ExecReason = "short_reversal"
)

// ConfidenceGrade is the mechanical rule-based output of §4.5.
type ConfidenceGrade string

const (
	GradeA ConfidenceGrade = "A"
	GradeB ConfidenceGrade = "B"
	GradeC ConfidenceGrade = "C"
)

// LeverageBand is the advisory (non-gating) output of §4.4.
type LeverageBand struct {
	Low  int
	High int
}

// Candidate is a winning per-symbol, per-mode evaluation.
type Candidate struct {
	Instrument string
	Symbol     string
	Mode       model.Mode
	Bias       model.Lean
	ExecReason ExecReason
	Price      decimal.Decimal
	Levels1h   model.LevelsRecord
	Levels4h   model.LevelsRecord
	Deltas     map[model.Timeframe]model.DeltaRecord
	Confidence ConfidenceGrade
	Leverage   LeverageBand
}

// SymbolOutcome is the per-symbol result of running the pipeline across
// every requested mode.
type SymbolOutcome struct {
	Symbol      string
	Instrument  string
	Triggered   bool
	Winner      *Candidate
	SkipReasons map[model.Mode]SkipReason
}

// MacroAnalysis is the BTC-derived macro-risk context shared across all
// symbols in one invocation.
type MacroAnalysis struct {
	Enabled          bool
	BullExpansion    bool
	BTCInstrument    string
	BTCPriceChangePct *decimal.Decimal
	BTCOiChangePct    *decimal.Decimal
}

// Options configures one evaluator invocation.
type Options struct {
	Modes       []model.Mode
	RiskProfile string
	DriverTF    string
	Force       bool
	Dry         bool
	Debug       bool
	Now         time.Time
}
