package model

import "github.com/shopspring/decimal"

// Mode is a user-selected trading mode. Modes are evaluated in priority
// order scalp > swing > build; the first one whose pipeline passes wins.
type Mode string

const (
	ModeScalp Mode = "scalp"
	ModeSwing Mode = "swing"
	ModeBuild Mode = "build"
)

// Priority returns the evaluation order rank, lower runs first.
func (m Mode) Priority() int {
	switch m {
	case ModeScalp:
		return 0
	case ModeSwing:
		return 1
	case ModeBuild:
		return 2
	default:
		return 99
	}
}

// ParseMode validates a caller-supplied mode string, rejecting anything
// outside the three known modes.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeScalp, ModeSwing, ModeBuild:
		return Mode(s), true
	default:
		return "", false
	}
}

// DetectionTimeframe returns the timeframe the detection gate watches for
// this mode: 5m for scalp, 15m for swing and build.
func (m Mode) DetectionTimeframe() Timeframe {
	if m == ModeScalp {
		return TF5m
	}
	return TF15m
}

// Timeframe is one of the delta windows the derivation engine computes.
type Timeframe string

const (
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
)

// StepCounts maps each timeframe to the number of 5-minute buckets spanned.
var StepCounts = map[Timeframe]int{
	TF5m:  1,
	TF15m: 3,
	TF30m: 6,
	TF1h:  12,
	TF4h:  48,
}

// Lean is the directional interpretation of a price/OI move.
type Lean string

const (
	LeanLong    Lean = "long"
	LeanShort   Lean = "short"
	LeanNeutral Lean = "neutral"
)

// State is the discrete classification of a price/OI move, per §3.3.
type State string

const (
	StateLongsOpening  State = "longs_opening"
	StateShortsOpening State = "shorts_opening"
	StateShortsClosing State = "shorts_closing"
	StateLongsClosing  State = "longs_closing"
	StateUnknown       State = "unknown"
)

// Classify implements the price/OI classification table of §3.3. Either
// delta being absent (nil) always yields (unknown, neutral).
func Classify(priceChangePct, oiChangePct *decimal.Decimal) (State, Lean) {
	if priceChangePct == nil || oiChangePct == nil {
		return StateUnknown, LeanNeutral
	}
	priceUp := priceChangePct.Sign() > 0
	oiUp := oiChangePct.Sign() > 0

	switch {
	case priceUp && oiUp:
		return StateLongsOpening, LeanLong
	case !priceUp && oiUp:
		return StateShortsOpening, LeanShort
	case priceUp && !oiUp:
		return StateShortsClosing, LeanLong
	default:
		return StateLongsClosing, LeanShort
	}
}

// SnapshotPoint is the raw observation the ingestor writes once per bucket.
// Fields beyond Ts and Price may be absent; a numeric that failed to parse
// upstream is nil rather than zero, per §3.2.
type SnapshotPoint struct {
	Ts                    int64            `json:"ts"`
	Price                 *decimal.Decimal `json:"price"`
	FundingRate           *decimal.Decimal `json:"funding_rate,omitempty"`
	OpenInterestContracts *decimal.Decimal `json:"open_interest_contracts,omitempty"`
}

// SeriesPoint is one retained sample of the rolling 24h series, appended at
// most once per bucket by the derivation engine.
type SeriesPoint struct {
	B  int64            `json:"b"`
	Ts int64            `json:"ts"`
	P  *decimal.Decimal `json:"p"`
	Fr *decimal.Decimal `json:"fr,omitempty"`
	Oi *decimal.Decimal `json:"oi,omitempty"`
}

// SeriesLength is the retention cap of the rolling series (24h at 5m buckets).
const SeriesLength = 288

// DeltaRecord is derived on demand for one timeframe; it is never persisted.
type DeltaRecord struct {
	Timeframe      Timeframe
	PriceChangePct *decimal.Decimal
	OiChangePct    *decimal.Decimal
	FundingChange  *decimal.Decimal
	State          State
	Lean           Lean
	Warmup         bool
}

// LevelsRecord is the structural hi/lo/mid range over a trailing window.
type LevelsRecord struct {
	Warmup bool
	Hi     decimal.Decimal
	Lo     decimal.Decimal
	Mid    decimal.Decimal
}

// Range returns hi - lo. Only meaningful when Warmup is false.
func (l LevelsRecord) Range() decimal.Decimal {
	return l.Hi.Sub(l.Lo)
}

// AlertState is the per-instrument, per-mode persisted evaluator state used
// for setup-flip detection and cooldown enforcement.
type AlertState struct {
	LastState     map[Mode]State
	LastState15m  State
	LastSentAtMs  int64
}

// Heartbeat is the diagnostic record the evaluator writes on every
// invocation (dry-run excepted), proving the scheduler fired it even when
// nothing was sent.
type Heartbeat struct {
	RunID          string         `json:"run_id"`
	Ts             int64          `json:"ts"`
	Mode           string         `json:"mode"`
	Symbols        []string       `json:"symbols"`
	TriggeredCount int            `json:"triggered_count"`
	SkipReasons    map[string]int `json:"skip_reasons,omitempty"`
	Dry            bool           `json:"dry"`
	Forced         bool           `json:"forced"`
	Error          string         `json:"error,omitempty"`
}

// FormatPrice applies §4.2's downstream price-formatting rule: p>=1000 -> 2dp,
// p>=1 -> 3dp, else 4dp.
func FormatPrice(p decimal.Decimal) string {
	abs := p.Abs()
	switch {
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1000)):
		return p.StringFixed(2)
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return p.StringFixed(3)
	default:
		return p.StringFixed(4)
	}
}
