package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/derivation"
	"github.com/ai-agentic-browser/internal/kv"
	"github.com/ai-agentic-browser/internal/marketsource"
	"github.com/ai-agentic-browser/internal/model"
	"github.com/ai-agentic-browser/internal/notify"
	"github.com/ai-agentic-browser/pkg/observability"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// heartbeatHistoryKey is the supplemental capped-list key beyond the
// single alert:lastRun blob.
const heartbeatHistoryKey = "alert:lastRun:history"
const heartbeatHistoryCap = 20

// Pipeline runs the gating pipeline of §4.3 for a batch of symbols.
type Pipeline struct {
	store    kv.Store
	engine   *derivation.Engine
	resolver *marketsource.Resolver
	notifier notify.Notifier
	cfg      config.GatewayConfig
	logger   *observability.Logger
}

func NewPipeline(store kv.Store, engine *derivation.Engine, resolver *marketsource.Resolver, notifier notify.Notifier, cfg config.GatewayConfig, logger *observability.Logger) *Pipeline {
	return &Pipeline{store: store, engine: engine, resolver: resolver, notifier: notifier, cfg: cfg, logger: logger}
}

// Run evaluates every symbol across the requested modes, emits at most one
// notification covering all winning symbols, and writes the heartbeat
// (unless dry).
func (p *Pipeline) Run(ctx context.Context, symbols []string, opts Options) (RunResult, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	if len(symbols) == 0 {
		symbols = p.cfg.Symbols
	}
	writer := NewWriter(p.store, opts.Dry)

	macro, err := p.computeMacro(ctx, now)
	if err != nil {
		p.logf(ctx, "macro analysis failed, proceeding with macro gate disabled: %v", err)
		macro = MacroAnalysis{}
	}

	outcomes := make([]SymbolOutcome, 0, len(symbols))
	triggeredMessages := make([]notify.TriggeredSymbol, 0)
	skipCounts := make(map[string]int)

	for _, symbol := range symbols {
		outcome := p.evaluateSymbol(ctx, writer, symbol, opts, now, macro)
		outcomes = append(outcomes, outcome)
		for _, reason := range outcome.SkipReasons {
			if reason != SkipNone {
				skipCounts[string(reason)]++
			}
		}
		if outcome.Winner != nil {
			triggeredMessages = append(triggeredMessages, candidateToMessage(*outcome.Winner))
		}
	}

	result := RunResult{
		Outcomes: outcomes,
		Macro:    macro,
	}

	if len(triggeredMessages) > 0 {
		driverTF := opts.DriverTF
		if driverTF == "" {
			driverTF = string(opts.Modes[0].DetectionTimeframe())
		}
		message := notify.RenderMessage(driverTF, opts.Force, opts.Dry, triggeredMessages, now, "https://dashboard.example/drilldown")
		result.Message = message

		if !opts.Dry {
			if err := p.notifier.Send(ctx, message); err != nil {
				result.NotifierFailed = true
				p.logf(ctx, "notifier send failed: %v", err)
			}
		}
	}

	result.TriggeredCount = len(triggeredMessages)

	if err := p.writeHeartbeat(ctx, writer, now, symbols, opts, result); err != nil {
		p.logf(ctx, "heartbeat write failed: %v", err)
	}

	return result, nil
}

// RunResult is the batch-level outcome of one evaluator invocation.
type RunResult struct {
	Outcomes       []SymbolOutcome
	Macro          MacroAnalysis
	Message        string
	TriggeredCount int
	NotifierFailed bool
}

func (p *Pipeline) evaluateSymbol(ctx context.Context, writer *Writer, symbol string, opts Options, now time.Time, macro MacroAnalysis) SymbolOutcome {
	outcome := SymbolOutcome{Symbol: symbol, SkipReasons: make(map[model.Mode]SkipReason)}

	inst, err := p.resolver.Resolve(ctx, symbol)
	if err != nil {
		for _, m := range opts.Modes {
			outcome.SkipReasons[m] = SkipNoPerpetualMarket(err)
		}
		return outcome
	}
	outcome.Instrument = inst

	bucket := model.Bucket(now.UnixMilli())
	derived, err := p.engine.Derive(ctx, inst, bucket)
	if err != nil {
		for _, m := range opts.Modes {
			outcome.SkipReasons[m] = SkipSnapshotMissing
		}
		return outcome
	}
	if derived.SnapshotMissing {
		for _, m := range opts.Modes {
			outcome.SkipReasons[m] = SkipSnapshotMissing
		}
		return outcome
	}

	lastSentAt, err := readLastSentAt(ctx, p.store, inst)
	if err != nil {
		lastSentAt = 0
	}

	for _, mode := range sortedByPriority(opts.Modes) {
		reason, candidate := p.evaluateMode(ctx, writer, symbol, inst, mode, opts, now, derived, macro, lastSentAt)
		outcome.SkipReasons[mode] = reason
		if candidate != nil {
			outcome.Winner = candidate
			outcome.Triggered = true
			if err := p.applyWinnerSideEffects(ctx, writer, inst, mode, now); err != nil {
				p.logf(ctx, "post-gate side effects failed: %v", err)
			}
			break // mode priority: first mode whose pipeline passes wins
		}
	}

	return outcome
}

func sortedByPriority(modes []model.Mode) []model.Mode {
	out := make([]model.Mode, len(modes))
	copy(out, modes)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Priority() < out[j-1].Priority(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (p *Pipeline) evaluateMode(ctx context.Context, writer *Writer, symbol, inst string, mode model.Mode, opts Options, now time.Time, derived derivation.Result, macro MacroAnalysis, lastSentAtMs int64) (SkipReason, *Candidate) {
	detectionTF := mode.DetectionTimeframe()
	lastState, hasLastState, err := readLastState(ctx, p.store, mode, inst)
	if err != nil {
		hasLastState = false
	}

	current := derived.Deltas[detectionTF].State
	fired, _ := detectionGate(p.cfg, detectionInput{deltas: derived.Deltas}, detectionTF, lastState, hasLastState)

	// Seed lastState whenever the detection gate is evaluated, regardless
	// of later skips, per §9's fixed open question. Not touched on
	// auth failures (handled earlier, before this function runs) or dry=1
	// (Writer itself no-ops).
	if err := seedLastState(ctx, writer, mode, inst, current); err != nil {
		p.logf(ctx, "seed last state failed: %v", err)
	}

	if !fired && !opts.Force {
		return SkipNoDetectionTrigger, nil
	}

	if !cooldownGate(now, lastSentAtMs, p.cfg.CooldownMinutes, opts.Force) {
		return SkipCooldown, nil
	}

	bias := determineBias(mode, derived.Deltas)

	if !macroGate(p.cfg, macro, inst, bias) {
		return SkipMacroBlockBTCBullExpansion, nil
	}

	levels1h := derived.Levels[model.TF1h]
	if !warmupGate(levels1h, opts.Force) {
		return SkipWarmupGate1h, nil
	}
	if !hasUsableRange(levels1h) {
		return SkipMissingLevelsOrPrice, nil
	}

	if bias == model.LeanNeutral {
		return SkipNeutralBias, nil
	}

	price := latestPrice(derived.Series)
	if price == nil {
		return SkipMissingLevelsOrPrice, nil
	}

	delta4h := derived.Deltas[model.TF4h]
	edge := edgeBand(p.cfg, levels1h, delta4h)

	var entry entryResult
	switch mode {
	case model.ModeScalp:
		entry = evaluateScalpEntry(p.cfg, bias, *price, levels1h, edge, derived.Series, derived.Deltas[model.TF15m])
	default:
		entry = evaluateSwingBuildEntry(p.cfg, bias, *price, levels1h, edge, derived.Deltas[model.TF15m], derived.Deltas[model.TF5m])
	}

	if !entry.fired {
		if entry.reject != "" {
			return entry.reject, nil
		}
		return SkipNoEntryTrigger, nil
	}

	strong := b1Strong(bias, *price, levels1h, edge)
	if isRegimeDowngrade(p.cfg, bias, delta4h) {
		strong = false
	}

	lean15m := derived.Deltas[model.TF15m].Lean
	var oi15m *float64
	if v := derived.Deltas[model.TF15m].OiChangePct; v != nil {
		f, _ := v.Float64()
		oi15m = &f
	}
	grade := gradeConfidence(entry.execReason, strong, oi15m, lean15m, bias, derived.Deltas[model.TF1h].Lean, p.cfg.ShockOIMin)

	leverage := computeLeverage(p.cfg, bias, *price, levels1h,
		derived.Deltas[model.TF5m].OiChangePct, derived.Deltas[model.TF15m].OiChangePct,
		derived.Deltas[model.TF5m].FundingChange)

	return SkipNone, &Candidate{
		Instrument: inst,
		Symbol:     symbol,
		Mode:       mode,
		Bias:       bias,
		ExecReason: entry.execReason,
		Price:      *price,
		Levels1h:   levels1h,
		Levels4h:   derived.Levels[model.TF4h],
		Deltas:     derived.Deltas,
		Confidence: grade,
		Leverage:   leverage,
	}
}

func (p *Pipeline) applyWinnerSideEffects(ctx context.Context, writer *Writer, inst string, mode model.Mode, now time.Time) error {
	if err := writeLastSentAt(ctx, writer, inst, now); err != nil {
		return fmt.Errorf("write last sent at: %w", err)
	}
	return nil
}

func (p *Pipeline) computeMacro(ctx context.Context, now time.Time) (MacroAnalysis, error) {
	if !p.cfg.MacroEnabled {
		return MacroAnalysis{}, nil
	}
	btcInst, err := p.resolver.Resolve(ctx, p.cfg.MacroBTCSymbol)
	if err != nil {
		return MacroAnalysis{}, fmt.Errorf("resolve btc instrument: %w", err)
	}
	bucket := model.Bucket(now.UnixMilli())
	derived, err := p.engine.Derive(ctx, btcInst, bucket)
	if err != nil {
		return MacroAnalysis{}, fmt.Errorf("derive btc: %w", err)
	}
	if derived.SnapshotMissing {
		return MacroAnalysis{BTCInstrument: btcInst}, nil
	}
	return computeMacroAnalysis(p.cfg, btcInst, derived.Deltas[model.TF4h]), nil
}

func (p *Pipeline) writeHeartbeat(ctx context.Context, writer *Writer, now time.Time, symbols []string, opts Options, result RunResult) error {
	hb := model.Heartbeat{
		RunID:          uuid.NewString(),
		Ts:             now.UnixMilli(),
		Mode:           modesToString(opts.Modes),
		Symbols:        symbols,
		TriggeredCount: result.TriggeredCount,
		Dry:            opts.Dry,
		Forced:         opts.Force,
	}
	if result.NotifierFailed {
		hb.Error = "telegram_failed"
	}
	encoded, err := json.Marshal(hb)
	if err != nil {
		return fmt.Errorf("encode heartbeat: %w", err)
	}
	if err := writer.Set(ctx, p.cfg.HeartbeatKey, encoded, time.Duration(p.cfg.HeartbeatTTLSeconds)*time.Second); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	if err := writer.LPushCapped(ctx, heartbeatHistoryKey, encoded, heartbeatHistoryCap, time.Duration(p.cfg.HeartbeatTTLSeconds)*time.Second); err != nil {
		return fmt.Errorf("write heartbeat history: %w", err)
	}
	return nil
}

func modesToString(modes []model.Mode) string {
	out := ""
	for i, m := range modes {
		if i > 0 {
			out += ","
		}
		out += string(m)
	}
	return out
}

func latestPrice(series []model.SeriesPoint) *decimal.Decimal {
	if len(series) == 0 {
		return nil
	}
	return series[len(series)-1].P
}

// SkipNoPerpetualMarket maps an instrument-resolution failure to a skip
// reason; kept as a function (not a constant) so callers can distinguish
// it from other error paths if the contract grows additional reasons.
func SkipNoPerpetualMarket(_ error) SkipReason {
	return SkipReason("no_perpetual_market")
}

func (p *Pipeline) logf(ctx context.Context, format string, args ...interface{}) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(ctx, fmt.Sprintf(format, args...))
}

func candidateToMessage(c Candidate) notify.TriggeredSymbol {
	return notify.TriggeredSymbol{
		Symbol:         c.Symbol,
		FormattedPrice: model.FormatPrice(c.Price),
		Bias:           string(c.Bias),
		Hi:             model.FormatPrice(c.Levels1h.Hi),
		Lo:             model.FormatPrice(c.Levels1h.Lo),
		EntryLine:      entryLine(c),
		Confidence:     string(c.Confidence),
		LeverageLow:    c.Leverage.Low,
		LeverageHigh:   c.Leverage.High,
		HasLeverage:    true,
	}
}

func entryLine(c Candidate) string {
	switch c.ExecReason {
	case ExecLongBreakout:
		return fmt.Sprintf("long breakout above 1h high %s", model.FormatPrice(c.Levels1h.Hi))
	case ExecShortBreakout:
		return fmt.Sprintf("short breakout below 1h low %s", model.FormatPrice(c.Levels1h.Lo))
	case ExecLongSweepReclaim:
		return fmt.Sprintf("long sweep-and-reclaim of 1h low %s", model.FormatPrice(c.Levels1h.Lo))
	case ExecShortSweepReject:
		return fmt.Sprintf("short sweep-and-reject of 1h high %s", model.FormatPrice(c.Levels1h.Hi))
	case ExecLongReversal:
		return fmt.Sprintf("long reversal near 1h low %s", model.FormatPrice(c.Levels1h.Lo))
	case ExecShortReversal:
		return fmt.Sprintf("short reversal near 1h high %s", model.FormatPrice(c.Levels1h.Hi))
	default:
		return "entry trigger fired"
	}
}
