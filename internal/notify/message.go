package notify

import (
	"fmt"
	"strings"
	"time"
)

// TriggeredSymbol is the rendering-ready view of one winning candidate,
// kept free of evaluation/model types so this package has no dependency on
// the gating pipeline's internals.
type TriggeredSymbol struct {
	Symbol        string
	FormattedPrice string
	Bias          string // "long" or "short"
	Hi            string
	Lo            string
	EntryLine     string // human-readable reason referencing explicit numeric levels
	Confidence    string // "A", "B", "C", or "" if not applicable
	LeverageLow   int
	LeverageHigh  int
	HasLeverage   bool
	EntryZone     string
	StopLoss      string
	TakeProfit    string
}

// MaxMessageLength is §6.3's approximate cap.
const MaxMessageLength = 3900

// RenderMessage builds the multi-line notification text of §6.3.
func RenderMessage(driverTF string, forced, dry bool, triggered []TriggeredSymbol, now time.Time, drilldownBase string) string {
	var b strings.Builder

	tags := ""
	if forced {
		tags += " [FORCE]"
	}
	if dry {
		tags += " [DRY]"
	}
	fmt.Fprintf(&b, "Driver: %s%s\n", driverTF, tags)
	fmt.Fprintf(&b, "%s\n\n", now.UTC().Format(time.RFC3339))

	symbols := make([]string, 0, len(triggered)+1)
	for _, t := range triggered {
		fmt.Fprintf(&b, "%s @ %s | bias: %s | 1h hi/lo: %s / %s\n", t.Symbol, t.FormattedPrice, t.Bias, t.Hi, t.Lo)
		fmt.Fprintf(&b, "Entry: %s\n", t.EntryLine)
		if t.Confidence != "" {
			fmt.Fprintf(&b, "Confidence: %s\n", t.Confidence)
		}
		if t.HasLeverage {
			fmt.Fprintf(&b, "Leverage: %dx-%dx (advisory)\n", t.LeverageLow, t.LeverageHigh)
		}
		if t.EntryZone != "" {
			fmt.Fprintf(&b, "Entry zone: %s\n", t.EntryZone)
		}
		if t.StopLoss != "" {
			fmt.Fprintf(&b, "Stop-loss: %s\n", t.StopLoss)
		}
		if t.TakeProfit != "" {
			fmt.Fprintf(&b, "Take-profit: %s\n", t.TakeProfit)
		}
		b.WriteString("\n")
		symbols = append(symbols, t.Symbol)
	}

	symbols = append(symbols, "BTC")
	fmt.Fprintf(&b, "Drilldown: %s?symbols=%s", drilldownBase, strings.Join(dedupe(symbols), ","))

	msg := b.String()
	if len(msg) > MaxMessageLength {
		msg = msg[:MaxMessageLength]
	}
	return msg
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
