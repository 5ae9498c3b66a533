// Command perpgatectl is an operator CLI around the gateway's core
// pipeline: start the HTTP server, force a one-shot ingest or evaluate run
// from a terminal, or replay historical buckets already stored in Redis to
// sanity-check derivation output.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/evaluation"
	"github.com/ai-agentic-browser/internal/model"
	"github.com/ai-agentic-browser/internal/wiring"
	"github.com/ai-agentic-browser/pkg/observability"
	"github.com/spf13/cobra"
)

var (
	symbolsArg string
	modeArg    string
	forceArg   bool
	dryArg     bool
	debugArg   bool
	bucketsArg int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "perpgatectl",
	Short: "Operate the perpetual-futures market-signal gateway from a terminal.",
}

func init() {
	rootCmd.AddCommand(serveCmd, ingestCmd, evaluateCmd, replayCmd)

	ingestCmd.Flags().StringVarP(&symbolsArg, "symbols", "s", "", "Comma-separated symbols to ingest (required)")
	ingestCmd.MarkFlagRequired("symbols")

	evaluateCmd.Flags().StringVarP(&symbolsArg, "symbols", "s", "", "Comma-separated symbols to evaluate (empty = configured default set)")
	evaluateCmd.Flags().StringVarP(&modeArg, "mode", "m", "", "Comma-separated modes: scalp,swing,build (empty = configured default modes)")
	evaluateCmd.Flags().BoolVarP(&forceArg, "force", "f", false, "Bypass the detection, cooldown and 1h warmup gates (macro still applies)")
	evaluateCmd.Flags().BoolVarP(&dryArg, "dry", "d", true, "Run the pipeline without delivering notifications or writing state")
	evaluateCmd.Flags().BoolVar(&debugArg, "debug", true, "Set the pipeline's debug option (the printed result always includes macro context and skip reasons)")

	replayCmd.Flags().StringVarP(&symbolsArg, "symbols", "s", "", "Comma-separated symbols to replay (required)")
	replayCmd.Flags().IntVarP(&bucketsArg, "buckets", "b", 12, "Number of trailing 5-minute buckets to re-derive")
	replayCmd.MarkFlagRequired("symbols")
}

func splitArg(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func loadConfigOrDie() (*config.Config, *observability.Logger) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg, observability.NewLogger(cfg.Observability)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the long-lived HTTP server (identical to the perpgated binary).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfigOrDie()
		return wiring.RunServer(cfg)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingest pass over the given symbols and print the batch result.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfigOrDie()
		svc, err := wiring.Build(cmd.Context(), cfg, logger, true)
		if err != nil {
			return err
		}
		symbols := splitArg(symbolsArg)
		if len(symbols) == 0 {
			return fmt.Errorf("--symbols is required")
		}
		results := svc.Ingestor.IngestBatch(cmd.Context(), symbols)
		printJSON(results)
		return nil
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run one evaluator pass and print the triggered candidates and skip reasons.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfigOrDie()
		svc, err := wiring.Build(cmd.Context(), cfg, logger, true)
		if err != nil {
			return err
		}

		symbols := splitArg(symbolsArg)

		modeArgs := splitArg(modeArg)
		if len(modeArgs) == 0 {
			modeArgs = cfg.Gateway.DefaultModeList()
		}
		modes := make([]model.Mode, 0, len(modeArgs))
		for _, m := range modeArgs {
			mode, ok := model.ParseMode(strings.ToLower(m))
			if !ok {
				return fmt.Errorf("invalid mode: %q", m)
			}
			modes = append(modes, mode)
		}

		opts := evaluation.Options{
			Modes:       modes,
			RiskProfile: cfg.Gateway.DefaultRiskProfile,
			Force:       forceArg,
			Dry:         dryArg,
			Debug:       debugArg,
			Now:         time.Now(),
		}

		result, err := svc.Pipeline.Run(cmd.Context(), symbols, opts)
		if err != nil {
			return err
		}
		printJSON(result)
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-derive series/deltas/levels for the trailing N buckets of each symbol, without evaluating gates.",
	Long: "Replay reads back the snapshots already stored for each symbol and re-runs " +
		"derivation bucket by bucket, so an operator can inspect delta/level drift " +
		"without touching cooldown or notification state.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfigOrDie()
		svc, err := wiring.Build(cmd.Context(), cfg, logger, true)
		if err != nil {
			return err
		}

		symbols := splitArg(symbolsArg)
		if len(symbols) == 0 {
			return fmt.Errorf("--symbols is required")
		}
		if bucketsArg <= 0 {
			bucketsArg = 1
		}

		nowBucket := model.Bucket(time.Now().UnixMilli())
		type replayRow struct {
			Symbol          string                              `json:"symbol"`
			Bucket          int64                               `json:"bucket"`
			SnapshotMissing bool                                `json:"snapshot_missing"`
			Deltas          map[model.Timeframe]model.DeltaRecord  `json:"deltas,omitempty"`
			Levels          map[model.Timeframe]model.LevelsRecord `json:"levels,omitempty"`
		}
		var rows []replayRow

		for _, symbol := range symbols {
			inst, err := svc.Resolver.Resolve(cmd.Context(), symbol)
			if err != nil {
				rows = append(rows, replayRow{Symbol: symbol, SnapshotMissing: true})
				continue
			}
			for i := bucketsArg - 1; i >= 0; i-- {
				bucket := nowBucket - int64(i)
				derived, err := svc.Engine.Derive(cmd.Context(), inst, bucket)
				if err != nil {
					logger.Warn(cmd.Context(), "replay: derive failed", map[string]interface{}{"symbol": symbol, "bucket": bucket, "error": err.Error()})
					continue
				}
				rows = append(rows, replayRow{
					Symbol:          symbol,
					Bucket:          bucket,
					SnapshotMissing: derived.SnapshotMissing,
					Deltas:          derived.Deltas,
					Levels:          derived.Levels,
				})
			}
		}

		printJSON(rows)
		return nil
	},
}
