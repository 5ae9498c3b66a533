// Package httpapi implements the two scheduled HTTP GET entry points of
// §6.1: /snapshot (ingestor) and /alert (evaluator). Both are read via a
// scheduler (cron, systemd timer) rather than a long-running client, so
// the handlers are synchronous request/response with no streaming.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ai-agentic-browser/internal/broadcast"
	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/evaluation"
	"github.com/ai-agentic-browser/internal/ingestor"
	"github.com/ai-agentic-browser/internal/model"
	mw "github.com/ai-agentic-browser/pkg/middleware"
	"github.com/ai-agentic-browser/pkg/observability"
)

// Server wires the ingestor and the evaluation pipeline to HTTP handlers.
type Server struct {
	ingestor     *ingestor.Ingestor
	pipeline     *evaluation.Pipeline
	metrics      *observability.MetricsProvider
	logger       *observability.Logger
	hub          *broadcast.Hub
	now          func() time.Time
	defaultModes []model.Mode
}

// New wires the handlers. gatewayCfg supplies the &mode= fallback (§6.4
// DEFAULT_MODE/DEFAULT_MODES) -- a request that omits &mode= entirely uses
// this set rather than a hardcoded literal.
func New(ing *ingestor.Ingestor, pipe *evaluation.Pipeline, metrics *observability.MetricsProvider, logger *observability.Logger, gatewayCfg config.GatewayConfig) *Server {
	defaults := make([]model.Mode, 0, len(gatewayCfg.DefaultModeList()))
	for _, raw := range gatewayCfg.DefaultModeList() {
		if mode, ok := model.ParseMode(strings.ToLower(strings.TrimSpace(raw))); ok {
			defaults = append(defaults, mode)
		}
	}
	if len(defaults) == 0 {
		defaults = []model.Mode{model.ModeScalp}
	}
	return &Server{ingestor: ing, pipeline: pipe, metrics: metrics, logger: logger, now: time.Now, defaultModes: defaults}
}

// WithHub attaches a debug broadcast hub: every /alert evaluation also
// publishes its per-symbol/mode decisions for connected debug clients.
func (s *Server) WithHub(hub *broadcast.Hub) *Server {
	s.hub = hub
	return s
}

// Routes registers the handlers on mux. The caller applies CORS/logging/
// rate-limit middleware around the whole mux; SharedSecret gates only
// /alert, per §6.1 -- /snapshot carries no secret and is meant to be
// invoked by a private ingestion scheduler.
func (s *Server) Routes(mux *http.ServeMux, alertSecret string) {
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.Handle("GET /alert", mw.SharedSecret(alertSecret)(http.HandlerFunc(s.handleAlert)))
	if s.hub != nil {
		mux.HandleFunc("GET /debug/ws", s.hub.ServeWS)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func splitSymbols(raw string) []string {
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

type snapshotResponse struct {
	OK      bool                      `json:"ok"`
	Ts      int64                     `json:"ts"`
	Symbols []string                  `json:"symbols"`
	Results []ingestor.SymbolResult   `json:"results"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	symbols := splitSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "symbols is required"})
		return
	}

	results := s.ingestor.IngestBatch(r.Context(), symbols)
	if s.metrics != nil {
		for range results {
			s.metrics.RecordMarketCall(r.Context())
		}
	}

	writeJSON(w, http.StatusOK, snapshotResponse{
		OK:      true,
		Ts:      s.now().UnixMilli(),
		Symbols: symbols,
		Results: results,
	})
}

type alertDebugPayload struct {
	Macro       evaluation.MacroAnalysis               `json:"macro"`
	SkipReasons map[string]map[model.Mode]evaluation.SkipReason `json:"skip_reasons"`
	Message     string                                  `json:"message,omitempty"`
}

type alertResponse struct {
	OK             bool               `json:"ok"`
	Sent           bool               `json:"sent"`
	TriggeredCount int                `json:"triggered_count"`
	Force          bool               `json:"force"`
	Dry            bool               `json:"dry"`
	Debug          *alertDebugPayload `json:"debug,omitempty"`
}

// handleAlert implements the evaluator entry point. By the time this runs,
// mw.SharedSecret has already rejected any request without a valid secret
// -- no state is ever written on an auth failure, per §7.
func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := evaluation.Options{
		RiskProfile: q.Get("risk_profile"),
		DriverTF:    q.Get("driver_tf"),
		Force:       q.Get("force") == "1",
		Dry:         q.Get("dry") == "1",
		Debug:       q.Get("debug") == "1",
		Now:         s.now(),
	}

	modes, err := s.parseModes(q.Get("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}
	opts.Modes = modes

	symbols := splitSymbols(q.Get("symbols"))

	ctx, cancel := context.WithTimeout(r.Context(), 25*time.Second)
	defer cancel()

	result, err := s.pipeline.Run(ctx, symbols, opts)
	if err != nil {
		s.logger.Error(ctx, "alert run failed", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}

	if s.metrics != nil {
		for _, outcome := range result.Outcomes {
			for mode, reason := range outcome.SkipReasons {
				s.metrics.RecordEvaluation(ctx, string(mode), outcome.Triggered && outcome.Winner != nil && outcome.Winner.Mode == mode)
				if reason != evaluation.SkipNone {
					s.metrics.RecordSkip(ctx, string(mode), string(reason))
				}
			}
		}
		if result.NotifierFailed {
			s.metrics.RecordNotifierFailure(ctx, "telegram")
		}
	}

	if s.hub != nil {
		for _, outcome := range result.Outcomes {
			for mode, reason := range outcome.SkipReasons {
				d := broadcast.Decision{Symbol: outcome.Symbol, Mode: string(mode), SkipReason: string(reason)}
				if outcome.Winner != nil && outcome.Winner.Mode == mode {
					d.Triggered = true
					d.Candidate = outcome.Winner
				}
				s.hub.Publish(d)
			}
		}
	}

	resp := alertResponse{
		OK:             true,
		Sent:           result.TriggeredCount > 0 && !opts.Dry && !result.NotifierFailed,
		TriggeredCount: result.TriggeredCount,
		Force:          opts.Force,
		Dry:            opts.Dry,
	}

	if opts.Debug {
		skipReasons := make(map[string]map[model.Mode]evaluation.SkipReason, len(result.Outcomes))
		for _, outcome := range result.Outcomes {
			skipReasons[outcome.Symbol] = outcome.SkipReasons
		}
		resp.Debug = &alertDebugPayload{
			Macro:       result.Macro,
			SkipReasons: skipReasons,
			Message:     result.Message,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) parseModes(raw string) ([]model.Mode, error) {
	if raw == "" {
		return s.defaultModes, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]model.Mode, 0, len(parts))
	for _, p := range parts {
		mode, ok := model.ParseMode(strings.TrimSpace(p))
		if !ok {
			return nil, errInvalidMode(p)
		}
		out = append(out, mode)
	}
	return out, nil
}

type errInvalidMode string

func (e errInvalidMode) Error() string {
	return "invalid mode: " + strconv.Quote(string(e))
}
