package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/derivation"
	"github.com/ai-agentic-browser/internal/evaluation"
	"github.com/ai-agentic-browser/internal/ingestor"
	"github.com/ai-agentic-browser/internal/kv"
	"github.com/ai-agentic-browser/internal/marketsource"
	"github.com/ai-agentic-browser/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.GatewayConfig {
	return config.GatewayConfig{
		CooldownMinutes:     20,
		DefaultMode:         "scalp",
		MomentumMin:         0.10,
		ShockOIMin:          0.50,
		ShockPriceMin:       0.20,
		EdgePct1h:           0.15,
		SwingMinOIPct:       -0.50,
		SwingReversalMin5m:  0.05,
		ScalpSweepLookback:  3,
		MacroBTCSymbol:      "BTCUSDT",
		LeverageMaxCap:      10,
		HeartbeatKey:        "alert:lastRun",
		HeartbeatTTLSeconds: 24 * 60 * 60,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := kv.NewMemoryStore()
	eng := derivation.New(store, nil)
	resolver := marketsource.NewResolver(store, marketsource.NewFake())
	ing := ingestor.New(store, marketsource.NewFake(), nil)
	pipe := evaluation.NewPipeline(store, eng, resolver, &notify.Fake{}, testConfig(), nil)
	return New(ing, pipe, nil, nil, testConfig())
}

func TestHandleSnapshot_RequiresSymbols(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.Routes(mux, "shh")

	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSnapshot_IngestsEachSymbol(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.Routes(mux, "shh")

	req := httptest.NewRequest(http.MethodGet, "/snapshot?symbols=ETHUSDT,BTCUSDT", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp snapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Len(t, resp.Results, 2)
}

func TestHandleAlert_RejectsMissingSecret(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.Routes(mux, "shh")

	req := httptest.NewRequest(http.MethodGet, "/alert", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleAlert_AcceptsSecretAndRunsDry(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.Routes(mux, "shh")

	req := httptest.NewRequest(http.MethodGet, "/alert?key=shh&dry=1&symbols=ETHUSDT", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp alertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.True(t, resp.Dry)
}

func TestHandleAlert_OmittedModeUsesConfiguredDefault(t *testing.T) {
	store := kv.NewMemoryStore()
	eng := derivation.New(store, nil)
	resolver := marketsource.NewResolver(store, marketsource.NewFake())
	ing := ingestor.New(store, marketsource.NewFake(), nil)
	cfg := testConfig()
	cfg.DefaultMode = ""
	cfg.DefaultModes = []string{"swing"}
	pipe := evaluation.NewPipeline(store, eng, resolver, &notify.Fake{}, cfg, nil)
	s := New(ing, pipe, nil, nil, cfg)

	mux := http.NewServeMux()
	s.Routes(mux, "shh")

	req := httptest.NewRequest(http.MethodGet, "/alert?key=shh&dry=1&debug=1&symbols=ETHUSDT", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp alertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Debug)
	require.Contains(t, resp.Debug.SkipReasons, "ETHUSDT")
	_, evaluatedSwing := resp.Debug.SkipReasons["ETHUSDT"]["swing"]
	assert.True(t, evaluatedSwing, "expected the configured default mode (swing) to have been evaluated")
}

func TestHandleAlert_RejectsUnknownMode(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	s.Routes(mux, "shh")

	req := httptest.NewRequest(http.MethodGet, "/alert?key=shh&mode=yolo", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
