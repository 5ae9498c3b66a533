package marketsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ai-agentic-browser/pkg/observability"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Config configures the HTTP-backed MarketSource.
type Config struct {
	BaseURL           string
	Timeout           time.Duration // per-call deadline, ~8s recommended
	RequestsPerSecond float64
	Burst             int
}

// OKXClient is an HTTP-backed MarketSource for an OKX-shaped public swap
// market API: a rate-limiter-guarded request helper with no
// order-management surface.
type OKXClient struct {
	logger     *observability.Logger
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOKXClient constructs an OKXClient ready to serve Observe and
// ListSwapInstruments.
func NewOKXClient(cfg Config, logger *observability.Logger) *OKXClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	return &OKXClient{
		logger:     logger,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    NewOutboundLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
}

type tickerResponse struct {
	Data []struct {
		Last string `json:"last"`
	} `json:"data"`
}

type openInterestResponse struct {
	Data []struct {
		Oi string `json:"oi"`
	} `json:"data"`
}

type fundingRateResponse struct {
	Data []struct {
		FundingRate string `json:"fundingRate"`
	} `json:"data"`
}

type instrumentsResponse struct {
	Data []struct {
		InstID   string `json:"instId"`
		BaseCcy  string `json:"ctValCcy"`
		InstType string `json:"instType"`
	} `json:"data"`
}

// Observe fetches price, funding rate and open interest for instrumentID.
// Each sub-call is independent: a parse failure on one field yields nil for
// that field rather than aborting the whole observation, per §3.2/§7.
func (c *OKXClient) Observe(ctx context.Context, instrumentID string) (Observation, error) {
	if !c.limiter.Allow() {
		return Observation{}, fmt.Errorf("marketsource: outbound rate limit exceeded")
	}

	obs := Observation{}

	var ticker tickerResponse
	if err := c.get(ctx, "/api/v5/market/ticker", map[string]string{"instId": instrumentID}, &ticker); err != nil {
		return Observation{}, fmt.Errorf("fetch ticker: %w", err)
	}
	if len(ticker.Data) > 0 {
		if v, err := decimal.NewFromString(ticker.Data[0].Last); err == nil {
			obs.Price = &v
		}
	}

	var oi openInterestResponse
	if err := c.get(ctx, "/api/v5/public/open-interest", map[string]string{"instId": instrumentID}, &oi); err == nil && len(oi.Data) > 0 {
		if v, err := decimal.NewFromString(oi.Data[0].Oi); err == nil {
			obs.OpenInterestContracts = &v
		}
	}

	var fr fundingRateResponse
	if err := c.get(ctx, "/api/v5/public/funding-rate", map[string]string{"instId": instrumentID}, &fr); err == nil && len(fr.Data) > 0 {
		if v, err := decimal.NewFromString(fr.Data[0].FundingRate); err == nil {
			obs.FundingRate = &v
		}
	}

	return obs, nil
}

// ListSwapInstruments fetches the full current SWAP-instrument listing.
func (c *OKXClient) ListSwapInstruments(ctx context.Context) ([]Instrument, error) {
	if !c.limiter.Allow() {
		return nil, fmt.Errorf("marketsource: outbound rate limit exceeded")
	}
	var resp instrumentsResponse
	if err := c.get(ctx, "/api/v5/public/instruments", map[string]string{"instType": "SWAP"}, &resp); err != nil {
		return nil, fmt.Errorf("list swap instruments: %w", err)
	}
	out := make([]Instrument, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, Instrument{ID: d.InstID, Base: baseFromInstID(d.InstID)})
	}
	return out, nil
}

func baseFromInstID(instID string) string {
	for i := 0; i < len(instID); i++ {
		if instID[i] == '-' {
			return instID[:i]
		}
	}
	return instID
}

func (c *OKXClient) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	q := req.URL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
