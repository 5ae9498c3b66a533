// Package marketsource defines the pluggable upstream exchange contract
// (the MarketSource of §1) plus an HTTP-backed implementation targeting an
// OKX-shaped public swap-market API, covering only the calls this gateway
// actually needs: ticker/funding/open interest reads and SWAP instrument
// listing. No order placement — a Non-goal of this gateway.
package marketsource

import (
	"context"

	"github.com/shopspring/decimal"
)

// Observation is the raw upstream reading for one instrument, before it is
// written into a model.SnapshotPoint.
type Observation struct {
	Price                 *decimal.Decimal
	FundingRate           *decimal.Decimal
	OpenInterestContracts *decimal.Decimal
}

// Instrument is one entry of the SWAP-instrument listing.
type Instrument struct {
	ID   string // canonical id, e.g. ETH-USDT-SWAP
	Base string // e.g. ETH
}

// MarketSource is the pluggable upstream contract. Implementations fetch
// live data; tests use a hand-rolled fake.
type MarketSource interface {
	// Observe fetches (price, funding_rate, open_interest_contracts) for one
	// canonical instrument id. A field the upstream fails to parse is nil
	// rather than zero, per §3.2.
	Observe(ctx context.Context, instrumentID string) (Observation, error)

	// ListSwapInstruments fetches the full current SWAP-instrument listing.
	ListSwapInstruments(ctx context.Context) ([]Instrument, error)
}
