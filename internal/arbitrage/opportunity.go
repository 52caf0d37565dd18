package arbitrage

import "time"

// Direction says which venue is sold and which is bought.
type Direction string

const (
	// DirectionKToP sells on Kalshi and buys on Polymarket.
	DirectionKToP Direction = "K_TO_P"
	// DirectionPToK sells on Polymarket and buys on Kalshi.
	DirectionPToK Direction = "P_TO_K"
)

// Side is the contract side sold.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// ExecutionInfo identifies how much can be executed and which venue's
// liquidity binds.
type ExecutionInfo struct {
	KalshiSize    float64 `json:"k_size"`
	PolySize      float64 `json:"p_size"`
	Min           float64 `json:"min"`
	LimitingVenue string  `json:"limiting_factor"`
}

// Opportunity is one detected cross-venue arbitrage. Immutable once built.
type Opportunity struct {
	ID            string        `json:"id"`
	PairID        string        `json:"pair_id"`
	Timestamp     time.Time     `json:"timestamp"`
	Spread        float64       `json:"spread"`
	Direction     Direction     `json:"direction"`
	Side          Side          `json:"side"`
	KalshiPrice   float64       `json:"k_price"`
	PolyPrice     float64       `json:"p_price"`
	KalshiTicker  string        `json:"k_market_key"`
	PolyAssetID   string        `json:"p_asset_id"`
	ExecutionSize float64       `json:"execution_size"`
	Execution     ExecutionInfo `json:"execution_info"`
}
