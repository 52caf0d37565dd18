package types

import "fmt"

// Platform identifies a market-data venue.
type Platform string

const (
	PlatformKalshi     Platform = "kalshi"
	PlatformPolymarket Platform = "polymarket"
)

// Valid reports whether the platform is one of the known venues.
func (p Platform) Valid() bool {
	return p == PlatformKalshi || p == PlatformPolymarket
}

// MarketPair couples one Kalshi market with the Polymarket YES and NO assets
// sharing the same underlying question.
type MarketPair struct {
	PairID       string `json:"pair_id"`
	KalshiTicker string `json:"kalshi_ticker"`
	PolyYesAsset string `json:"poly_yes_asset"`
	PolyNoAsset  string `json:"poly_no_asset"`
}

// Validate checks that all pair components are present and distinct.
func (p *MarketPair) Validate() error {
	if p.PairID == "" {
		return &ValidationError{Field: "pair_id", Message: "cannot be empty"}
	}

	if p.KalshiTicker == "" {
		return &ValidationError{Field: "kalshi_ticker", Message: "cannot be empty"}
	}

	if p.PolyYesAsset == "" || p.PolyNoAsset == "" {
		return &ValidationError{Field: "poly_assets", Message: "both YES and NO asset ids are required"}
	}

	if p.PolyYesAsset == p.PolyNoAsset {
		return &ValidationError{
			Field:   "poly_assets",
			Message: fmt.Sprintf("YES and NO assets must differ, got %q twice", p.PolyYesAsset),
		}
	}

	return nil
}
