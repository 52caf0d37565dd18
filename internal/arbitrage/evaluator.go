package arbitrage

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RohitDayanand/polykalshi-client/internal/kalshi"
	"github.com/RohitDayanand/polykalshi-client/internal/polymarket"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// Settings are the runtime-tunable arbitrage thresholds.
type Settings struct {
	MinSpreadThreshold float64 `json:"min_spread_threshold"`
	MinTradeSize       float64 `json:"min_trade_size"`
}

// SettingsState is the shared, mutex-guarded current settings. The manager
// writes it under two-phase commit; the registry reads it per evaluation.
type SettingsState struct {
	mu      sync.RWMutex
	current Settings
}

// NewSettingsState seeds the state with initial settings.
func NewSettingsState(initial Settings) *SettingsState {
	return &SettingsState{current: initial}
}

// Current returns the active settings.
func (s *SettingsState) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *SettingsState) set(next Settings) {
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}

// Validate checks threshold ranges.
func (s Settings) Validate() error {
	if s.MinSpreadThreshold < 0 || s.MinSpreadThreshold > 1 {
		return &types.ValidationError{Field: "min_spread_threshold", Message: "must be in [0,1]"}
	}
	if s.MinTradeSize < 0 {
		return &types.ValidationError{Field: "min_trade_size", Message: "must be >= 0"}
	}
	return nil
}

// quotes is the normalized decimal view of one pair's three books, with
// venue fees already applied on the Kalshi side.
type quotes struct {
	kYesBid, kYesAsk float64
	kNoBid, kNoAsk   float64
	pYesBid, pYesAsk float64
	pNoBid, pNoAsk   float64

	// liquidity at the relevant best levels, in contracts
	kYesBidSize, kNoBidSize  float64
	pYesBidSize, pYesAskSize float64
	pNoBidSize, pNoAskSize   float64
}

// Evaluate is a pure function over one pair's current book snapshots. It
// returns every strategy whose fee-adjusted spread clears the threshold
// with executable size above the minimum; missing quotes on any leg yield
// an empty result rather than a partial evaluation.
func Evaluate(pair *types.MarketPair, kBook *kalshi.Book, pYes, pNo *polymarket.Book, settings Settings, now time.Time) []*Opportunity {
	q, ok := extractQuotes(pair.KalshiTicker, kBook, pYes, pNo)
	if !ok {
		return nil
	}

	var out []*Opportunity

	type strategy struct {
		spread    float64
		direction Direction
		side      Side
		kPrice    float64
		pPrice    float64
		kSize     float64
		pSize     float64
	}

	strategies := []strategy{
		// Sell K-YES, buy P-NO.
		{1 - (q.kYesBid + q.pNoAsk), DirectionKToP, SideYes, q.kYesBid, q.pNoAsk, q.kYesBidSize, q.pNoAskSize},
		// Sell K-NO, buy P-YES.
		{1 - (q.kNoBid + q.pYesAsk), DirectionKToP, SideNo, q.kNoBid, q.pYesAsk, q.kNoBidSize, q.pYesAskSize},
		// Sell P-YES, buy K-NO. The derived K-NO ask rests on the YES bid.
		{1 - (q.pYesBid + q.kNoAsk), DirectionPToK, SideYes, q.kNoAsk, q.pYesBid, q.kYesBidSize, q.pYesBidSize},
		// Sell P-NO, buy K-YES.
		{1 - (q.pNoBid + q.kYesAsk), DirectionPToK, SideNo, q.kYesAsk, q.pNoBid, q.kNoBidSize, q.pNoBidSize},
	}

	for _, s := range strategies {
		if s.spread < settings.MinSpreadThreshold {
			continue
		}

		size := s.kSize
		limiting := "kalshi"
		if s.pSize < size {
			size = s.pSize
			limiting = "polymarket"
		}

		if size < settings.MinTradeSize {
			continue
		}

		assetID := pair.PolyYesAsset
		if s.side == SideNo {
			assetID = pair.PolyNoAsset
		}

		out = append(out, &Opportunity{
			ID:            uuid.New().String(),
			PairID:        pair.PairID,
			Timestamp:     now,
			Spread:        s.spread,
			Direction:     s.direction,
			Side:          s.side,
			KalshiPrice:   s.kPrice,
			PolyPrice:     s.pPrice,
			KalshiTicker:  pair.KalshiTicker,
			PolyAssetID:   assetID,
			ExecutionSize: size,
			Execution: ExecutionInfo{
				KalshiSize:    s.kSize,
				PolySize:      s.pSize,
				Min:           size,
				LimitingVenue: limiting,
			},
		})
	}

	return out
}

// extractQuotes normalizes all eight quotes to decimals and applies Kalshi
// fees. Returns false when any leg is missing.
func extractQuotes(kTicker string, kBook *kalshi.Book, pYes, pNo *polymarket.Book) (quotes, bool) {
	var q quotes

	if kBook == nil || pYes == nil || pNo == nil {
		return q, false
	}
	if kBook.BestYesBid == 0 || kBook.BestNoBid == 0 {
		return q, false
	}

	rawYesBid := float64(kBook.BestYesBid) / 100
	rawNoBid := float64(kBook.BestNoBid) / 100
	rawYesAsk := 1 - rawNoBid
	rawNoAsk := 1 - rawYesBid

	q.kYesBid = effectiveBid(kTicker, rawYesBid)
	q.kNoBid = effectiveBid(kTicker, rawNoBid)
	q.kYesAsk = effectiveAsk(kTicker, rawYesAsk)
	q.kNoAsk = effectiveAsk(kTicker, rawNoAsk)

	q.kYesBidSize = float64(kBook.SizeAtYes(kBook.BestYesBid))
	q.kNoBidSize = float64(kBook.SizeAtNo(kBook.BestNoBid))

	var ok bool
	if q.pYesBid, ok = pYes.BestBidFloat(); !ok {
		return q, false
	}
	if q.pYesAsk, ok = pYes.BestAskFloat(); !ok {
		return q, false
	}
	if q.pNoBid, ok = pNo.BestBidFloat(); !ok {
		return q, false
	}
	if q.pNoAsk, ok = pNo.BestAskFloat(); !ok {
		return q, false
	}

	q.pYesBidSize = pYes.Bids[pYes.BestBid]
	q.pYesAskSize = pYes.Asks[pYes.BestAsk]
	q.pNoBidSize = pNo.Bids[pNo.BestBid]
	q.pNoAskSize = pNo.Asks[pNo.BestAsk]

	return q, true
}
