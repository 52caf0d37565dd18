package polymarket

// Bus events published by the Polymarket pipeline.
const (
	// EventOrderbookUpdate fires on every applied snapshot or patch.
	EventOrderbookUpdate = "polymarket.orderbook_update"

	// EventBidAskUpdated fires only when the best bid or ask moved.
	EventBidAskUpdated = "polymarket.bid_ask_updated"

	// EventLastTrade carries last_trade_price frames.
	EventLastTrade = "polymarket.last_trade"
)

// BookUpdate is the payload of EventOrderbookUpdate.
type BookUpdate struct {
	AssetID    string
	Book       *Book
	IsSnapshot bool
}

// BidAskUpdate is the payload of EventBidAskUpdated.
type BidAskUpdate struct {
	AssetID string
	Book    *Book
}

// LastTrade is the payload of EventLastTrade.
type LastTrade struct {
	AssetID string
	Price   string
	Side    string
	Size    float64
}
