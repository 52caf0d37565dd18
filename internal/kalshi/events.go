package kalshi

// Bus events published by the Kalshi pipeline.
const (
	// EventOrderbookUpdate fires on every applied snapshot or delta.
	EventOrderbookUpdate = "kalshi.orderbook_update"

	// EventBidAskUpdated fires only when a book's best bid or derived ask
	// actually moved. Arbitrage evaluation keys off this event.
	EventBidAskUpdated = "kalshi.bid_ask_updated"

	// EventTickerUpdate carries cumulative ticker state after a ticker_v2
	// frame is applied.
	EventTickerUpdate = "kalshi.ticker_update"

	// EventSubscriptionOK confirms a subscribe command; the client listens
	// for it to learn the venue-assigned subscription ids.
	EventSubscriptionOK = "kalshi.subscription_ok"

	// EventVenueError surfaces venue-side error frames.
	EventVenueError = "kalshi.error"
)

// BookUpdate is the payload of EventOrderbookUpdate.
type BookUpdate struct {
	Ticker     string
	Book       *Book
	IsSnapshot bool
}

// BidAskUpdate is the payload of EventBidAskUpdated.
type BidAskUpdate struct {
	Ticker string
	Book   *Book
}

// TickerUpdate is the payload of EventTickerUpdate. BidAskChanged reports
// whether the frame moved the venue's own bid/ask view, so downstream can
// skip no-op refreshes.
type TickerUpdate struct {
	State         TickerState
	BidAskChanged bool
}

// SubscriptionOK is the payload of EventSubscriptionOK.
type SubscriptionOK struct {
	CommandID     int64
	Channel       string
	SID           int
	MarketTickers []string
}

// VenueError is the payload of EventVenueError.
type VenueError struct {
	CommandID int64
	Code      int
	Message   string
}
