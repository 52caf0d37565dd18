package types

// Venue-level event names shared by both venue clients.
const (
	EventConnectionStatus = "venue.connection_status"
	EventClientError      = "venue.client_error"
)

// EventPairRemoved announces a committed pair removal so listeners can drop
// any per-market state they keep. Payload is the removed *MarketPair.
const EventPairRemoved = "pair.removed"

// ConnectionStatus is published whenever a venue client connects or drops.
type ConnectionStatus struct {
	ClientID  string `json:"client_id"`
	Connected bool   `json:"connected"`
}

// ClientError is published when a venue client hits a non-recoverable error.
type ClientError struct {
	ClientID string `json:"client_id"`
	Error    string `json:"error"`
}

// SubscribeMarketRequest asks a venue client to start tracking one market.
// Carried as the payload of the coordinated "subscribe_market" operation.
type SubscribeMarketRequest struct {
	Platform Platform `json:"platform"`
	MarketID string   `json:"market_identifier"`
}
