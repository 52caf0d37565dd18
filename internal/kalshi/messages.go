package kalshi

import (
	json "github.com/goccy/go-json"
)

// Inbound frame types.
const (
	msgTypeError    = "error"
	msgTypeOK       = "ok"
	msgTypeSnapshot = "orderbook_snapshot"
	msgTypeDelta    = "orderbook_delta"
	msgTypeTickerV2 = "ticker_v2"
)

// Subscribed channels.
const (
	channelOrderbookDelta = "orderbook_delta"
	channelTickerV2       = "ticker_v2"
)

// command is an outbound WebSocket command. The id is echoed back by the
// venue on the matching ok/error frame.
type command struct {
	ID     int64  `json:"id"`
	Cmd    string `json:"cmd"`
	Params any    `json:"params"`
}

// subscribeParams subscribes a set of markets on a set of channels.
type subscribeParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers"`
}

// updateSubscriptionParams adds or removes markets on existing
// subscriptions.
type updateSubscriptionParams struct {
	SIDs          []int    `json:"sids"`
	MarketTickers []string `json:"market_tickers"`
	Action        string   `json:"action"`
}

// envelope is the discriminated wrapper around every inbound frame.
type envelope struct {
	ID   int64           `json:"id,omitempty"`
	Type string          `json:"type"`
	SID  int             `json:"sid,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
	Msg  json.RawMessage `json:"msg"`
}

// okPayload confirms a subscription command.
type okPayload struct {
	Channel       string   `json:"channel"`
	SID           int      `json:"sid"`
	MarketTickers []string `json:"market_tickers,omitempty"`
}

// errorPayload carries a venue-side error.
type errorPayload struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// snapshotPayload replaces the full book for one market. Levels are
// [price_cents, contracts] tuples; YES and NO are independent books.
type snapshotPayload struct {
	MarketTicker string   `json:"market_ticker"`
	Yes          [][2]int `json:"yes"`
	No           [][2]int `json:"no"`
}

// deltaPayload mutates a single price level by a signed contract delta.
type deltaPayload struct {
	MarketTicker string `json:"market_ticker"`
	Price        int    `json:"price"`
	Delta        int    `json:"delta"`
	Side         string `json:"side"`
}

// tickerV2Payload carries incremental ticker state.
type tickerV2Payload struct {
	MarketTicker      string `json:"market_ticker"`
	Price             int    `json:"price"`
	YesBid            int    `json:"yes_bid"`
	YesAsk            int    `json:"yes_ask"`
	VolumeDelta       int64  `json:"volume_delta"`
	OpenInterestDelta int64  `json:"open_interest_delta"`
	Ts                int64  `json:"ts"`
}

// restMarketResponse is the REST shape used to bootstrap ticker state the
// first time a ticker_v2 frame is seen for a market.
type restMarketResponse struct {
	Market struct {
		Ticker    string `json:"ticker"`
		YesBid    int    `json:"yes_bid"`
		YesAsk    int    `json:"yes_ask"`
		LastPrice int    `json:"last_price"`
		Volume    int64  `json:"volume"`
	} `json:"market"`
}
