package polymarket

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Inbound event types.
const (
	eventTypeBook           = "book"
	eventTypePriceChange    = "price_change"
	eventTypeTickSizeChange = "tick_size_change"
	eventTypeLastTradePrice = "last_trade_price"
)

// Change sides on price_change frames.
const (
	sideBuy  = "BUY"
	sideSell = "SELL"
)

// subscribeFrame is the outbound per-asset subscription. The market channel
// is anonymous; auth is an empty string.
type subscribeFrame struct {
	Auth    string   `json:"auth"`
	Channel string   `json:"channel"`
	Market  string   `json:"market,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
}

// wireLevel is one (price, size) book level. The venue emits both the
// two-element array form and the object form; both decode to decimal
// strings, never floats.
type wireLevel struct {
	Price string
	Size  string
}

func (l *wireLevel) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var pair [2]string
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		l.Price, l.Size = pair[0], pair[1]
		return nil
	}

	var obj struct {
		Price string `json:"price"`
		Size  string `json:"size"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	l.Price, l.Size = obj.Price, obj.Size
	return nil
}

// priceChange is one patch entry on a price_change frame. size "0" removes
// the level.
type priceChange struct {
	Price string `json:"price"`
	Side  string `json:"side"`
	Size  string `json:"size"`
}

// wsMessage is the discriminated inbound frame. Unused fields for a given
// event_type are simply absent.
type wsMessage struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Timestamp string `json:"timestamp"`
	Hash      string `json:"hash"`

	// book
	Bids []wireLevel `json:"bids"`
	Asks []wireLevel `json:"asks"`

	// price_change
	Changes []priceChange `json:"changes"`

	// tick_size_change
	OldTickSize string `json:"old_tick_size"`
	NewTickSize string `json:"new_tick_size"`

	// last_trade_price
	Price string `json:"price"`
	Side  string `json:"side"`
	Size  string `json:"size"`
}

// parseFrames decodes a raw frame into messages. The venue batches: a frame
// is either a single message object or an array of them.
func parseFrames(data []byte) ([]wsMessage, error) {
	trimmed := data
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\n' || trimmed[0] == '\t' || trimmed[0] == '\r') {
		trimmed = trimmed[1:]
	}

	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty frame")
	}

	if trimmed[0] == '[' {
		var msgs []wsMessage
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return nil, err
		}
		return msgs, nil
	}

	var msg wsMessage
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil, err
	}
	return []wsMessage{msg}, nil
}
