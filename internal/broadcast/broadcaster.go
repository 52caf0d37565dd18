package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/arbitrage"
	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/internal/coordination"
	"github.com/RohitDayanand/polykalshi-client/internal/ticker"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

const componentID = "broadcaster"

// inboundFrame is one client→server control message.
type inboundFrame struct {
	Type      string  `json:"type"`
	MarketID  string  `json:"market_id,omitempty"`
	Platform  string  `json:"platform,omitempty"`
	MinVolume float64 `json:"min_volume,omitempty"`
	PriceMin  float64 `json:"price_min,omitempty"`
	PriceMax  float64 `json:"price_max,omitempty"`
}

// alertFrame wraps an opportunity for the egress protocol.
type alertFrame struct {
	Type string `json:"type"`
	*arbitrage.Opportunity
}

// Config holds broadcaster dependencies.
type Config struct {
	Bus         *bus.EventBus
	Channels    *ChannelManager
	Logger      *zap.Logger
	SendTimeout time.Duration
}

// Broadcaster fans published snapshots and alerts out to connected
// clients through their subscription filters. A send failure or timeout
// disconnects only the offending client and drops its subscriptions.
type Broadcaster struct {
	bus         *bus.EventBus
	channels    *ChannelManager
	logger      *zap.Logger
	sendTimeout time.Duration

	mu      sync.RWMutex
	clients map[string]*Client

	staged sync.Map
}

// New creates a broadcaster and wires its event subscriptions.
func New(cfg Config) *Broadcaster {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}

	b := &Broadcaster{
		bus:         cfg.Bus,
		channels:    cfg.Channels,
		logger:      cfg.Logger,
		sendTimeout: cfg.SendTimeout,
		clients:     make(map[string]*Client),
	}

	cfg.Bus.Subscribe(ticker.EventSnapshot, b.onTicker)
	cfg.Bus.Subscribe(arbitrage.EventAlert, b.onAlert)

	return b
}

// onTicker serializes a snapshot once and sends it to every matching
// client.
func (b *Broadcaster) onTicker(ctx context.Context, event string, payload any) error {
	snap, ok := payload.(*types.TickerSnapshot)
	if !ok {
		return fmt.Errorf("unexpected payload on %s: %T", event, payload)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal ticker snapshot: %w", err)
	}

	b.fanOut(b.channels.Recipients(snap), data, "ticker_snapshot")
	return nil
}

// onAlert routes an arbitrage alert to clients subscribed to either leg's
// market key, either platform, or everything.
func (b *Broadcaster) onAlert(ctx context.Context, event string, payload any) error {
	opp, ok := payload.(*arbitrage.Opportunity)
	if !ok {
		return fmt.Errorf("unexpected payload on %s: %T", event, payload)
	}

	data, err := json.Marshal(&alertFrame{Type: "arbitrage_alert", Opportunity: opp})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	recipients := b.channels.RecipientsForMarkets(opp.KalshiTicker, opp.PolyAssetID)
	b.fanOut(recipients, data, "arbitrage_alert")
	return nil
}

// fanOut sends one serialized frame to a recipient set; each failed send
// disconnects that client only.
func (b *Broadcaster) fanOut(recipients []string, data []byte, frameType string) {
	for _, clientID := range recipients {
		b.mu.RLock()
		client, connected := b.clients[clientID]
		b.mu.RUnlock()

		if !connected {
			continue
		}

		if err := client.Send(data); err != nil {
			SendFailuresTotal.Inc()
			b.logger.Warn("client-send-failed",
				zap.String("client-id", clientID),
				zap.Error(err))
			b.Disconnect(clientID, "send-failure")
			continue
		}

		FramesSentTotal.WithLabelValues(frameType).Inc()
	}
}

// HandleClient owns one egress connection: registers it, serves its
// control frames until the socket drops, then cleans up.
func (b *Broadcaster) HandleClient(ctx context.Context, c conn) {
	client := NewClient(uuid.New().String(), c, b.sendTimeout)

	b.mu.Lock()
	b.clients[client.ID] = client
	b.mu.Unlock()

	ClientsConnected.Inc()
	b.logger.Info("client-connected", zap.String("client-id", client.ID))

	defer b.Disconnect(client.ID, "read-closed")

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			b.sendError(client, "invalid JSON")
			continue
		}

		b.handleFrame(client, frame)
	}
}

func (b *Broadcaster) handleFrame(client *Client, frame inboundFrame) {
	switch frame.Type {
	case "subscribe_market":
		platform := types.Platform(frame.Platform)
		if frame.MarketID == "" {
			b.sendError(client, "market_id required")
			return
		}
		b.channels.Subscribe(client.ID, Subscription{
			Kind:      SubMarket,
			Platform:  platform,
			MarketKey: frame.MarketID,
		})
		b.confirm(client, "subscription_confirmed", frame.MarketID)

	case "subscribe_platform":
		if frame.Platform == "" {
			b.sendError(client, "platform required")
			return
		}
		b.channels.Subscribe(client.ID, Subscription{
			Kind:     SubPlatform,
			Platform: types.Platform(frame.Platform),
		})
		b.confirm(client, "subscription_confirmed", frame.Platform)

	case "subscribe_all":
		b.channels.Subscribe(client.ID, Subscription{Kind: SubAll})
		b.confirm(client, "subscription_confirmed", "all")

	case "subscribe_custom":
		sub := Subscription{Kind: SubCustom, MinVolume: frame.MinVolume}
		if frame.PriceMax > 0 {
			sub.PriceRange = &PriceRange{Min: frame.PriceMin, Max: frame.PriceMax}
		}
		b.channels.Subscribe(client.ID, sub)
		b.confirm(client, "subscription_confirmed", "custom")

	case "unsubscribe_market":
		b.channels.UnsubscribeMarket(client.ID, frame.MarketID)
		b.confirm(client, "unsubscription_confirmed", frame.MarketID)

	case "unsubscribe_platform":
		b.channels.UnsubscribePlatform(client.ID, types.Platform(frame.Platform))
		b.confirm(client, "unsubscription_confirmed", frame.Platform)

	default:
		b.sendError(client, fmt.Sprintf("unknown frame type %q", frame.Type))
	}
}

func (b *Broadcaster) confirm(client *Client, frameType, target string) {
	data, _ := json.Marshal(map[string]string{
		"type":   frameType,
		"target": target,
	})
	if err := client.Send(data); err != nil {
		b.Disconnect(client.ID, "send-failure")
	}
}

func (b *Broadcaster) sendError(client *Client, message string) {
	data, _ := json.Marshal(map[string]string{
		"type":    "error",
		"message": message,
	})
	if err := client.Send(data); err != nil {
		b.Disconnect(client.ID, "send-failure")
	}
}

// Disconnect removes a client and drops its subscriptions. Idempotent.
func (b *Broadcaster) Disconnect(clientID, reason string) {
	b.mu.Lock()
	client, ok := b.clients[clientID]
	delete(b.clients, clientID)
	b.mu.Unlock()

	if !ok {
		return
	}

	client.Close()
	b.channels.RemoveClient(clientID)
	ClientsConnected.Dec()
	DisconnectsTotal.WithLabelValues(reason).Inc()

	b.logger.Info("client-disconnected",
		zap.String("client-id", clientID),
		zap.String("reason", reason))
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	ids := make([]string, 0, len(b.clients))
	for id := range b.clients {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.Disconnect(id, "shutdown")
	}

	b.logger.Info("broadcaster-closed")
}

// ComponentID implements coordination.Participant.
func (b *Broadcaster) ComponentID() string { return componentID }

// Prepare validates the coordinated payload; the broadcaster can always
// honor membership changes, so staging records intent only.
func (b *Broadcaster) Prepare(ctx context.Context, op coordination.Operation) error {
	switch op.Type {
	case "add_pair", "subscribe_market":
		return nil
	case "remove_pair":
		pair, err := pairPayload(op.Payload)
		if err != nil {
			return err
		}
		b.staged.Store(op.ID, pair)
		return nil
	default:
		return fmt.Errorf("unsupported operation type %q", op.Type)
	}
}

// Commit drops all client subscriptions referencing a removed pair's
// markets.
func (b *Broadcaster) Commit(ctx context.Context, op coordination.Operation) error {
	if op.Type != "remove_pair" {
		return nil
	}

	v, ok := b.staged.LoadAndDelete(op.ID)
	if !ok {
		return fmt.Errorf("commit for unknown operation %s", op.ID)
	}

	pair := v.(*types.MarketPair)
	b.channels.DropMarket(pair.KalshiTicker)
	b.channels.DropMarket(pair.PolyYesAsset)
	b.channels.DropMarket(pair.PolyNoAsset)

	return nil
}

// Rollback discards the staged removal.
func (b *Broadcaster) Rollback(ctx context.Context, op coordination.Operation) {
	b.staged.Delete(op.ID)
}

func pairPayload(payload any) (*types.MarketPair, error) {
	switch p := payload.(type) {
	case *types.MarketPair:
		return p, nil
	case types.MarketPair:
		return &p, nil
	default:
		return nil, fmt.Errorf("unexpected payload: %T", payload)
	}
}
