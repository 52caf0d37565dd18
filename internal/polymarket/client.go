package polymarket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/internal/coordination"
	"github.com/RohitDayanand/polykalshi-client/internal/ingest"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
	pkgws "github.com/RohitDayanand/polykalshi-client/pkg/websocket"
)

const (
	componentID         = "polymarket-client"
	defaultPingInterval = 10 * time.Second
	writeTimeout        = 5 * time.Second
)

// ClientConfig holds Polymarket client configuration.
type ClientConfig struct {
	URL          string
	Queue        *ingest.Queue
	Store        *Store
	Bus          *bus.EventBus
	Logger       *zap.Logger
	PingInterval time.Duration
	Reconnect    pkgws.ReconnectConfig
}

// stagedChange is a coordinated subscription change held between prepare
// and commit.
type stagedChange struct {
	add    []string
	remove []string
}

// Client owns the anonymous Polymarket WebSocket. The market channel needs
// no authentication; each tracked asset gets its own subscription frame.
// Raw frames are forwarded verbatim to the ingest queue.
type Client struct {
	cfg       ClientConfig
	logger    *zap.Logger
	reconnect *pkgws.ReconnectManager

	connMu sync.Mutex
	conn   *websocket.Conn

	stateMu sync.RWMutex
	state   string

	subMu   sync.Mutex
	desired map[string]bool
	staged  map[string]*stagedChange

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient creates a Polymarket client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}

	return &Client{
		cfg:       cfg,
		logger:    cfg.Logger.With(zap.String("client", componentID)),
		reconnect: pkgws.NewReconnectManager(cfg.Reconnect, cfg.Logger),
		state:     "disconnected",
		desired:   make(map[string]bool),
		staged:    make(map[string]*stagedChange),
	}
}

// State returns the current connection state.
func (c *Client) State() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Client) setState(s string) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()

	var gauge float64
	switch s {
	case "connecting":
		gauge = 1
	case "subscribing":
		gauge = 2
	case "streaming":
		gauge = 3
	}
	ConnectionState.Set(gauge)
}

// Start connects and launches the read and ping loops.
func (c *Client) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.connect(c.ctx); err != nil {
		if err := c.reconnect.Reconnect(c.ctx, c.connect); err != nil {
			return err
		}
	}

	c.wg.Add(1)
	go c.run()

	return nil
}

// Close tears the connection down and waits for the loops to exit.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	c.setState("disconnected")
	c.logger.Info("client-closed")
}

// connect performs one dial and resubscribes every tracked asset.
func (c *Client) connect(ctx context.Context) error {
	c.setState("connecting")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		c.setState("disconnected")
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(3 * c.cfg.PingInterval))
	})
	conn.SetReadDeadline(time.Now().Add(3 * c.cfg.PingInterval))

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.connMu.Unlock()

	c.subMu.Lock()
	assets := make([]string, 0, len(c.desired))
	for asset := range c.desired {
		assets = append(assets, asset)
	}
	c.subMu.Unlock()

	c.setState("subscribing")

	for _, asset := range assets {
		if err := c.sendSubscribe(asset); err != nil {
			conn.Close()
			c.setState("disconnected")
			return err
		}
	}

	c.wg.Add(1)
	go c.pingLoop(conn)

	c.setState("streaming")

	c.cfg.Bus.Publish(ctx, types.EventConnectionStatus, &types.ConnectionStatus{
		ClientID:  componentID,
		Connected: true,
	})

	c.logger.Info("connected", zap.Int("assets", len(assets)))

	return nil
}

func (c *Client) run() {
	defer c.wg.Done()

	for {
		err := c.readLoop()
		if c.ctx.Err() != nil {
			return
		}

		c.setState("disconnected")
		c.cfg.Bus.Publish(c.ctx, types.EventConnectionStatus, &types.ConnectionStatus{
			ClientID:  componentID,
			Connected: false,
		})

		c.logger.Warn("connection-lost", zap.Error(err))

		if err := c.reconnect.Reconnect(c.ctx, c.connect); err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.cfg.Bus.Publish(c.ctx, types.EventClientError, &types.ClientError{
				ClientID: componentID,
				Error:    err.Error(),
			})
			c.logger.Error("giving-up-reconnecting", zap.Error(err))
			return
		}
	}
}

func (c *Client) readLoop() error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()

	if conn == nil {
		return errors.New("no connection")
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		FramesReceivedTotal.Inc()
		c.cfg.Queue.Put(data)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != conn {
				c.connMu.Unlock()
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.connMu.Unlock()

			if err != nil {
				c.logger.Debug("ping-failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) sendSubscribe(assetID string) error {
	data, err := json.Marshal(subscribeFrame{
		Auth:    "",
		Channel: "book",
		Market:  assetID,
	})
	if err != nil {
		return fmt.Errorf("marshal subscribe frame: %w", err)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return errors.New("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("subscribe %s: %w", assetID, err)
	}

	SubscriptionsSentTotal.Inc()

	return nil
}

// AddAssets starts streaming the given asset ids.
func (c *Client) AddAssets(assetIDs ...string) error {
	if len(assetIDs) == 0 {
		return nil
	}

	c.subMu.Lock()
	for _, id := range assetIDs {
		c.desired[id] = true
	}
	c.subMu.Unlock()

	for _, id := range assetIDs {
		c.cfg.Store.Ensure(id)
	}

	if c.State() != "streaming" {
		// Picked up by the resubscribe on the next connect.
		return nil
	}

	for _, id := range assetIDs {
		if err := c.sendSubscribe(id); err != nil {
			return err
		}
	}

	return nil
}

// RemoveAssets stops tracking the given asset ids. The venue offers no
// per-asset unsubscribe on the market channel; frames for dropped assets
// are discarded at the decoder once the store entry is gone, and the next
// reconnect excludes them.
func (c *Client) RemoveAssets(assetIDs ...string) {
	c.subMu.Lock()
	for _, id := range assetIDs {
		delete(c.desired, id)
	}
	c.subMu.Unlock()

	for _, id := range assetIDs {
		c.cfg.Store.Remove(id)
	}
}

// ComponentID implements coordination.Participant.
func (c *Client) ComponentID() string { return componentID }

// Prepare validates the requested change and stages it until commit.
func (c *Client) Prepare(ctx context.Context, op coordination.Operation) error {
	change := &stagedChange{}

	switch op.Type {
	case "add_pair":
		pair, err := pairPayload(op.Payload)
		if err != nil {
			return err
		}
		change.add = []string{pair.PolyYesAsset, pair.PolyNoAsset}

	case "remove_pair":
		pair, err := pairPayload(op.Payload)
		if err != nil {
			return err
		}
		change.remove = []string{pair.PolyYesAsset, pair.PolyNoAsset}

	case "subscribe_market":
		req, ok := op.Payload.(*types.SubscribeMarketRequest)
		if !ok {
			return fmt.Errorf("unexpected payload: %T", op.Payload)
		}
		if req.Platform == types.PlatformPolymarket {
			if req.MarketID == "" {
				return &types.ValidationError{Field: "market_identifier", Message: "must not be empty"}
			}
			change.add = []string{req.MarketID}
		}

	default:
		return fmt.Errorf("unsupported operation type %q", op.Type)
	}

	c.subMu.Lock()
	c.staged[op.ID] = change
	c.subMu.Unlock()

	return nil
}

// Commit applies the staged change.
func (c *Client) Commit(ctx context.Context, op coordination.Operation) error {
	c.subMu.Lock()
	change, ok := c.staged[op.ID]
	delete(c.staged, op.ID)
	c.subMu.Unlock()

	if !ok {
		return fmt.Errorf("commit for unknown operation %s", op.ID)
	}

	if err := c.AddAssets(change.add...); err != nil {
		return err
	}
	c.RemoveAssets(change.remove...)

	return nil
}

// Rollback discards the staged change.
func (c *Client) Rollback(ctx context.Context, op coordination.Operation) {
	c.subMu.Lock()
	delete(c.staged, op.ID)
	c.subMu.Unlock()
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
