package kalshi

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
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

// State is the client connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateSubscribing  State = "subscribing"
	StateStreaming    State = "streaming"
)

const (
	defaultPingInterval = 10 * time.Second
	writeTimeout        = 5 * time.Second
	componentID         = "kalshi-client"
)

// ClientConfig holds Kalshi client configuration.
type ClientConfig struct {
	URL          string
	AccessKeyID  string
	PrivateKey   *rsa.PrivateKey
	Queue        *ingest.Queue
	Store        *Store
	Bus          *bus.EventBus
	Logger       *zap.Logger
	PingInterval time.Duration
	Reconnect    pkgws.ReconnectConfig
}

// stagedChange is a coordinated subscription change validated in prepare and
// held until commit or rollback.
type stagedChange struct {
	add    []string
	remove []string
}

// Client owns the authenticated Kalshi WebSocket. Raw frames are forwarded
// verbatim to the ingest queue; all parsing happens in the decoder. The
// client itself learns subscription ids by listening for the decoder's
// subscription-confirmed events on the bus.
type Client struct {
	cfg       ClientConfig
	logger    *zap.Logger
	reconnect *pkgws.ReconnectManager

	connMu sync.Mutex
	conn   *websocket.Conn

	stateMu sync.RWMutex
	state   State

	subMu   sync.Mutex
	desired map[string]bool
	sids    map[string]int
	staged  map[string]*stagedChange

	cmdSeq atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient creates a Kalshi client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}

	c := &Client{
		cfg:       cfg,
		logger:    cfg.Logger.With(zap.String("client", componentID)),
		reconnect: pkgws.NewReconnectManager(cfg.Reconnect, cfg.Logger),
		state:     StateDisconnected,
		desired:   make(map[string]bool),
		sids:      make(map[string]int),
		staged:    make(map[string]*stagedChange),
	}

	cfg.Bus.Subscribe(EventSubscriptionOK, c.onSubscriptionOK)

	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()

	ConnectionState.Set(stateGauge(s))
}

func stateGauge(s State) float64 {
	switch s {
	case StateConnecting:
		return 1
	case StateSubscribing:
		return 2
	case StateStreaming:
		return 3
	default:
		return 0
	}
}

// Start connects and launches the read and ping loops. The initial connect
// failure is handed to the reconnect budget like any mid-session drop;
// authentication failures are fatal and never retried.
func (c *Client) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.connect(c.ctx); err != nil {
		if isAuthErr(err) {
			return err
		}
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
	c.setState(StateDisconnected)
	c.logger.Info("client-closed")
}

func isAuthErr(err error) bool {
	var authErr *types.AuthError
	return errors.As(err, &authErr)
}

// connect performs one authenticated dial, resubscribes the desired markets,
// and starts the ping loop for the new connection.
func (c *Client) connect(ctx context.Context) error {
	c.setState(StateConnecting)

	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("parse ws url: %w", err)
	}

	headers, err := AuthHeaders(c.cfg.AccessKeyID, c.cfg.PrivateKey, http.MethodGet, u.Path)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, headers)
	if err != nil {
		c.setState(StateDisconnected)
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

	// SIDs belong to the previous connection.
	c.subMu.Lock()
	c.sids = make(map[string]int)
	tickers := c.desiredTickersLocked()
	c.subMu.Unlock()

	c.setState(StateSubscribing)

	if len(tickers) > 0 {
		if err := c.sendSubscribe(tickers); err != nil {
			conn.Close()
			c.setState(StateDisconnected)
			return err
		}
	}

	c.wg.Add(1)
	go c.pingLoop(conn)

	c.setState(StateStreaming)

	c.cfg.Bus.Publish(ctx, types.EventConnectionStatus, &types.ConnectionStatus{
		ClientID:  componentID,
		Connected: true,
	})

	c.logger.Info("connected", zap.Int("tickers", len(tickers)))

	return nil
}

func (c *Client) desiredTickersLocked() []string {
	tickers := make([]string, 0, len(c.desired))
	for t := range c.desired {
		tickers = append(tickers, t)
	}
	return tickers
}

// run owns the read loop and the reconnect cycle.
func (c *Client) run() {
	defer c.wg.Done()

	for {
		err := c.readLoop()
		if c.ctx.Err() != nil {
			return
		}

		c.setState(StateDisconnected)
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

// readLoop forwards raw frames to the ingest queue until the connection
// drops.
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

// pingLoop keeps the connection alive; it exits when the connection it was
// started for is replaced or closed.
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

// onSubscriptionOK records venue-assigned subscription ids decoded from ok
// frames, keyed by channel, for later update_subscription commands.
func (c *Client) onSubscriptionOK(ctx context.Context, event string, payload any) error {
	ok, valid := payload.(*SubscriptionOK)
	if !valid {
		return fmt.Errorf("unexpected payload on %s: %T", event, payload)
	}

	c.subMu.Lock()
	c.sids[ok.Channel] = ok.SID
	c.subMu.Unlock()

	return nil
}

func (c *Client) sendCommand(cmd string, params any) error {
	msg := command{
		ID:     c.cmdSeq.Add(1),
		Cmd:    cmd,
		Params: params,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s command: %w", cmd, err)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return errors.New("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s command: %w", cmd, err)
	}

	CommandsSentTotal.WithLabelValues(cmd).Inc()

	return nil
}

func (c *Client) sendSubscribe(tickers []string) error {
	return c.sendCommand("subscribe", subscribeParams{
		Channels:      []string{channelOrderbookDelta, channelTickerV2},
		MarketTickers: tickers,
	})
}

// AddTickers starts streaming the given markets. When subscription ids from
// the current connection are known the existing subscriptions are extended;
// otherwise a fresh subscribe is issued.
func (c *Client) AddTickers(tickers ...string) error {
	if len(tickers) == 0 {
		return nil
	}

	c.subMu.Lock()
	for _, t := range tickers {
		c.desired[t] = true
	}
	sids := c.currentSIDsLocked()
	c.subMu.Unlock()

	if c.State() != StateStreaming {
		// Picked up by the resubscribe on the next connect.
		return nil
	}

	if len(sids) > 0 {
		return c.sendCommand("update_subscription", updateSubscriptionParams{
			SIDs:          sids,
			MarketTickers: tickers,
			Action:        "add_markets",
		})
	}

	return c.sendSubscribe(tickers)
}

// RemoveTickers stops streaming the given markets and drops their local
// state.
func (c *Client) RemoveTickers(tickers ...string) error {
	if len(tickers) == 0 {
		return nil
	}

	c.subMu.Lock()
	for _, t := range tickers {
		delete(c.desired, t)
	}
	sids := c.currentSIDsLocked()
	c.subMu.Unlock()

	for _, t := range tickers {
		c.cfg.Store.Remove(t)
	}

	if c.State() != StateStreaming || len(sids) == 0 {
		return nil
	}

	return c.sendCommand("update_subscription", updateSubscriptionParams{
		SIDs:          sids,
		MarketTickers: tickers,
		Action:        "delete_markets",
	})
}

func (c *Client) currentSIDsLocked() []int {
	sids := make([]int, 0, len(c.sids))
	for _, sid := range c.sids {
		sids = append(sids, sid)
	}
	return sids
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
		change.add = []string{pair.KalshiTicker}

	case "remove_pair":
		pair, err := pairPayload(op.Payload)
		if err != nil {
			return err
		}
		change.remove = []string{pair.KalshiTicker}

	case "subscribe_market":
		req, ok := op.Payload.(*types.SubscribeMarketRequest)
		if !ok {
			return fmt.Errorf("unexpected payload: %T", op.Payload)
		}
		if req.Platform == types.PlatformKalshi {
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

	if err := c.AddTickers(change.add...); err != nil {
		return err
	}
	return c.RemoveTickers(change.remove...)
}

// Rollback discards the staged change.
func (c *Client) Rollback(ctx context.Context, op coordination.Operation) {
	c.subMu.Lock()
	delete(c.staged, op.ID)
	c.subMu.Unlock()
}

// pairPayload extracts a market pair from a coordinated operation payload.
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
