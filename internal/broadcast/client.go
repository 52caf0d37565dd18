package broadcast

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// DefaultSendTimeout bounds every outbound client write.
const DefaultSendTimeout = 5 * time.Second

// conn is the subset of the WebSocket connection the broadcaster uses;
// tests substitute it.
type conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Client is one connected egress WebSocket. Writes are serialized and
// bounded by the send timeout; an expired deadline marks the client dead.
type Client struct {
	ID          string
	conn        conn
	sendTimeout time.Duration

	writeMu sync.Mutex

	closeOnce sync.Once
}

// NewClient wraps a connection.
func NewClient(id string, c conn, sendTimeout time.Duration) *Client {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}

	return &Client{
		ID:          id,
		conn:        c,
		sendTimeout: sendTimeout,
	}
}

// Send writes one text frame within the send timeout. A failure is a
// ClientSendError; the caller disconnects the client.
func (c *Client) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.sendTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return &types.ClientSendError{ClientID: c.ID, Cause: err}
	}

	return nil
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}
