package notifications

import (
	"log/slog"
	"sync"
	"time"

	"blogify/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxFrameSize   = 1024 // join/leave frames only
	sendBufferSize = 256
)

// resyncNotice tells a viewer that events were dropped and its thread should be reloaded.
var resyncNotice = []byte(`{"type":"resync","payload":{"reason":"buffer_full"}}`)

// roomHub is the hub a viewer belongs to.
type roomHub interface {
	Name() string
	UnregisterClient(c *Client)
}

// Client is one websocket viewer. The hub closes Send when the viewer is unregistered.
type Client struct {
	UserID string
	Send   chan []byte

	hub     roomHub
	conn    *websocket.Conn // nil for viewers created in tests
	onFrame func(*Client, []byte)

	mu     sync.Mutex
	closed bool
	resync bool
}

func newClient(hub roomHub, conn *websocket.Conn, userID string, onFrame func(*Client, []byte)) *Client {
	return &Client{
		UserID:  userID,
		Send:    make(chan []byte, sendBufferSize),
		hub:     hub,
		conn:    conn,
		onFrame: onFrame,
	}
}

// Serve pumps the connection until the peer goes away, then unregisters the viewer.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("viewer read failed", "hub", c.hub.Name(), "user_id", c.UserID, "error", err)
			}
			return
		}
		if c.onFrame != nil {
			c.onFrame(c, frame)
		}
	}
}

func (c *Client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Deliver queues msg without blocking and reports whether it was queued.
// A full buffer drops msg; the viewer then gets a resync notice ahead of its next event.
func (c *Client) Deliver(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}

	if c.resync {
		select {
		case c.Send <- resyncNotice:
			c.resync = false
		default:
		}
	}

	select {
	case c.Send <- msg:
		return true
	default:
		c.resync = true
		observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "full").Inc()
		slog.Warn("viewer buffer full, dropped event", "hub", c.hub.Name(), "user_id", c.UserID)
		return false
	}
}

// closeSend closes the send buffer once. Callers hold the hub lock.
func (c *Client) closeSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.Send)
	return true
}
