// Package realtime is the websocket transport for per-post comment events.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Frame types the client sends.
const (
	MsgJoinPost  = "join_post"
	MsgLeavePost = "leave_post"
)

const writeWait = 10 * time.Second

// ErrClosed is returned when writing to a closed connection.
var ErrClosed = errors.New("realtime: connection closed")

// Envelope is the server-to-client frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type clientMessage struct {
	Type   string `json:"type"`
	PostID string `json:"post_id"`
}

// Handler receives the payload of an event of the subscribed kind.
// It runs on the connection's read goroutine.
type Handler func(payload json.RawMessage)

// Subscription is a registered handler. Release is safe to call more than once.
type Subscription interface {
	Release()
}

type subscription struct {
	once    sync.Once
	release func()
}

func (s *subscription) Release() {
	s.once.Do(s.release)
}

// Conn is a client websocket connection that dispatches envelopes to subscribers by type.
type Conn struct {
	ws  *websocket.Conn
	log *slog.Logger

	writeMu sync.Mutex

	subsMu sync.RWMutex
	subs   map[string]map[uint64]Handler
	nextID uint64

	done      chan struct{}
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

type dialOptions struct {
	header http.Header
	dialer *websocket.Dialer
	log    *slog.Logger
}

// Option configures Dial.
type Option func(*dialOptions)

// WithToken authenticates the handshake with a bearer token.
func WithToken(token string) Option {
	return func(o *dialOptions) {
		if token != "" {
			o.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithDialer replaces the gorilla dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *dialOptions) { o.dialer = d }
}

// WithLogger sets the connection's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *dialOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// Dial connects to url and starts the read loop.
func Dial(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	o := dialOptions{
		header: http.Header{},
		dialer: websocket.DefaultDialer,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	ws, resp, err := o.dialer.DialContext(ctx, url, o.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Conn{
		ws:   ws,
		log:  o.log,
		subs: make(map[string]map[uint64]Handler),
		done: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Join asks the server for events of postID.
func (c *Conn) Join(postID string) error {
	return c.send(clientMessage{Type: MsgJoinPost, PostID: postID})
}

// Leave stops events of postID.
func (c *Conn) Leave(postID string) error {
	return c.send(clientMessage{Type: MsgLeavePost, PostID: postID})
}

// Subscribe registers h for envelopes of the given type.
func (c *Conn) Subscribe(kind string, h Handler) Subscription {
	c.subsMu.Lock()
	c.nextID++
	id := c.nextID
	if c.subs[kind] == nil {
		c.subs[kind] = make(map[uint64]Handler)
	}
	c.subs[kind][id] = h
	c.subsMu.Unlock()

	return &subscription{release: func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.subs[kind], id)
		if len(c.subs[kind]) == 0 {
			delete(c.subs, kind)
		}
	}}
}

// Done is closed when the read loop exits.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err reports why the read loop stopped, or nil after a local Close.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close sends a close frame and tears down the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	<-c.done
	return err
}

func (c *Conn) send(msg clientMessage) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, net.ErrClosed) {
				c.errMu.Lock()
				c.err = err
				c.errMu.Unlock()
				c.log.Warn("websocket read failed", "error", err)
			}
			return
		}
		c.dispatch(raw)
	}
}

func (c *Conn) dispatch(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Debug("dropping malformed frame", "error", err)
		return
	}

	c.subsMu.RLock()
	handlers := make([]Handler, 0, len(c.subs[env.Type]))
	for _, h := range c.subs[env.Type] {
		handlers = append(handlers, h)
	}
	c.subsMu.RUnlock()

	if len(handlers) == 0 {
		c.log.Debug("no subscriber for event", "type", env.Type)
		return
	}
	for _, h := range handlers {
		h(env.Payload)
	}
}
