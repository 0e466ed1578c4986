// Package app wires the terminal client: REST client, session, push transport and the
// live sync components.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"blogify/internal/api"
	"blogify/internal/config"
	"blogify/internal/livesync"
	"blogify/internal/realtime"
	"blogify/internal/session"
)

// Deps overrides the collaborators New would otherwise build from config.
type Deps struct {
	HTTPClient *http.Client
	Transport  livesync.Transport
	Logger     *slog.Logger
}

// Client is one configured client instance.
type Client struct {
	cfg *config.ClientConfig
	log *slog.Logger

	API     *api.Client
	Session *session.Store
	Auth    *session.Auth
	Posts   *livesync.PostCoordinator

	// Set by Connect.
	Topics     *livesync.TopicManager
	Threads    *livesync.ThreadStore
	Reconciler *livesync.Reconciler

	transport livesync.Transport
	conn      *realtime.Conn
}

// New builds a client and loads the stored session.
func New(cfg *config.ClientConfig, deps Deps) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	store := session.NewStore(cfg.SessionPath)
	if _, err := store.Load(); err != nil {
		return nil, err
	}

	opts := []api.Option{
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithTokenSource(store.Token),
		api.WithLogger(log),
	}
	if deps.HTTPClient != nil {
		opts = append(opts, api.WithHTTPClient(deps.HTTPClient))
	}
	client := api.NewClient(cfg.APIURL, opts...)

	return &Client{
		cfg:       cfg,
		log:       log,
		API:       client,
		Session:   store,
		Auth:      session.NewAuth(client, store, log),
		Posts:     livesync.NewPostCoordinator(client, store, log),
		transport: deps.Transport,
	}, nil
}

// Connect opens the push transport and starts the live comment components.
func (c *Client) Connect(ctx context.Context) error {
	if c.Threads != nil {
		return nil
	}
	if c.transport == nil {
		conn, err := realtime.Dial(ctx, c.cfg.WSURL,
			realtime.WithToken(c.Session.Token()),
			realtime.WithLogger(c.log),
		)
		if err != nil {
			return fmt.Errorf("connect realtime: %w", err)
		}
		c.conn = conn
		c.transport = conn
	}

	c.Topics = livesync.NewTopicManager(c.transport, c.log)
	c.Threads = livesync.NewThreadStore(c.API, c.Topics, c.log)
	c.Reconciler = livesync.NewReconciler(c.transport, c.Topics, c.Threads, c.log)
	return nil
}

// Disconnected is closed when the push connection drops. It is nil before Connect
// or when the transport was injected.
func (c *Client) Disconnected() <-chan struct{} {
	if c.conn == nil {
		return nil
	}
	return c.conn.Done()
}

// Close leaves the current topic and closes the push connection.
func (c *Client) Close() error {
	if c.Reconciler != nil {
		c.Reconciler.Close()
		c.Threads.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
