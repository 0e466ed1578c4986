package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"blogify/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const maxConnsPerUser = 8

// ErrConnLimit is returned by Register when a user already holds maxConnsPerUser sockets.
var ErrConnLimit = errors.New("user connection limit reached")

var errShutdownNoticeDropped = errors.New("shutdown notice dropped")

// Room control messages sent by clients.
const (
	MsgJoinPost  = "join_post"
	MsgLeavePost = "leave_post"
)

// ClientMessage is a control frame received from a client.
type ClientMessage struct {
	Type   string `json:"type"`
	PostID string `json:"post_id"`
}

// PostHub tracks which connections are viewing which post and delivers that post's events to them.
type PostHub struct {
	mu sync.RWMutex

	// postID -> joined clients
	rooms map[string]map[*Client]struct{}

	// client -> postIDs it joined
	joined map[*Client]map[string]struct{}

	// userID -> live clients
	userConns map[string]map[*Client]struct{}

	log *observability.WSLogger
}

func NewPostHub() *PostHub {
	return &PostHub{
		rooms:     make(map[string]map[*Client]struct{}),
		joined:    make(map[*Client]map[string]struct{}),
		userConns: make(map[string]map[*Client]struct{}),
		log:       observability.NewWSLogger("post hub"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *PostHub) Name() string { return "post hub" }

// Register creates a client for conn. Anonymous viewers use an empty userID.
func (h *PostHub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userID != "" && len(h.userConns[userID]) >= maxConnsPerUser {
		return nil, ErrConnLimit
	}

	client := newClient(h, conn, userID, h.handleIncoming)
	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[*Client]struct{})
	}
	h.userConns[userID][client] = struct{}{}
	h.joined[client] = make(map[string]struct{})

	observability.WebSocketConnectionsTotal.Inc()
	h.log.LogConnect(userID)
	return client, nil
}

// UnregisterClient drops the client from every room it joined and closes its send buffer.
func (h *PostHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	posts, ok := h.joined[client]
	if !ok {
		return
	}
	for postID := range posts {
		h.leaveLocked(client, postID)
	}
	delete(h.joined, client)

	if conns, ok := h.userConns[client.UserID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.userConns, client.UserID)
		}
	}
	client.closeSend()

	observability.WebSocketConnectionsTotal.Dec()
	h.log.LogDisconnect(client.UserID, "closed")
}

// JoinPost subscribes client to postID's events. Joining twice is a no-op.
func (h *PostHub) JoinPost(client *Client, postID string) {
	if postID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	posts, ok := h.joined[client]
	if !ok {
		return
	}
	if _, already := posts[postID]; already {
		return
	}
	posts[postID] = struct{}{}

	room := h.rooms[postID]
	if room == nil {
		room = make(map[*Client]struct{})
		h.rooms[postID] = room
		observability.PostRoomsActive.Inc()
	}
	room[client] = struct{}{}
	h.log.LogRoom("join", client.UserID, postID)
}

// LeavePost unsubscribes client from postID. Leaving a room not joined is a no-op.
func (h *PostHub) LeavePost(client *Client, postID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, postID)
}

func (h *PostHub) leaveLocked(client *Client, postID string) {
	if posts, ok := h.joined[client]; ok {
		delete(posts, postID)
	}
	room, ok := h.rooms[postID]
	if !ok {
		return
	}
	if _, member := room[client]; !member {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, postID)
		observability.PostRoomsActive.Dec()
	}
	h.log.LogRoom("leave", client.UserID, postID)
}

// BroadcastToPost delivers an encoded envelope to every client in the post's room.
func (h *PostHub) BroadcastToPost(postID string, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[postID]
	for client := range room {
		client.Deliver(message)
	}
	return len(room)
}

// RoomSize returns the number of clients joined to postID.
func (h *PostHub) RoomSize(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[postID])
}

func (h *PostHub) handleIncoming(client *Client, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.log.LogError(client.UserID, err, "decode")
		return
	}
	switch msg.Type {
	case MsgJoinPost:
		h.JoinPost(client, msg.PostID)
	case MsgLeavePost:
		h.LeavePost(client, msg.PostID)
	}
}

// StartWiring feeds events published on any instance into the local rooms.
func (h *PostHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPostSubscriber(ctx, func(postID, payload string) {
		h.BroadcastToPost(postID, []byte(payload))
	})
}

// shutdownNotice is the last frame every viewer receives before the server closes it.
var shutdownNotice = []byte(`{"type":"server_shutdown","payload":{"message":"Server is shutting down"}}`)

// Shutdown queues a shutdown notice for every viewer and closes its send buffer.
// Each viewer's write loop sends the notice and a close frame, then closes the connection.
func (h *PostHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.joined {
		observability.WebSocketConnectionsTotal.Dec()
		if !client.Deliver(shutdownNotice) {
			h.log.LogError(client.UserID, errShutdownNoticeDropped, "shutdown_notice")
		}
		client.closeSend()
	}

	for range h.rooms {
		observability.PostRoomsActive.Dec()
	}
	h.rooms = make(map[string]map[*Client]struct{})
	h.joined = make(map[*Client]map[string]struct{})
	h.userConns = make(map[string]map[*Client]struct{})
	return nil
}
