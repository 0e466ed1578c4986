package server

import (
	"blogify/internal/featureflags"
	"blogify/internal/models"
	"blogify/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler serves /api/ws. Clients send join_post and leave_post frames and
// receive the comment events of every post they joined.
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)

		client, err := s.postHub.Register(userID, conn)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"message":"`+err.Error()+`"}}`))
			_ = conn.Close()
			return
		}

		client.Serve()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}

var _ wireableHub = (*notifications.PostHub)(nil)

// requireWSAuth rejects anonymous viewers while ws_require_auth is on.
func (s *Server) requireWSAuth(c *fiber.Ctx) error {
	if currentUserID(c) == "" && s.featureFlags.Enabled(featureflags.WSRequireAuth, "") {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Sign in to receive live updates"))
	}
	return c.Next()
}
