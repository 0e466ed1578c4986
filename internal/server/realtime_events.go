package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"blogify/internal/models"
	"blogify/internal/observability"
)

// Event type constants prevent typos in event names.
const (
	EventNewComment    = "new_comment"
	EventDeleteComment = "delete_comment"
	EventUpdateComment = "update_comment"
	EventUpdateLikes   = "update_likes"
)

// postEvent is the envelope delivered to websocket clients viewing a post.
type postEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type newCommentPayload struct {
	PostID  string          `json:"post_id"`
	Comment *models.Comment `json:"comment"`
}

type deleteCommentPayload struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id"`
}

type updateCommentPayload struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id"`
	Content   string `json:"content"`
}

type updateLikesPayload struct {
	PostID     string `json:"post_id"`
	CommentID  string `json:"comment_id"`
	LikesCount int64  `json:"likes_count"`
}

// publishPostEvent delivers an event to every viewer of postID. With Redis the event goes
// through pub/sub so every instance's hub receives it; otherwise it is broadcast locally.
func (s *Server) publishPostEvent(ctx context.Context, postID, eventType string, payload any) {
	ctx, end := observability.StartEventSpan(ctx, postID, eventType)
	eventJSON, err := json.Marshal(postEvent{Type: eventType, Payload: payload})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal post event", "type", eventType, "error", err)
		end(err)
		return
	}

	if s.notifier.Enabled() {
		err := s.notifier.PublishPostEvent(context.WithoutCancel(ctx), postID, eventJSON)
		if err == nil {
			observability.RealtimeEventsTotal.WithLabelValues(eventType, "redis").Inc()
			end(nil)
			return
		}
		slog.WarnContext(ctx, "failed to publish post event, delivering locally",
			"type", eventType, "post_id", postID, "error", err)
	}

	if s.postHub != nil {
		s.postHub.BroadcastToPost(postID, eventJSON)
		observability.RealtimeEventsTotal.WithLabelValues(eventType, "local").Inc()
	}
	end(nil)
}
