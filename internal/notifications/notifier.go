// Package notifications fans post events out to websocket clients, across instances via Redis.
package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/redis/go-redis/v9"
)

const postChannelPrefix = "post:"

// Notifier publishes post events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events travel through Redis.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishPostEvent sends an encoded event envelope to the post's channel.
func (n *Notifier) PublishPostEvent(ctx context.Context, postID string, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, PostChannel(postID), payload).Err()
}

// StartPostSubscriber subscribes to `post:*` and calls onMessage for each incoming message
// until ctx is cancelled.
func (n *Notifier) StartPostSubscriber(
	ctx context.Context, onMessage func(postID string, payload string),
) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, postChannelPrefix+"*")
	// Wait for the subscription to be confirmed so publishes right after wiring are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				postID, found := strings.CutPrefix(msg.Channel, postChannelPrefix)
				if !found || postID == "" {
					slog.Warn("post subscriber: unexpected channel", "channel", msg.Channel)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("panic in post subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(postID, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// PostChannel derives the Redis channel name for a post.
func PostChannel(postID string) string {
	return postChannelPrefix + postID
}
