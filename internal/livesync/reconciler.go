package livesync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"blogify/internal/api"
	"blogify/internal/realtime"
)

// Event kinds pushed on a post topic.
const (
	EventCommentCreated      = "new_comment"
	EventCommentDeleted      = "delete_comment"
	EventCommentUpdated      = "update_comment"
	EventCommentLikesChanged = "update_likes"

	// EventResync is sent by the server after it dropped events for this viewer.
	EventResync = "resync"
)

type commentCreated struct {
	PostID  string      `json:"post_id"`
	Comment api.Comment `json:"comment"`
}

type commentDeleted struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id"`
}

type commentUpdated struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id"`
	Content   string `json:"content"`
}

type commentLikesChanged struct {
	PostID     string `json:"post_id"`
	CommentID  string `json:"comment_id"`
	LikesCount int    `json:"likes_count"`
}

// ReconcilerStats counts what happened to pushed events.
type ReconcilerStats struct {
	Applied    int64
	OutOfScope int64
	Malformed  int64
	Resyncs    int64
}

// Reconciler applies pushed comment events for the current topic to the ThreadStore.
type Reconciler struct {
	transport Transport
	topics    *TopicManager
	thread    *ThreadStore
	log       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	reload sync.WaitGroup

	mu         sync.Mutex
	subs       []realtime.Subscription
	unhook     func()
	closed     bool
	applied    atomic.Int64
	outOfScope atomic.Int64
	malformed  atomic.Int64
	resyncs    atomic.Int64
}

// NewReconciler subscribes to the comment events and rebinds on every topic change.
// A resync event reloads the current thread in the background.
func NewReconciler(transport Transport, topics *TopicManager, thread *ThreadStore, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	r := &Reconciler{transport: transport, topics: topics, thread: thread, log: log}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.bind()
	r.unhook = topics.OnChange(func(_, _ string) { r.bind() })
	return r
}

// Stats returns the event counters.
func (r *Reconciler) Stats() ReconcilerStats {
	return ReconcilerStats{
		Applied:    r.applied.Load(),
		OutOfScope: r.outOfScope.Load(),
		Malformed:  r.malformed.Load(),
		Resyncs:    r.resyncs.Load(),
	}
}

// Close releases every subscription, stops following topic changes and waits for
// any reload in flight.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	subs := r.subs
	r.subs = nil
	unhook := r.unhook
	r.mu.Unlock()

	if unhook != nil {
		unhook()
	}
	for _, sub := range subs {
		sub.Release()
	}
	r.cancel()
	r.reload.Wait()
}

// bind registers fresh subscriptions, then releases the previous ones.
func (r *Reconciler) bind() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	prev := r.subs
	r.subs = []realtime.Subscription{
		r.transport.Subscribe(EventCommentCreated, r.onCreated),
		r.transport.Subscribe(EventCommentDeleted, r.onDeleted),
		r.transport.Subscribe(EventCommentUpdated, r.onUpdated),
		r.transport.Subscribe(EventCommentLikesChanged, r.onLikesChanged),
		r.transport.Subscribe(EventResync, r.onResync),
	}
	// New handlers are in place before the old ones go, so no frame finds none.
	for _, sub := range prev {
		sub.Release()
	}
}

func (r *Reconciler) onCreated(payload json.RawMessage) {
	var ev commentCreated
	if !r.decode(EventCommentCreated, payload, &ev) || !r.inScope(EventCommentCreated, ev.PostID) {
		return
	}
	if ev.Comment.PostID == "" {
		ev.Comment.PostID = ev.PostID
	}
	r.thread.InsertLocal(ev.Comment)
	r.applied.Add(1)
}

func (r *Reconciler) onDeleted(payload json.RawMessage) {
	var ev commentDeleted
	if !r.decode(EventCommentDeleted, payload, &ev) || !r.inScope(EventCommentDeleted, ev.PostID) {
		return
	}
	r.thread.RemoveLocal(ev.CommentID)
	r.applied.Add(1)
}

func (r *Reconciler) onUpdated(payload json.RawMessage) {
	var ev commentUpdated
	if !r.decode(EventCommentUpdated, payload, &ev) || !r.inScope(EventCommentUpdated, ev.PostID) {
		return
	}
	r.thread.UpdateLocal(ev.CommentID, ev.Content)
	r.applied.Add(1)
}

func (r *Reconciler) onLikesChanged(payload json.RawMessage) {
	var ev commentLikesChanged
	if !r.decode(EventCommentLikesChanged, payload, &ev) || !r.inScope(EventCommentLikesChanged, ev.PostID) {
		return
	}
	r.thread.SetLikeCount(ev.CommentID, ev.LikesCount)
	r.applied.Add(1)
}

// onResync reloads the current thread off the read goroutine.
func (r *Reconciler) onResync(json.RawMessage) {
	topic := r.topics.CurrentTopic()
	if topic == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.resyncs.Add(1)
	r.log.Info("resyncing thread", "post_id", topic)
	r.reload.Go(func() {
		err := r.thread.Reload(r.ctx, topic)
		switch {
		case errors.Is(err, ErrStaleResponse):
			r.log.Debug("resync superseded", "post_id", topic)
		case err != nil:
			r.log.Warn("resync failed", "post_id", topic, "error", err)
		}
	})
}

func (r *Reconciler) decode(kind string, payload json.RawMessage, v any) bool {
	if err := json.Unmarshal(payload, v); err != nil {
		r.malformed.Add(1)
		r.log.Warn("malformed event", "type", kind, "error", err)
		return false
	}
	return true
}

// inScope drops events without a post ID or for a post other than the current topic.
func (r *Reconciler) inScope(kind, postID string) bool {
	current := r.topics.CurrentTopic()
	if postID == "" || postID != current {
		r.outOfScope.Add(1)
		r.log.Debug("event out of scope", "type", kind, "post_id", postID, "topic", current)
		return false
	}
	return true
}
