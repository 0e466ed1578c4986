package livesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"blogify/internal/api"
)

// Thread is a snapshot of the open comment thread, newest first.
type Thread struct {
	PostID   string
	Comments []api.Comment
	Loading  bool
}

// ThreadStore owns the comment thread of the post being viewed.
type ThreadStore struct {
	api    CommentAPI
	topics *TopicManager
	log    *slog.Logger

	// activateMu orders the desired-topic check with TopicManager.Activate.
	activateMu sync.Mutex

	mu       sync.RWMutex
	postID   string
	comments []api.Comment
	loading  bool
	desired  string
	lastErr  error

	listenersMu sync.Mutex
	listeners   map[uint64]func(Thread)
	nextID      uint64
}

// NewThreadStore creates an empty store.
func NewThreadStore(client CommentAPI, topics *TopicManager, log *slog.Logger) *ThreadStore {
	if log == nil {
		log = slog.Default()
	}
	return &ThreadStore{api: client, topics: topics, log: log}
}

// LoadThread fetches the comments of postID, replaces the thread and joins the post's topic.
// A response that arrives after another post was requested is dropped.
func (s *ThreadStore) LoadThread(ctx context.Context, postID string) error {
	err := s.load(ctx, postID)
	if errors.Is(err, ErrStaleResponse) {
		s.log.DebugContext(ctx, "dropping stale thread", "post_id", postID)
		return nil
	}
	return err
}

func (s *ThreadStore) load(ctx context.Context, postID string) error {
	s.mu.Lock()
	s.desired = postID
	s.loading = true
	s.mu.Unlock()

	comments, err := s.api.ListComments(ctx, postID)

	s.mu.Lock()
	if s.desired != postID {
		s.mu.Unlock()
		return ErrStaleResponse
	}
	s.loading = false
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		return fmt.Errorf("load comments: %w", err)
	}
	s.postID = postID
	s.comments = dedupComments(comments)
	s.lastErr = nil
	s.mu.Unlock()
	s.notify()

	s.activateMu.Lock()
	defer s.activateMu.Unlock()
	if s.desiredTopic() != postID {
		return ErrStaleResponse
	}
	s.topics.Activate(postID)
	return nil
}

// Reload refetches the comments of postID while it is still the requested post.
// It never changes which post is requested, so a newer LoadThread always wins.
// It returns ErrStaleResponse when another post was requested before or during the fetch.
func (s *ThreadStore) Reload(ctx context.Context, postID string) error {
	if s.desiredTopic() != postID {
		return ErrStaleResponse
	}

	comments, err := s.api.ListComments(ctx, postID)

	s.mu.Lock()
	if s.desired != postID || s.postID != postID {
		s.mu.Unlock()
		return ErrStaleResponse
	}
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		return fmt.Errorf("reload comments: %w", err)
	}
	s.comments = dedupComments(comments)
	s.lastErr = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// Close leaves the thread's topic and forgets the desired post.
func (s *ThreadStore) Close() {
	s.mu.Lock()
	s.desired = ""
	s.mu.Unlock()

	s.activateMu.Lock()
	defer s.activateMu.Unlock()
	s.topics.Deactivate()
}

func (s *ThreadStore) desiredTopic() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.desired
}

// LastError returns the error of the last failed load, cleared by the next successful one.
func (s *ThreadStore) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// PostID returns the post whose thread is loaded.
func (s *ThreadStore) PostID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.postID
}

// Snapshot returns a deep copy of the thread.
func (s *ThreadStore) Snapshot() Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Thread{PostID: s.postID, Loading: s.loading, Comments: make([]api.Comment, len(s.comments))}
	for i, c := range s.comments {
		out.Comments[i] = c.Clone()
	}
	return out
}

// InsertLocal prepends c. Comments already present or belonging to another post are ignored.
func (s *ThreadStore) InsertLocal(c api.Comment) bool {
	return s.mutate(func() bool {
		if c.PostID != s.postID || s.postID == "" || s.indexOf(c.ID) >= 0 {
			return false
		}
		s.comments = slices.Insert(s.comments, 0, c.Clone())
		return true
	})
}

// UpdateLocal sets the content of comment id if present.
func (s *ThreadStore) UpdateLocal(id, content string) bool {
	return s.mutate(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		s.comments[i].Content = content
		return true
	})
}

// RemoveLocal drops comment id if present.
func (s *ThreadStore) RemoveLocal(id string) bool {
	return s.mutate(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		s.comments = slices.Delete(s.comments, i, i+1)
		return true
	})
}

// SetLikeCount sets the like count of comment id if present. Order is unchanged.
// A changed count clears Likes: pushed counts do not say who liked.
func (s *ThreadStore) SetLikeCount(id string, n int) bool {
	return s.mutate(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		if s.comments[i].LikesCount != n {
			s.comments[i].Likes = nil
		}
		s.comments[i].LikesCount = n
		return true
	})
}

// OnUpdate registers fn to receive a snapshot after every change to the thread.
// fn runs on the goroutine that made the change.
func (s *ThreadStore) OnUpdate(fn func(Thread)) (release func()) {
	s.listenersMu.Lock()
	if s.listeners == nil {
		s.listeners = make(map[uint64]func(Thread))
	}
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// mutate runs fn under the write lock and notifies listeners if it changed anything.
func (s *ThreadStore) mutate(fn func() bool) bool {
	s.mu.Lock()
	changed := fn()
	s.mu.Unlock()
	if changed {
		s.notify()
	}
	return changed
}

func (s *ThreadStore) notify() {
	s.listenersMu.Lock()
	fns := make([]func(Thread), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()
	if len(fns) == 0 {
		return
	}

	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// AddComment posts a comment on the loaded thread and inserts the server's copy.
func (s *ThreadStore) AddComment(ctx context.Context, content string, parentID *string) (*api.Comment, error) {
	postID := s.PostID()
	if postID == "" {
		return nil, ErrNoThread
	}
	created, err := s.api.CreateComment(ctx, postID, content, parentID)
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	s.InsertLocal(*created)
	return created, nil
}

// EditComment changes a comment's content on the server, then locally.
func (s *ThreadStore) EditComment(ctx context.Context, id, content string) error {
	updated, err := s.api.UpdateComment(ctx, id, content)
	if err != nil {
		return fmt.Errorf("edit comment: %w", err)
	}
	s.UpdateLocal(id, updated.Content)
	return nil
}

// DeleteComment deletes a comment on the server, then locally.
func (s *ThreadStore) DeleteComment(ctx context.Context, id string) error {
	if err := s.api.DeleteComment(ctx, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	s.RemoveLocal(id)
	return nil
}

// ToggleCommentLike flips the user's like on the server and stores the returned count.
func (s *ThreadStore) ToggleCommentLike(ctx context.Context, id string) (int, error) {
	n, err := s.api.ToggleCommentLike(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("toggle comment like: %w", err)
	}
	s.SetLikeCount(id, n)
	return n, nil
}

func (s *ThreadStore) indexOf(id string) int {
	return slices.IndexFunc(s.comments, func(c api.Comment) bool { return c.ID == id })
}

func dedupComments(in []api.Comment) []api.Comment {
	seen := make(map[string]struct{}, len(in))
	out := make([]api.Comment, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c.Clone())
	}
	return out
}
