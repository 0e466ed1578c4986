package livesync

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"blogify/internal/api"
	"blogify/internal/realtime"

	"github.com/stretchr/testify/require"
)

// fakeTransport records join/leave frames and delivers events to subscribers synchronously.
type fakeTransport struct {
	mu      sync.Mutex
	ops     []string
	subs    map[string]map[int]realtime.Handler
	nextID  int
	sendErr error

	// handlers left for the kind after each release
	leftAfterRelease []int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{subs: make(map[string]map[int]realtime.Handler)}
}

func (f *fakeTransport) Join(postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "join:"+postID)
	return f.sendErr
}

func (f *fakeTransport) Leave(postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "leave:"+postID)
	return f.sendErr
}

type fakeSub struct {
	once    sync.Once
	release func()
}

func (s *fakeSub) Release() { s.once.Do(s.release) }

func (f *fakeTransport) Subscribe(kind string, h realtime.Handler) realtime.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	if f.subs[kind] == nil {
		f.subs[kind] = make(map[int]realtime.Handler)
	}
	f.subs[kind][id] = h
	return &fakeSub{release: func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs[kind], id)
		f.leftAfterRelease = append(f.leftAfterRelease, len(f.subs[kind]))
	}}
}

func (f *fakeTransport) emit(t *testing.T, kind string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	f.mu.Lock()
	handlers := make([]realtime.Handler, 0, len(f.subs[kind]))
	for _, h := range f.subs[kind] {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(raw)
	}
}

func (f *fakeTransport) emitRaw(kind string, raw string) {
	f.mu.Lock()
	handlers := make([]realtime.Handler, 0, len(f.subs[kind]))
	for _, h := range f.subs[kind] {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(json.RawMessage(raw))
	}
}

func (f *fakeTransport) subscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, hs := range f.subs {
		n += len(hs)
	}
	return n
}

func (f *fakeTransport) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	copy(out, f.ops)
	return out
}

// fakeAPI implements API with overridable function fields.
type fakeAPI struct {
	listCommentsFn      func(ctx context.Context, postID string) ([]api.Comment, error)
	createCommentFn     func(ctx context.Context, postID, content string, parentID *string) (*api.Comment, error)
	updateCommentFn     func(ctx context.Context, commentID, content string) (*api.Comment, error)
	deleteCommentFn     func(ctx context.Context, commentID string) error
	toggleCommentLikeFn func(ctx context.Context, commentID string) (int, error)

	listPostsFn   func(ctx context.Context, opts api.ListPostsOptions) ([]*api.Post, error)
	listMyPostsFn func(ctx context.Context) ([]*api.Post, error)
	getPostFn     func(ctx context.Context, postID string) (*api.Post, error)
	createPostFn  func(ctx context.Context, in api.PostInput) (*api.Post, error)
	updatePostFn  func(ctx context.Context, postID string, in api.PostInput) (*api.Post, error)
	deletePostFn  func(ctx context.Context, postID string) error
	likePostFn    func(ctx context.Context, postID string) (*api.Post, error)
	unlikePostFn  func(ctx context.Context, postID string) (*api.Post, error)
}

func (f *fakeAPI) ListComments(ctx context.Context, postID string) ([]api.Comment, error) {
	if f.listCommentsFn != nil {
		return f.listCommentsFn(ctx, postID)
	}
	return nil, nil
}

func (f *fakeAPI) CreateComment(ctx context.Context, postID, content string, parentID *string) (*api.Comment, error) {
	return f.createCommentFn(ctx, postID, content, parentID)
}

func (f *fakeAPI) UpdateComment(ctx context.Context, commentID, content string) (*api.Comment, error) {
	return f.updateCommentFn(ctx, commentID, content)
}

func (f *fakeAPI) DeleteComment(ctx context.Context, commentID string) error {
	return f.deleteCommentFn(ctx, commentID)
}

func (f *fakeAPI) ToggleCommentLike(ctx context.Context, commentID string) (int, error) {
	return f.toggleCommentLikeFn(ctx, commentID)
}

func (f *fakeAPI) ListPosts(ctx context.Context, opts api.ListPostsOptions) ([]*api.Post, error) {
	return f.listPostsFn(ctx, opts)
}

func (f *fakeAPI) ListMyPosts(ctx context.Context) ([]*api.Post, error) {
	return f.listMyPostsFn(ctx)
}

func (f *fakeAPI) GetPost(ctx context.Context, postID string) (*api.Post, error) {
	return f.getPostFn(ctx, postID)
}

func (f *fakeAPI) CreatePost(ctx context.Context, in api.PostInput) (*api.Post, error) {
	return f.createPostFn(ctx, in)
}

func (f *fakeAPI) UpdatePost(ctx context.Context, postID string, in api.PostInput) (*api.Post, error) {
	return f.updatePostFn(ctx, postID, in)
}

func (f *fakeAPI) DeletePost(ctx context.Context, postID string) error {
	return f.deletePostFn(ctx, postID)
}

func (f *fakeAPI) LikePost(ctx context.Context, postID string) (*api.Post, error) {
	return f.likePostFn(ctx, postID)
}

func (f *fakeAPI) UnlikePost(ctx context.Context, postID string) (*api.Post, error) {
	return f.unlikePostFn(ctx, postID)
}

type staticIdentity string

func (s staticIdentity) UserID() string { return string(s) }

func comment(id, postID string) api.Comment {
	return api.Comment{ID: id, PostID: postID, Content: "content " + id, Author: api.Author{ID: "u-other", Name: "Other"}}
}

func commentIDs(th Thread) []string {
	ids := make([]string, len(th.Comments))
	for i, c := range th.Comments {
		ids[i] = c.ID
	}
	return ids
}

// newThreadFixture builds a store with postID loaded from comments.
func newThreadFixture(t *testing.T, postID string, comments ...api.Comment) (*ThreadStore, *TopicManager, *fakeTransport, *fakeAPI) {
	t.Helper()
	transport := newFakeTransport()
	topics := NewTopicManager(transport, nil)
	fa := &fakeAPI{listCommentsFn: func(_ context.Context, id string) ([]api.Comment, error) {
		if id == postID {
			return comments, nil
		}
		return nil, nil
	}}
	store := NewThreadStore(fa, topics, nil)
	if postID != "" {
		require.NoError(t, store.LoadThread(context.Background(), postID))
	}
	return store, topics, transport, fa
}
