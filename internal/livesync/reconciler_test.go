package livesync

import (
	"context"
	"testing"
	"time"

	"blogify/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReconcilerFixture(t *testing.T, postID string, comments ...api.Comment) (*Reconciler, *ThreadStore, *fakeTransport, *fakeAPI) {
	t.Helper()
	store, topics, transport, fa := newThreadFixture(t, "", comments...)
	r := NewReconciler(transport, topics, store, nil)
	t.Cleanup(r.Close)

	fa.listCommentsFn = func(_ context.Context, id string) ([]api.Comment, error) {
		if id == postID {
			return comments, nil
		}
		return nil, nil
	}
	require.NoError(t, store.LoadThread(context.Background(), postID))
	return r, store, transport, fa
}

func TestReconciler_AppliesEventsInArrivalOrder(t *testing.T) {
	r, store, transport, _ := newReconcilerFixture(t, "p1", comment("c1", "p1"))

	transport.emit(t, EventCommentCreated, commentCreated{PostID: "p1", Comment: comment("c2", "p1")})
	transport.emit(t, EventCommentUpdated, commentUpdated{PostID: "p1", CommentID: "c2", Content: "edited"})
	transport.emit(t, EventCommentLikesChanged, commentLikesChanged{PostID: "p1", CommentID: "c2", LikesCount: 4})
	transport.emit(t, EventCommentDeleted, commentDeleted{PostID: "p1", CommentID: "c1"})

	th := store.Snapshot()
	require.Equal(t, []string{"c2"}, commentIDs(th))
	assert.Equal(t, "edited", th.Comments[0].Content)
	assert.Equal(t, 4, th.Comments[0].LikesCount)
	assert.Equal(t, ReconcilerStats{Applied: 4}, r.Stats())
}

func TestReconciler_DiscardsOtherTopics(t *testing.T) {
	r, store, transport, _ := newReconcilerFixture(t, "p1", comment("c1", "p1"))
	before := store.Snapshot()

	transport.emit(t, EventCommentCreated, commentCreated{PostID: "p2", Comment: comment("x", "p2")})
	transport.emit(t, EventCommentDeleted, commentDeleted{PostID: "p2", CommentID: "c1"})
	transport.emit(t, EventCommentUpdated, commentUpdated{PostID: "p2", CommentID: "c1", Content: "nope"})
	transport.emit(t, EventCommentLikesChanged, commentLikesChanged{PostID: "p2", CommentID: "c1", LikesCount: 9})
	transport.emit(t, EventCommentDeleted, commentDeleted{CommentID: "c1"})

	assert.Equal(t, before, store.Snapshot())
	assert.Equal(t, ReconcilerStats{OutOfScope: 5}, r.Stats())
}

func TestReconciler_MalformedPayloadCounted(t *testing.T) {
	r, store, transport, _ := newReconcilerFixture(t, "p1", comment("c1", "p1"))

	transport.emitRaw(EventCommentDeleted, `"not an object"`)

	assert.Equal(t, []string{"c1"}, commentIDs(store.Snapshot()))
	assert.Equal(t, int64(1), r.Stats().Malformed)
}

func TestReconciler_OwnCreateEchoIsDeduplicated(t *testing.T) {
	_, store, transport, fa := newReconcilerFixture(t, "p1")
	fa.createCommentFn = func(_ context.Context, postID, content string, _ *string) (*api.Comment, error) {
		return &api.Comment{ID: "mine", PostID: postID, Content: content}, nil
	}

	created, err := store.AddComment(context.Background(), "hello", nil)
	require.NoError(t, err)
	transport.emit(t, EventCommentCreated, commentCreated{PostID: "p1", Comment: *created})

	assert.Equal(t, []string{"mine"}, commentIDs(store.Snapshot()))
}

func TestReconciler_CommentWithoutPostIDTakesEnvelopePost(t *testing.T) {
	_, store, transport, _ := newReconcilerFixture(t, "p1")

	transport.emit(t, EventCommentCreated, commentCreated{PostID: "p1", Comment: api.Comment{ID: "c1"}})

	assert.Equal(t, []string{"c1"}, commentIDs(store.Snapshot()))
}

func TestReconciler_FollowsTopicChanges(t *testing.T) {
	r, store, transport, fa := newReconcilerFixture(t, "p1", comment("c1", "p1"))
	fa.listCommentsFn = func(_ context.Context, id string) ([]api.Comment, error) {
		return []api.Comment{comment("d1", id)}, nil
	}

	require.NoError(t, store.LoadThread(context.Background(), "p2"))
	require.NoError(t, store.LoadThread(context.Background(), "p3"))
	assert.Equal(t, 5, transport.subscriberCount())

	transport.emit(t, EventCommentCreated, commentCreated{PostID: "p2", Comment: comment("late", "p2")})
	transport.emit(t, EventCommentCreated, commentCreated{PostID: "p3", Comment: comment("d2", "p3")})

	assert.Equal(t, []string{"d2", "d1"}, commentIDs(store.Snapshot()))
	assert.Equal(t, ReconcilerStats{Applied: 1, OutOfScope: 1}, r.Stats())
}

func TestReconciler_CloseReleasesEverything(t *testing.T) {
	r, store, transport, _ := newReconcilerFixture(t, "p1", comment("c1", "p1"))
	require.Equal(t, 5, transport.subscriberCount())

	r.Close()
	r.Close()
	assert.Zero(t, transport.subscriberCount())

	transport.emit(t, EventCommentDeleted, commentDeleted{PostID: "p1", CommentID: "c1"})
	assert.Equal(t, []string{"c1"}, commentIDs(store.Snapshot()))

	// topic changes after close do not resubscribe
	store.Close()
	assert.Zero(t, transport.subscriberCount())
}

func TestReconciler_ResyncReloadsCurrentThread(t *testing.T) {
	r, store, transport, fa := newReconcilerFixture(t, "p1", comment("c1", "p1"))
	fa.listCommentsFn = func(_ context.Context, id string) ([]api.Comment, error) {
		return []api.Comment{comment("missed", id), comment("c1", id)}, nil
	}

	transport.emitRaw(EventResync, `{"reason":"buffer_full"}`)

	assert.Eventually(t, func() bool {
		return len(store.Snapshot().Comments) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"missed", "c1"}, commentIDs(store.Snapshot()))
	assert.Equal(t, "p1", store.PostID())
	assert.Equal(t, int64(1), r.Stats().Resyncs)
}

func TestReconciler_ResyncWithoutTopicIsIgnored(t *testing.T) {
	store, topics, transport, fa := newThreadFixture(t, "")
	r := NewReconciler(transport, topics, store, nil)
	t.Cleanup(r.Close)
	fa.listCommentsFn = func(context.Context, string) ([]api.Comment, error) {
		t.Error("no thread should load")
		return nil, nil
	}

	transport.emitRaw(EventResync, `{}`)
	r.Close()

	assert.Zero(t, r.Stats().Resyncs)
}

func TestReconciler_RebindKeepsAHandlerPerKind(t *testing.T) {
	_, store, transport, _ := newReconcilerFixture(t, "p1")
	transport.mu.Lock()
	transport.leftAfterRelease = nil
	transport.mu.Unlock()

	require.NoError(t, store.LoadThread(context.Background(), "p2"))

	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.Len(t, transport.leftAfterRelease, 5)
	for _, left := range transport.leftAfterRelease {
		assert.Equal(t, 1, left)
	}
}

func TestReconciler_ResyncDoesNotOverrideNewerLoad(t *testing.T) {
	r, store, transport, fa := newReconcilerFixture(t, "p1", comment("c1", "p1"))
	started := make(chan struct{})
	release := make(chan struct{})
	fa.listCommentsFn = func(_ context.Context, id string) ([]api.Comment, error) {
		if id == "p2" {
			close(started)
			<-release
			return []api.Comment{comment("d1", "p2")}, nil
		}
		return []api.Comment{comment("c1", "p1")}, nil
	}

	done := make(chan error, 1)
	go func() { done <- store.LoadThread(context.Background(), "p2") }()
	<-started

	transport.emitRaw(EventResync, `{"reason":"buffer_full"}`)
	close(release)
	require.NoError(t, <-done)
	r.Close()

	assert.Equal(t, "p2", store.PostID())
	assert.Equal(t, "p2", r.topics.CurrentTopic())
	assert.Equal(t, []string{"d1"}, commentIDs(store.Snapshot()))
}

func TestReconciler_ResyncInFlightLosesToNewerLoad(t *testing.T) {
	r, store, transport, fa := newReconcilerFixture(t, "p1", comment("c1", "p1"))
	started := make(chan struct{})
	release := make(chan struct{})
	fa.listCommentsFn = func(_ context.Context, id string) ([]api.Comment, error) {
		if id == "p1" {
			close(started)
			<-release
			return []api.Comment{comment("c1", "p1"), comment("c0", "p1")}, nil
		}
		return []api.Comment{comment("d1", "p2")}, nil
	}

	transport.emitRaw(EventResync, `{"reason":"buffer_full"}`)
	<-started
	require.NoError(t, store.LoadThread(context.Background(), "p2"))
	close(release)
	r.Close()

	assert.Equal(t, "p2", store.PostID())
	assert.Equal(t, "p2", r.topics.CurrentTopic())
	assert.Equal(t, []string{"d1"}, commentIDs(store.Snapshot()))
	assert.Equal(t, int64(1), r.Stats().Resyncs)
}
