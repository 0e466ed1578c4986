package livesync

import (
	"context"
	"errors"
	"testing"

	"blogify/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const me = "u-me"

func post(id, authorID string, likes ...string) *api.Post {
	return &api.Post{ID: id, Title: "title " + id, Author: api.Author{ID: authorID}, Likes: likes}
}

func postIDs(posts []*api.Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

// newCoordinator returns a coordinator whose feed holds posts, signed in as me.
func newCoordinator(t *testing.T, posts ...*api.Post) (*PostCoordinator, *fakeAPI) {
	t.Helper()
	fa := &fakeAPI{
		listPostsFn: func(context.Context, api.ListPostsOptions) ([]*api.Post, error) { return posts, nil },
		// the server echoes the post without applying the like
		likePostFn:   func(_ context.Context, id string) (*api.Post, error) { return nil, nil },
		unlikePostFn: func(_ context.Context, id string) (*api.Post, error) { return nil, nil },
	}
	c := NewPostCoordinator(fa, staticIdentity(me), nil)
	_, err := c.FetchFeed(context.Background(), api.ListPostsOptions{})
	require.NoError(t, err)
	return c, fa
}

func TestPostCoordinator_ToggleLikeInvolution(t *testing.T) {
	tests := []struct {
		name  string
		likes []string
	}{
		{"not liked", []string{"u2"}},
		{"liked", []string{"u2", me}},
		{"no likers", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newCoordinator(t, post("p1", "u2", tt.likes...))
			original := c.HasLiked("p1")

			_, err := c.ToggleLike(context.Background(), "p1")
			require.NoError(t, err)
			assert.Equal(t, !original, c.HasLiked("p1"))

			_, err = c.ToggleLike(context.Background(), "p1")
			require.NoError(t, err)
			assert.Equal(t, original, c.HasLiked("p1"))
			assert.ElementsMatch(t, tt.likes, c.Get("p1").Likes)
		})
	}
}

func TestPostCoordinator_LikeThenUnlikeCallsBothEndpoints(t *testing.T) {
	c, fa := newCoordinator(t, post("p1", "u2"))
	var calls []string
	fa.likePostFn = func(_ context.Context, id string) (*api.Post, error) {
		calls = append(calls, "like:"+id)
		return post(id, "u2", me), nil
	}
	fa.unlikePostFn = func(_ context.Context, id string) (*api.Post, error) {
		calls = append(calls, "unlike:"+id)
		return post(id, "u2"), nil
	}

	liked, err := c.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{me}, liked.Likes)

	unliked, err := c.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, unliked.Likes)
	assert.Equal(t, []string{"like:p1", "unlike:p1"}, calls)
}

func TestPostCoordinator_ToggleLikeNeverDuplicates(t *testing.T) {
	c, fa := newCoordinator(t, post("p1", "u2"))
	fa.likePostFn = func(_ context.Context, id string) (*api.Post, error) {
		return post(id, "u2", me, me, "u3"), nil
	}

	_, err := c.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{me, "u3"}, c.Get("p1").Likes)
}

func TestPostCoordinator_ToggleLikeFailureTouchesNothing(t *testing.T) {
	c, fa := newCoordinator(t, post("p1", "u2", "u2"), post("p2", me))
	boom := &api.NetworkError{Op: "like post", Status: 500}
	fa.likePostFn = func(context.Context, string) (*api.Post, error) { return nil, boom }

	feed := c.Feed()
	_, err := c.ToggleLike(context.Background(), "p1")
	require.ErrorIs(t, err, boom)

	assert.Equal(t, feed, c.Feed())
	assert.False(t, c.HasLiked("p1"))
}

func TestPostCoordinator_LikesChangedPreservesFeedOrder(t *testing.T) {
	c, _ := newCoordinator(t, post("p3", "u2"), post("p2", "u2"), post("p1", "u2"))

	_, err := c.ToggleLike(context.Background(), "p2")
	require.NoError(t, err)

	assert.Equal(t, []string{"p3", "p2", "p1"}, postIDs(c.Feed()))
}

func TestPostCoordinator_MutationsRequireSession(t *testing.T) {
	fa := &fakeAPI{}
	c := NewPostCoordinator(fa, staticIdentity(""), nil)
	ctx := context.Background()

	_, err := c.ToggleLike(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = c.Create(ctx, api.PostInput{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = c.Update(ctx, "p1", api.PostInput{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.ErrorIs(t, c.Delete(ctx, "p1"), ErrNotAuthenticated)
	_, err = c.FetchMine(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Nil(t, c.Mine())
}

func TestPostCoordinator_CreatePrependsAndActivates(t *testing.T) {
	c, fa := newCoordinator(t, post("p1", "u2"), post("p0", me))
	fa.createPostFn = func(_ context.Context, in api.PostInput) (*api.Post, error) {
		p := post("new", me)
		p.Title = in.Title
		return p, nil
	}

	created, err := c.Create(context.Background(), api.PostInput{Title: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hello", created.Title)

	assert.Equal(t, []string{"new", "p1", "p0"}, postIDs(c.Feed()))
	assert.Equal(t, []string{"new", "p0"}, postIDs(c.Mine()))
	assert.Equal(t, "new", c.Active().ID)
	assert.True(t, c.IsAuthor("new"))
	assert.False(t, c.IsAuthor("p1"))
}

func TestPostCoordinator_CreateFailureTouchesNothing(t *testing.T) {
	c, fa := newCoordinator(t, post("p1", "u2"))
	fa.createPostFn = func(context.Context, api.PostInput) (*api.Post, error) { return nil, errors.New("boom") }

	_, err := c.Create(context.Background(), api.PostInput{Title: "Hello"})
	require.Error(t, err)
	assert.Equal(t, []string{"p1"}, postIDs(c.Feed()))
	assert.Nil(t, c.Active())
}

func TestPostCoordinator_UpdateReplacesInPlace(t *testing.T) {
	c, fa := newCoordinator(t, post("p2", me), post("p1", me))
	fa.updatePostFn = func(_ context.Context, id string, in api.PostInput) (*api.Post, error) {
		p := post(id, me)
		p.Title = in.Title
		return p, nil
	}

	_, err := c.Update(context.Background(), "p1", api.PostInput{Title: "Renamed"})
	require.NoError(t, err)

	assert.Equal(t, []string{"p2", "p1"}, postIDs(c.Feed()))
	assert.Equal(t, "Renamed", c.Get("p1").Title)
	assert.Equal(t, "Renamed", c.Mine()[1].Title)
}

func TestPostCoordinator_DeleteRemovesEverywhere(t *testing.T) {
	c, fa := newCoordinator(t, post("p2", me), post("p1", me))
	fa.getPostFn = func(_ context.Context, id string) (*api.Post, error) { return post(id, me), nil }
	fa.deletePostFn = func(context.Context, string) error { return nil }

	_, err := c.Open(context.Background(), "p1")
	require.NoError(t, err)
	require.NoError(t, c.Delete(context.Background(), "p1"))

	assert.Equal(t, []string{"p2"}, postIDs(c.Feed()))
	assert.Equal(t, []string{"p2"}, postIDs(c.Mine()))
	assert.Nil(t, c.Active())
	assert.Nil(t, c.Get("p1"))
}

func TestPostCoordinator_DeleteFailureKeepsPost(t *testing.T) {
	c, fa := newCoordinator(t, post("p1", me))
	fa.deletePostFn = func(context.Context, string) error { return &api.NetworkError{Op: "delete post", Status: 403} }

	err := c.Delete(context.Background(), "p1")
	require.Error(t, err)
	assert.Equal(t, 403, api.StatusOf(err))
	assert.NotNil(t, c.Get("p1"))
}

func TestPostCoordinator_OpenSkipsFetchWhenActive(t *testing.T) {
	c, fa := newCoordinator(t)
	calls := 0
	fa.getPostFn = func(_ context.Context, id string) (*api.Post, error) {
		calls++
		return post(id, "u2"), nil
	}

	for range 3 {
		p, err := c.Open(context.Background(), "p9")
		require.NoError(t, err)
		assert.Equal(t, "p9", p.ID)
	}
	assert.Equal(t, 1, calls)

	_, err := c.Open(context.Background(), "p8")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	// p9 is no longer referenced by any view
	assert.Nil(t, c.Get("p9"))
}

func TestPostCoordinator_MineMergesFeedAndMineListing(t *testing.T) {
	c, fa := newCoordinator(t, post("f2", me), post("f1", "u2"), post("f0", me))
	fa.listMyPostsFn = func(context.Context) ([]*api.Post, error) {
		return []*api.Post{post("f0", me), post("old", me), post("f2", me)}, nil
	}

	mine, err := c.FetchMine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"f2", "f0", "old"}, postIDs(mine))
}

func TestPostCoordinator_FetchFeedReplacesView(t *testing.T) {
	c, fa := newCoordinator(t, post("a", "u2"), post("b", "u2"))
	fa.listPostsFn = func(_ context.Context, opts api.ListPostsOptions) ([]*api.Post, error) {
		assert.Equal(t, "go", opts.Category)
		return []*api.Post{post("c", "u2"), post("c", "u2"), post("a", "u2")}, nil
	}

	feed, err := c.FetchFeed(context.Background(), api.ListPostsOptions{Category: "go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, postIDs(feed))
	assert.Nil(t, c.Get("b"))
}

func TestPostCoordinator_ViewsReturnCopies(t *testing.T) {
	c, _ := newCoordinator(t, post("p1", "u2", "u3"))

	c.Feed()[0].Likes[0] = "mutated"
	c.Get("p1").Title = "mutated"

	p := c.Get("p1")
	assert.Equal(t, []string{"u3"}, p.Likes)
	assert.Equal(t, "title p1", p.Title)
}
