package server

import (
	"net/http"
	"testing"

	"blogify/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postEnvelope struct {
	Post models.Post `json:"post"`
}

func TestPosts_CRUDAndOwnership(t *testing.T) {
	env := newTestEnv(t, false)
	alice, aliceID := env.signup(t, "Alice", "alice@example.com")
	bob, _ := env.signup(t, "Bob", "bob@example.com")

	postID := env.createPost(t, alice, "First post")

	t.Run("public get carries author", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/posts/"+postID, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		post := decode[models.Post](t, body)
		assert.Equal(t, "First post", post.Title)
		assert.Equal(t, aliceID, post.Author.ID)
		assert.Equal(t, "Alice", post.Author.Name)
		assert.Empty(t, post.LikerIDs)
	})

	t.Run("validation", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/posts", alice, map[string]string{
			"title": "no", "content": "Some content that is long enough.", "category": "Food",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("mine is not shadowed by :id", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/posts/mine", alice, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		posts := decode[[]models.Post](t, body)
		require.Len(t, posts, 1)
		assert.Equal(t, postID, posts[0].ID)

		resp, body = env.do(t, http.MethodGet, "/api/posts/mine", bob, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, decode[[]models.Post](t, body))

		resp, _ = env.do(t, http.MethodGet, "/api/posts/mine", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("non-owner cannot edit or delete", func(t *testing.T) {
		update := map[string]string{"title": "Hijacked", "content": "Some content that is long enough.", "category": "Food"}
		resp, _ := env.do(t, http.MethodPut, "/api/posts/"+postID, bob, update)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp, _ = env.do(t, http.MethodDelete, "/api/posts/"+postID, bob, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("owner edits", func(t *testing.T) {
		update := map[string]string{"title": "Edited", "content": "Edited content that is long enough.", "category": "Travel"}
		resp, body := env.do(t, http.MethodPut, "/api/posts/"+postID, alice, update)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		post := decode[postEnvelope](t, body).Post
		assert.Equal(t, "Edited", post.Title)
		assert.Equal(t, "Travel", post.Category)
	})

	t.Run("like and unlike", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPut, "/api/posts/"+postID+"/like", bob, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[postEnvelope](t, body).Post.LikerIDs, 1)

		// Liking twice keeps a single like.
		resp, body = env.do(t, http.MethodPut, "/api/posts/"+postID+"/like", bob, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[postEnvelope](t, body).Post.LikerIDs, 1)

		resp, body = env.do(t, http.MethodPut, "/api/posts/"+postID+"/unlike", bob, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, decode[postEnvelope](t, body).Post.LikerIDs)

		// Liking again after an unlike must not trip the unique index.
		resp, _ = env.do(t, http.MethodPut, "/api/posts/"+postID+"/like", bob, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("stats", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/users/stats", alice, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		stats := decode[models.UserStats](t, body)
		assert.Equal(t, int64(1), stats.PostCount)
		assert.Equal(t, int64(1), stats.LikeCount)
	})

	t.Run("owner deletes", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodDelete, "/api/posts/"+postID, alice, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp, _ = env.do(t, http.MethodGet, "/api/posts/"+postID, "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestPosts_ListFiltersByCategory(t *testing.T) {
	env := newTestEnv(t, false)
	alice, _ := env.signup(t, "Alice", "alice@example.com")
	env.createPost(t, alice, "Tech one")

	resp, body := env.do(t, http.MethodPost, "/api/posts", alice, map[string]string{
		"title": "Food one", "content": "Some content that is long enough.", "category": "Food",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = env.do(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Post](t, body), 2)

	resp, body = env.do(t, http.MethodGet, "/api/posts?category=Food", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts := decode[[]models.Post](t, body)
	require.Len(t, posts, 1)
	assert.Equal(t, "Food one", posts[0].Title)
}
