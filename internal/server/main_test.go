package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"blogify/internal/config"
	"blogify/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server *Server
	app    *fiber.App
	mr     *miniredis.Miniredis
	rdb    *redis.Client
}

// newTestEnv builds a server over an in-memory sqlite database. withRedis adds a miniredis.
func newTestEnv(t *testing.T, withRedis bool) *testEnv {
	t.Helper()

	db, err := database.OpenInMemory()
	require.NoError(t, err)

	env := &testEnv{}
	if withRedis {
		env.mr = miniredis.RunT(t)
		env.rdb = redis.NewClient(&redis.Options{Addr: env.mr.Addr()})
		t.Cleanup(func() { _ = env.rdb.Close() })
	}

	cfg := &config.Config{
		JWTSecret:      "test-secret",
		JWTExpiryHours: 1,
		Env:            "test",
		UploadDir:      t.TempDir(),
		PublicBaseURL:  "http://localhost:8375",
	}
	env.server, err = NewServerWithDeps(cfg, db, env.rdb)
	require.NoError(t, err)
	env.app = env.server.newApp()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

// signup registers a user and returns its token and ID.
func (e *testEnv) signup(t *testing.T, name, email string) (string, string) {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Token, out.User.ID
}

func (e *testEnv) createPost(t *testing.T, token, title string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/posts", token, map[string]string{
		"title":    title,
		"content":  "Some content that is long enough.",
		"category": "Technology",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out struct {
		Post struct {
			ID string `json:"id"`
		} `json:"post"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Post.ID
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}
