package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestLimitAllow(t *testing.T) {
	tests := []struct {
		name      string
		env       string
		nilRedis  bool
		calls     int
		max       int
		allowed   bool
		remaining int
		expectErr bool
	}{
		{name: "test environment bypass", env: "test", nilRedis: true, calls: 5, max: 1, allowed: true, remaining: 1},
		{name: "development environment bypass", env: "development", nilRedis: true, calls: 5, max: 1, allowed: true, remaining: 1},
		{name: "production nil redis errors", env: "production", nilRedis: true, calls: 1, max: 1, expectErr: true},
		{name: "production under limit", env: "production", calls: 2, max: 3, allowed: true, remaining: 1},
		{name: "production at limit", env: "production", calls: 2, max: 2, allowed: true, remaining: 0},
		{name: "production over limit", env: "production", calls: 3, max: 2, allowed: false, remaining: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.env)
			var rdb *redis.Client
			if !tt.nilRedis {
				_, rdb = newMiniRedis(t)
			}
			l := Limit{Name: "create_comment", Max: tt.max, Window: time.Minute}

			var d Decision
			var err error
			for range tt.calls {
				d, err = l.Allow(context.Background(), rdb, "user:u1")
			}
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.remaining, d.Remaining)
		})
	}
}

func TestLimitAllow_WindowAndRetryAfter(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newMiniRedis(t)
	l := Limit{Name: "login", Max: 1, Window: time.Minute}

	_, err := l.Allow(context.Background(), rdb, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("rl:login:ip:1.2.3.4"))

	d, err := l.Allow(context.Background(), rdb, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)

	// Another subject has its own window.
	d, err = l.Allow(context.Background(), rdb, "ip:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLimitHandler(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, rdb := newMiniRedis(t)

	app := fiber.New()
	limit := Limit{Name: "create_comment", Max: 1, Window: time.Minute}
	app.Post("/comments", limit.Handler(rdb), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/comments", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

	resp, err = app.Test(httptest.NewRequest("POST", "/comments", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}

func TestLimitHandler_FailClosed(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	app := fiber.New()
	limit := Limit{Name: "upload", Max: 1, Window: time.Minute, Policy: FailClosed}
	app.Get("/", limit.Handler(nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestLimitHandler_FailOpen(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	app := fiber.New()
	app.Get("/", CommentLimit.Handler(nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
