// Package middleware provides request-scoped fiber middleware: logging, metrics, tracing and rate limiting.
package middleware

import (
	"context"
	"log/slog"
	"os"
	"time"

	"blogify/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Logger is the server-wide logger. cmd/server replaces it once config is loaded.
var Logger = NewLogger(os.Getenv("APP_ENV"), slog.LevelInfo)

type contextKey string

// Context keys copied onto every log record written with a request context.
const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
)

// requestKeys maps fiber locals to the context keys ContextMiddleware fills.
var requestKeys = []struct {
	local string
	key   contextKey
}{
	{"requestid", RequestIDKey},
	{"userID", UserIDKey},
	{"traceID", TraceIDKey},
}

// ctxHandler decorates records with the request values found in ctx.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, rk := range requestKeys {
		if v, ok := ctx.Value(rk.key).(string); ok && v != "" {
			r.AddAttrs(slog.String(string(rk.key), v))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// NewLogger writes JSON in production and text otherwise.
func NewLogger(env string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var base slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if env == "production" || env == "prod" {
		base = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(&ctxHandler{base})
}

// ContextMiddleware copies request, user and trace IDs from fiber locals into the
// request context. The request ID doubles as the repository correlation ID;
// requests without one get a fresh correlation ID.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		for _, rk := range requestKeys {
			if v, ok := c.Locals(rk.local).(string); ok {
				ctx = context.WithValue(ctx, rk.key, v)
			}
		}
		rid, _ := ctx.Value(RequestIDKey).(string)
		if rid == "" {
			rid = observability.GenerateCorrelationID()
		}
		ctx = observability.WithCorrelationID(ctx, rid)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger writes one access log line per request.
// Handler errors log at error, 5xx at warn, everything else at info.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}

		level, msg := slog.LevelInfo, "request processed"
		switch {
		case err != nil:
			level, msg = slog.LevelError, "request failed"
			attrs = append(attrs, slog.String("error", err.Error()))
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelWarn
		}
		Logger.LogAttrs(c.UserContext(), level, msg, attrs...)
		return err
	}
}
