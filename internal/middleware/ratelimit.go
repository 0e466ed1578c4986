package middleware

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"blogify/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

// Limit is a fixed-window quota on one kind of write.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	Policy FailPolicy
}

// Write quotas per user, or per IP for anonymous callers.
var (
	SignupLimit  = Limit{Name: "signup", Max: 5, Window: 10 * time.Minute}
	LoginLimit   = Limit{Name: "login", Max: 10, Window: 5 * time.Minute}
	UploadLimit  = Limit{Name: "upload", Max: 20, Window: 10 * time.Minute}
	PostLimit    = Limit{Name: "create_post", Max: 10, Window: 5 * time.Minute}
	CommentLimit = Limit{Name: "create_comment", Max: 30, Window: time.Minute}
)

// Decision is the outcome of one quota check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

var errNoRedis = errors.New("rate limit store unavailable")

// quotasDisabled reports whether APP_ENV turns quotas off (unset, test, development).
func quotasDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true
	}
	return false
}

// Allow counts one request by subject against l.
func (l Limit) Allow(ctx context.Context, rdb *redis.Client, subject string) (Decision, error) {
	if quotasDisabled() {
		return Decision{Allowed: true, Remaining: l.Max}, nil
	}
	if rdb == nil {
		return Decision{}, errNoRedis
	}

	key := "rl:" + l.Name + ":" + subject
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		observability.RedisErrorRate.WithLabelValues("ratelimit_incr").Inc()
		return Decision{}, err
	}
	if count == 1 {
		rdb.Expire(ctx, key, l.Window)
	}

	d := Decision{Allowed: count <= int64(l.Max), Remaining: max(l.Max-int(count), 0)}
	if !d.Allowed {
		if ttl, err := rdb.PTTL(ctx, key).Result(); err == nil && ttl > 0 {
			d.RetryAfter = ttl
		} else {
			d.RetryAfter = l.Window
		}
	}
	return d, nil
}

// Handler enforces l on a route.
func (l Limit) Handler(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(string); ok && uid != "" {
			subject = "user:" + uid
		}

		d, err := l.Allow(c.UserContext(), rdb, subject)
		if err != nil {
			if l.Policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit unavailable, rejecting",
					"limit", l.Name, "error", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
					"code":  "RATE_LIMIT_UNAVAILABLE",
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(d.RetryAfter.Round(time.Second).Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
				"code":  "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}
