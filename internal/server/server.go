// Package server contains HTTP and WebSocket handlers for the blog API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "blogify/docs" // swagger docs
	"blogify/internal/cache"
	"blogify/internal/config"
	"blogify/internal/database"
	"blogify/internal/featureflags"
	"blogify/internal/middleware"
	"blogify/internal/models"
	"blogify/internal/notifications"
	"blogify/internal/repository"
	"blogify/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	tokenIssuer   = "blogify-api"
	tokenAudience = "blogify-client"
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	notifier       *notifications.Notifier
	postHub        *notifications.PostHub
	hubs           []wireableHub
	postService    *service.PostService
	commentService *service.CommentService
	userService    *service.UserService
	imageService   *service.ImageService
	featureFlags   *featureflags.Manager
}

// NewServer connects to the database and Redis described by cfg and builds a Server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil redisClient disables rate limiting, ws tickets, token revocation and cross-instance fan-out.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("blogify-api"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		notifier:       notifications.NewNotifier(redisClient),
		postHub:        notifications.NewPostHub(),
		imageService:   service.NewImageService(cfg),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	server.hubs = []wireableHub{server.postHub}
	server.postService = service.NewPostService(server.postRepo)
	server.commentService = service.NewCommentService(server.commentRepo, server.postRepo)
	server.userService = service.NewUserService(server.userRepo, server.imageService, redisClient)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// Uploaded images are fetched cross-origin by the web client.
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/uploads")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Static("/uploads", s.imageService.UploadDir())

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Blogify Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.SignupLimit.Handler(s.redis), s.Signup)
	auth.Post("/login", middleware.LoginLimit.Handler(s.redis), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	// Websocket: viewers may connect anonymously; a ticket or bearer token identifies them.
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.IdentifyOptional(), s.requireWSAuth, s.WebsocketHandler())

	api.Get("/features", s.IdentifyOptional(), s.GetFeatureFlags)

	// Public reads. /posts/mine must precede /posts/:id.
	api.Get("/posts/mine", s.AuthRequired(), s.GetMyPosts)
	api.Get("/posts", s.GetPosts)
	api.Get("/posts/:id", s.GetPost)
	api.Get("/comments/:postId", s.GetComments)

	protected := api.Group("", s.AuthRequired())

	users := protected.Group("/users")
	users.Get("/me", s.GetMe)
	users.Put("/update", s.UpdateProfile)
	users.Get("/stats", s.GetStats)

	protected.Post("/upload", middleware.UploadLimit.Handler(s.redis), s.UploadImage)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.PostLimit.Handler(s.redis), s.CreatePost)
	posts.Put("/:id/like", s.LikePost)
	posts.Put("/:id/unlike", s.UnlikePost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	comments := protected.Group("/comments")
	comments.Post("/", middleware.CommentLimit.Handler(s.redis), s.CreateComment)
	comments.Put("/:id/like", s.ToggleCommentLike)
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional: without it the
// server runs single-instance, so "unavailable" does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware. It accepts a single-use
// websocket ticket (?ticket=) or a Bearer JWT.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := s.identify(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		if userID == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		s.setUser(c, userID)
		return c.Next()
	}
}

// IdentifyOptional records the caller's user ID when credentials are present.
// Presented but invalid credentials are still rejected.
func (s *Server) IdentifyOptional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := s.identify(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		if userID != "" {
			s.setUser(c, userID)
		}
		return c.Next()
	}
}

func (s *Server) setUser(c *fiber.Ctx, userID string) {
	c.Locals("userID", userID)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
	c.SetUserContext(ctx)
}

// identify returns ("", nil) when the request carries no credentials.
func (s *Server) identify(c *fiber.Ctx) (string, error) {
	if ticket := c.Query("ticket"); ticket != "" {
		if s.redis == nil {
			return "", models.NewUnauthorizedError("WebSocket tickets are unavailable")
		}
		userID, err := s.redis.GetDel(c.UserContext(), wsTicketKey(ticket)).Result()
		if err != nil || userID == "" {
			return "", models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
		}
		return userID, nil
	}

	tokenString := bearerToken(c)
	if tokenString == "" {
		return "", nil
	}
	claims, err := s.parseToken(c.UserContext(), tokenString)
	if err != nil {
		return "", err
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.Split(c.Get("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// parseToken validates signature, issuer, audience, subject and revocation.
func (s *Server) parseToken(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}
	if sub, ok := claims["sub"].(string); !ok || sub == "" {
		return nil, models.NewUnauthorizedError("Invalid subject claim")
	}

	if jti, exists := claims["jti"].(string); exists && jti != "" && s.redis != nil {
		revoked, err := s.redis.Exists(ctx, blacklistKey(jti)).Result()
		if err == nil && revoked > 0 {
			return nil, models.NewUnauthorizedError("Token has been revoked")
		}
	}
	return claims, nil
}

// newApp builds the Fiber app with middleware and routes installed.
func (s *Server) newApp() *fiber.App {
	bodyLimit := s.config.ImageMaxUploadSizeMB
	if bodyLimit <= 0 {
		bodyLimit = service.DefaultImageMaxUploadSizeMB
	}
	app := fiber.New(fiber.Config{
		AppName:   "Blogify API",
		BodyLimit: (bodyLimit + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			slog.ErrorContext(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.newApp()

	if s.notifier.Enabled() {
		for _, h := range s.hubs {
			go func() {
				if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
					slog.Error("failed to start hub wiring", "hub", h.Name(), "error", err)
				}
			}()
		}
	}

	slog.Info("server starting", "port", s.config.Port, "redis", s.redis != nil)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", "error", err)
		}
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			slog.Error("error shutting down hub", "hub", h.Name(), "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			slog.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			slog.Error("error closing redis", "error", rerr)
		}
	}

	slog.Info("server shutdown complete")
	return nil
}
