package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hyunwoo-kim/docchat/internal/api/handler"
	customMiddleware "github.com/hyunwoo-kim/docchat/internal/api/middleware"
	"github.com/hyunwoo-kim/docchat/internal/assistant"
	"github.com/hyunwoo-kim/docchat/internal/config"
	"github.com/hyunwoo-kim/docchat/internal/domain"
	"github.com/hyunwoo-kim/docchat/internal/repository/redis"
	"github.com/hyunwoo-kim/docchat/internal/security"
	"github.com/hyunwoo-kim/docchat/internal/service"
	"github.com/hyunwoo-kim/docchat/internal/usage"
)

// Deps carries everything the router wires together. Redis and Titler
// are optional; the router degrades to no cache, no rate limiting and
// truncation-only titles.
type Deps struct {
	Config      *config.Config
	SessionRepo domain.SessionRepository
	MessageRepo domain.MessageRepository
	UsageRepo   domain.UsageRepository
	Store       handler.Pinger
	Redis       *redis.Client
	Assistant   assistant.Client
	Titler      assistant.Titler
	Tracker     *usage.Tracker
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize security components
	jwtManager := security.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)

	// Optional Redis-backed components
	var sessionCache *redis.SessionCache
	var rateLimiter *redis.RateLimiter
	if deps.Redis != nil {
		sessionCache = redis.NewSessionCache(deps.Redis)
		rateLimiter = redis.NewRateLimiter(deps.Redis, cfg.Security.RateLimit)
	}

	// Initialize services
	chatService := service.NewChatService(
		deps.SessionRepo,
		deps.MessageRepo,
		deps.Assistant,
		deps.Titler,
		deps.Tracker,
		sessionCache,
	)
	sessionService := service.NewSessionService(deps.SessionRepo, deps.MessageRepo, sessionCache)
	usageService := service.NewUsageService(deps.UsageRepo, cfg.Usage)

	// Initialize handlers
	chatHandler := handler.NewChatHandler(chatService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	usageHandler := handler.NewUsageHandler(usageService)

	// Auth middleware
	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Store))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if rateLimiter != nil {
				r.Use(customMiddleware.NewRateLimitMiddleware(rateLimiter).Limit)
			}

			r.Post("/chat", chatHandler.Send)

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.List)

				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", sessionHandler.Get)
					r.Patch("/title", sessionHandler.Rename)
					r.Delete("/", sessionHandler.Delete)
					r.Get("/export", sessionHandler.Export)
				})
			})

			r.Route("/usage", func(r chi.Router) {
				r.Get("/summary", usageHandler.Summary)
				r.Get("/history", usageHandler.History)
				r.Get("/quota", usageHandler.Quota)
			})
		})
	})

	return r
}
