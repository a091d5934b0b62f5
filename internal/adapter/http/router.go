package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/codit04/cypherd/internal/adapter/http/handler"
	"github.com/codit04/cypherd/internal/adapter/http/middleware"
	"github.com/codit04/cypherd/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	ApprovalHandler     *handler.ApprovalHandler
	AccountHandler      *handler.AccountHandler
	TransactionHandler  *handler.TransactionHandler
	NotificationHandler *handler.NotificationHandler
	HealthHandler       *handler.HealthHandler
	IdempotencyStore    usecase.IdempotencyStore
	IdempotencyTTL      time.Duration
	RateLimiter         *middleware.RateLimiter
	MetricsHandler      http.Handler
	Logger              zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Metrics)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			idempotency := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotency.Wrap)
		}

		r.Route("/approvals", func(r chi.Router) {
			r.Post("/", cfg.ApprovalHandler.Create)
			r.Post("/sweep", cfg.ApprovalHandler.Sweep)
			r.Get("/{id}", cfg.ApprovalHandler.Get)
			r.Post("/{id}/execute", cfg.ApprovalHandler.Execute)
		})

		r.Get("/transactions/{id}", cfg.TransactionHandler.Get)

		r.Get("/accounts/{id}", cfg.AccountHandler.Get)
		r.Get("/accounts/{id}/transactions", cfg.TransactionHandler.ListByAccount)

		r.Get("/wallets/{id}/accounts", cfg.AccountHandler.ListByWallet)
		r.Get("/wallets/{id}/notifications", cfg.NotificationHandler.GetPreferences)
		r.Put("/wallets/{id}/notifications", cfg.NotificationHandler.UpdatePreferences)

		r.Post("/notifications/test", cfg.NotificationHandler.SendTest)
	})

	return r
}
