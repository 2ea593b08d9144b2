package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	mw "github.com/lorrc/civic-dashboard/internal/adapters/primary/http/middleware"
	"github.com/lorrc/civic-dashboard/internal/core/domain"
	"github.com/lorrc/civic-dashboard/internal/core/services"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/metrics"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth      *AuthHandler
	Tickets   *TicketHandler
	Workers   *WorkerHandler
	Analytics *AnalyticsHandler
	Users     *AdminHandler
	Dashboard *DashboardHandler
	WebSocket *WebSocketHandler
	Health    *HealthHandler
}

// RouterConfig carries the router's cross-cutting dependencies.
// The rate limiters may be nil.
type RouterConfig struct {
	Session        mw.Session
	Authz          *services.AuthorizationService
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	GeneralLimiter *mw.RateLimiter
	AuthLimiter    *mw.RateLimiter
	Logger         *slog.Logger
}

// NewRouter builds the dashboard's HTTP surface.
func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(cfg.Logger))
	r.Use(mw.RecoveryLogger(cfg.Logger))
	r.Use(mw.Metrics(cfg.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.GeneralLimiter != nil {
		r.Use(cfg.GeneralLimiter.Middleware)
	}

	// Probe and scrape paths stay outside /api/v1
	h.Health.RegisterRoutes(r)
	r.Handle("/metrics", cfg.Metrics.Handler())

	requireSession := mw.SessionAuth(cfg.Session)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.AuthLimiter != nil {
				r.Use(cfg.AuthLimiter.Middleware)
			}
			r.Route("/auth", h.Auth.RegisterRoutes)
		})

		// Authentication is handled inside the handler
		r.Get("/ws", h.WebSocket.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Get("/views", h.Auth.HandleViews)

			r.With(mw.RequireView(cfg.Authz, domain.ViewDashboard)).Group(func(r chi.Router) {
				r.Get("/dashboard", h.Dashboard.HandleDashboard)
				r.Get("/notifications", h.Dashboard.HandleNotifications)
				r.Post("/notifications/read-all", h.Dashboard.HandleMarkAllRead)
			})

			r.With(mw.RequireView(cfg.Authz, domain.ViewTickets)).Route("/tickets", h.Tickets.RegisterRoutes)
			r.With(mw.RequireView(cfg.Authz, domain.ViewWorkers)).Route("/workers", h.Workers.RegisterRoutes)
			r.With(mw.RequireView(cfg.Authz, domain.ViewDepartments)).Get("/departments", h.Workers.HandleListDepartments)
			r.With(mw.RequireView(cfg.Authz, domain.ViewReports)).Route("/analytics", h.Analytics.RegisterRoutes)
			r.With(mw.RequireView(cfg.Authz, domain.ViewSettings)).Route("/users", h.Users.RegisterRoutes)
		})
	})

	return r
}
