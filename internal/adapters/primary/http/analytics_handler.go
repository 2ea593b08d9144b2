package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/civic-dashboard/internal/core/services"
)

// AnalyticsHandler serves the SLA report endpoints.
type AnalyticsHandler struct {
	gateway      *services.Gateway
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewAnalyticsHandler(gateway *services.Gateway, errorHandler *ErrorHandler, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		gateway:      gateway,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "analytics"),
	}
}

// RegisterRoutes registers the /analytics routes.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleAnalytics)
	r.Get("/top-hotspots", h.HandleTopHotspots)
}

// HandleAnalytics handles GET /analytics
func (h *AnalyticsHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.gateway.GetAnalytics(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteJSON(w, http.StatusOK, analytics)
}

// HandleTopHotspots handles GET /analytics/top-hotspots
func (h *AnalyticsHandler) HandleTopHotspots(w http.ResponseWriter, r *http.Request) {
	hotspots, err := h.gateway.GetTopHotspots(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteList(w, hotspots)
}
