package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	"github.com/lorrc/civic-dashboard/internal/core/services"
	"github.com/lorrc/civic-dashboard/internal/core/viewmodel"
)

// DashboardHandler serves the reconciled view models.
type DashboardHandler struct {
	loader       *services.PageLoader
	reconciler   *viewmodel.Reconciler
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewDashboardHandler(loader *services.PageLoader, reconciler *viewmodel.Reconciler, errorHandler *ErrorHandler, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		loader:       loader,
		reconciler:   reconciler,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "dashboard"),
	}
}

// NotificationsResponse is the notification feed.
type NotificationsResponse struct {
	Data   []domain.Notification `json:"data"`
	Unread int                   `json:"unread"`
}

// HandleDashboard handles GET /dashboard. It reloads every source unless
// ?cached=true asks for the current view models as they are.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if cached, _ := strconv.ParseBool(r.URL.Query().Get("cached")); cached {
		WriteJSON(w, http.StatusOK, h.loader.Snapshot())
		return
	}

	dashboard, err := h.loader.LoadDashboard(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteJSON(w, http.StatusOK, dashboard)
}

// HandleNotifications handles GET /notifications
func (h *DashboardHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	items := h.reconciler.Feed.Items()
	if items == nil {
		items = []domain.Notification{}
	}
	WriteJSON(w, http.StatusOK, NotificationsResponse{
		Data:   items,
		Unread: h.reconciler.Feed.Unread(),
	})
}

// HandleMarkAllRead handles POST /notifications/read-all
func (h *DashboardHandler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	h.reconciler.Feed.MarkAllRead()
	WriteNoContent(w)
}
