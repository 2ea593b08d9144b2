package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
	"github.com/lorrc/civic-dashboard/internal/core/services"
)

// WorkerHandler serves the field worker roster and department list.
type WorkerHandler struct {
	gateway      *services.Gateway
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewWorkerHandler(gateway *services.Gateway, errorHandler *ErrorHandler, logger *slog.Logger) *WorkerHandler {
	return &WorkerHandler{
		gateway:      gateway,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "worker"),
	}
}

// RegisterRoutes registers the /workers routes.
func (h *WorkerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListWorkers)
	r.Get("/{workerID}", h.HandleGetWorker)
	r.Patch("/{workerID}/status", h.HandleUpdateStatus)
}

// HandleListWorkers handles GET /workers
func (h *WorkerHandler) HandleListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.gateway.ListWorkers(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteList(w, workers)
}

// HandleGetWorker handles GET /workers/{workerID}
func (h *WorkerHandler) HandleGetWorker(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "workerID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	worker, err := h.gateway.GetWorker(r.Context(), id)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteJSON(w, http.StatusOK, worker)
}

// HandleUpdateStatus handles PATCH /workers/{workerID}/status
func (h *WorkerHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "workerID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	req, err := decodeJSON[ports.WorkerStatusParams](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if err := h.gateway.UpdateWorkerStatus(r.Context(), id, req); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "worker status changed", "worker_id", id, "status", req.Status)
	WriteNoContent(w)
}

// HandleListDepartments handles GET /departments
func (h *WorkerHandler) HandleListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.gateway.ListDepartments(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteList(w, departments)
}
