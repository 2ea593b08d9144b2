package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
	"github.com/lorrc/civic-dashboard/internal/core/services"
)

// TicketHandler handles HTTP requests for tickets
type TicketHandler struct {
	gateway      *services.Gateway
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(gateway *services.Gateway, errorHandler *ErrorHandler, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		gateway:      gateway,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "ticket"),
	}
}

// RegisterRoutes sets up the routing for all ticket endpoints.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTickets)
	r.Get("/hotspots", h.HandleHotspots)
	r.Post("/bulk-assign", h.HandleBulkAssign)
	r.Post("/bulk-status", h.HandleBulkStatus)

	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Post("/assign", h.HandleAssignTicket)
		r.Patch("/status", h.HandleUpdateStatus)
		r.Post("/comments", h.HandleAddComment)
	})
}

// HandleListTickets handles GET /tickets
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	filters, err := domain.ParseTicketFilters(r.URL.Query())
	if err != nil {
		errs := apperrors.NewValidationErrors()
		errs.Add("query", err.Error())
		h.errorHandler.Handle(w, r, errs)
		return
	}

	page, err := h.gateway.ListTickets(r.Context(), filters)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if page.Items == nil {
		page.Items = []domain.Ticket{}
	}
	WriteJSON(w, http.StatusOK, page)
}

// HandleHotspots handles GET /tickets/hotspots?bbox=minLng,minLat,maxLng,maxLat
func (h *TicketHandler) HandleHotspots(w http.ResponseWriter, r *http.Request) {
	var bbox *domain.BoundingBox
	if raw := r.URL.Query().Get("bbox"); raw != "" {
		b, err := domain.ParseBoundingBox(raw)
		if err != nil {
			errs := apperrors.NewValidationErrors()
			errs.Add("bbox", err.Error())
			h.errorHandler.Handle(w, r, errs)
			return
		}
		bbox = b
	}

	hotspots, err := h.gateway.GetHotspots(r.Context(), bbox)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteList(w, hotspots)
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "ticketID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	ticket, err := h.gateway.GetTicket(r.Context(), id)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteJSON(w, http.StatusOK, ticket)
}

// HandleAssignTicket handles POST /tickets/{ticketID}/assign
func (h *TicketHandler) HandleAssignTicket(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "ticketID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	req, err := decodeJSON[ports.AssignTicketParams](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if err := h.gateway.AssignTicket(r.Context(), id, req); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "ticket assigned", "ticket_id", id, "dept", req.AssignedDept)
	WriteNoContent(w)
}

// HandleUpdateStatus handles PATCH /tickets/{ticketID}/status
func (h *TicketHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "ticketID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	req, err := decodeJSON[ports.UpdateStatusParams](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if err := h.gateway.UpdateTicketStatus(r.Context(), id, req); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "ticket status changed", "ticket_id", id, "status", req.Status)
	WriteNoContent(w)
}

// HandleAddComment handles POST /tickets/{ticketID}/comments
func (h *TicketHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "ticketID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	req, err := decodeJSON[ports.AddCommentParams](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if err := h.gateway.AddComment(r.Context(), id, req); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteNoContent(w)
}

// HandleBulkAssign handles POST /tickets/bulk-assign
func (h *TicketHandler) HandleBulkAssign(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[ports.BulkAssignParams](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if err := h.gateway.BulkAssign(r.Context(), req); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "tickets assigned", "count", len(req.TicketIDs))
	WriteNoContent(w)
}

// HandleBulkStatus handles POST /tickets/bulk-status
func (h *TicketHandler) HandleBulkStatus(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[ports.BulkStatusParams](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if err := h.gateway.BulkUpdateStatus(r.Context(), req); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "ticket statuses changed", "count", len(req.TicketIDs), "status", req.Status)
	WriteNoContent(w)
}
