package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/civic-dashboard/internal/adapters/primary/http/middleware"
	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/services"
)

var errSelfDelete = errors.New("cannot delete the signed-in user")

// AdminHandler manages operator accounts.
type AdminHandler struct {
	gateway      *services.Gateway
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewAdminHandler(gateway *services.Gateway, errorHandler *ErrorHandler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		gateway:      gateway,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "admin"),
	}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListUsers)
	r.Post("/", h.HandleCreateUser)
	r.Put("/{userID}", h.HandleUpdateUser)
	r.Delete("/{userID}", h.HandleDeleteUser)
}

// HandleListUsers handles GET /users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.gateway.ListUsers(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteList(w, users)
}

// HandleCreateUser handles POST /users
func (h *AdminHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[domain.UserParams](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if req.Email == "" && req.Phone == "" {
		errs := apperrors.NewValidationErrors()
		errs.Add("email", "Either email or phone is required")
		h.errorHandler.Handle(w, r, errs)
		return
	}

	user, err := h.gateway.CreateUser(r.Context(), req)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	h.logger.InfoContext(r.Context(), "user created", "target_user_id", user.ID, "role", user.Role)
	WriteCreated(w, user)
}

// HandleUpdateUser handles PUT /users/{userID}
func (h *AdminHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	req, err := decodeJSON[domain.UserParams](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	user, err := h.gateway.UpdateUser(r.Context(), id, req)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	h.logger.InfoContext(r.Context(), "user updated", "target_user_id", id, "role", user.Role)
	WriteJSON(w, http.StatusOK, user)
}

// HandleDeleteUser handles DELETE /users/{userID}
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if actor, ok := mw.GetUser(r.Context()); ok && actor.ID == id {
		h.errorHandler.Handle(w, r, apperrors.NewConflictError(errSelfDelete, "You cannot delete your own account"))
		return
	}

	if err := h.gateway.DeleteUser(r.Context(), id); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "user deleted", "target_user_id", id)
	WriteNoContent(w)
}
