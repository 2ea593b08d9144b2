package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/civic-dashboard/internal/adapters/primary/http/middleware"
	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/services"
)

// AuthHandler exposes the one-time-code sign-in flow.
type AuthHandler struct {
	session        *services.SessionService
	authz          *services.AuthorizationService
	gateway        *services.Gateway
	requireSession func(http.Handler) http.Handler
	codeLimiter    *mw.RateLimitByKey
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. codeLimiter may be nil.
func NewAuthHandler(
	session *services.SessionService,
	authz *services.AuthorizationService,
	gateway *services.Gateway,
	requireSession func(http.Handler) http.Handler,
	codeLimiter *mw.RateLimitByKey,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		session:        session,
		authz:          authz,
		gateway:        gateway,
		requireSession: requireSession,
		codeLimiter:    codeLimiter,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "auth"),
	}
}

// RegisterRoutes registers the /auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.HandleLogin)
	r.Post("/verify", h.HandleVerify)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)
		r.Post("/logout", h.HandleLogout)
		r.Get("/me", h.HandleMe)
	})
}

// LoginRequest starts sign-in.
type LoginRequest struct {
	PhoneOrEmail string `json:"phoneOrEmail" validate:"required,max=255"`
}

// VerifyRequest completes sign-in.
type VerifyRequest struct {
	OTP string `json:"otp" validate:"required,max=12"`
}

// LoginResponse reports where the verification code came from.
type LoginResponse struct {
	Message string `json:"message"`
	Offline bool   `json:"offline"`
}

// SessionResponse describes the signed-in session.
type SessionResponse struct {
	Token   string        `json:"token,omitempty"`
	User    *domain.User  `json:"user"`
	Views   []domain.View `json:"views"`
	Offline bool          `json:"offline"`
	Mode    services.Mode `json:"mode"`
}

// ViewsResponse lists the sections the user may open.
type ViewsResponse struct {
	Views []domain.View `json:"views"`
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[LoginRequest](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if h.codeLimiter != nil && !h.codeLimiter.Allow(req.PhoneOrEmail) {
		h.errorHandler.Handle(w, r, apperrors.NewRateLimitError())
		return
	}

	if err := h.session.RequestCode(r.Context(), req.PhoneOrEmail); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	offline := h.session.IsOffline()
	message := "Verification code sent"
	if offline {
		message = "Verification code issued locally; the civic-issue service is unreachable"
	}
	WriteJSON(w, http.StatusOK, LoginResponse{Message: message, Offline: offline})
}

// HandleVerify handles POST /auth/verify
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[VerifyRequest](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	res, err := h.session.VerifyCode(r.Context(), req.OTP)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, SessionResponse{
		Token:   res.Token,
		User:    res.User,
		Views:   h.authz.Views(res.User),
		Offline: h.session.IsOffline(),
		Mode:    h.gateway.Mode(),
	})
}

// HandleLogout handles POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		// The session is gone in memory even if the persisted copy lingers.
		h.logger.WarnContext(r.Context(), "token store not cleared", "error", err)
	}
	WriteNoContent(w)
}

// HandleMe handles GET /auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := mw.GetUser(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.NewUnauthenticatedError("Not authorized"))
		return
	}
	WriteJSON(w, http.StatusOK, SessionResponse{
		User:    user,
		Views:   h.authz.Views(user),
		Offline: h.session.IsOffline(),
		Mode:    h.gateway.Mode(),
	})
}

// HandleViews handles GET /views
func (h *AuthHandler) HandleViews(w http.ResponseWriter, r *http.Request) {
	user, _ := mw.GetUser(r.Context())
	WriteJSON(w, http.StatusOK, ViewsResponse{Views: h.authz.Views(user)})
}
