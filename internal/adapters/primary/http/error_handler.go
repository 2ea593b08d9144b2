package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lorrc/civic-dashboard/internal/adapters/secondary/remote"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
)

// ErrorResponse is the standard JSON error response format
type ErrorResponse struct {
	Error    string         `json:"error"`
	Code     string         `json:"code,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Redirect string         `json:"redirect,omitempty"`
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler with the given logger
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle processes an error and writes the appropriate HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	status, response := h.resolve(err)
	if status == http.StatusUnauthorized {
		response.Redirect = remote.LoginPath
	}
	h.logError(r, status, err)
	WriteJSON(w, status, response)
}

func (h *ErrorHandler) resolve(err error) (int, ErrorResponse) {
	var validationErrs *apperrors.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make(map[string]any, len(validationErrs.Errors))
		for field, messages := range validationErrs.Errors {
			details[field] = messages
		}
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "Validation failed",
			Code:    "VALIDATION_ERROR",
			Details: details,
		}
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := appErr.StatusCode
		code := appErr.Code
		switch {
		case errors.Is(appErr, apperrors.ErrRemote):
			// The browser talks to us, not to the remote.
			status, code = http.StatusBadGateway, "REMOTE_ERROR"
		case status == 0:
			status = http.StatusInternalServerError
		}
		return status, ErrorResponse{
			Error:   appErr.Message,
			Code:    code,
			Details: appErr.Details,
		}
	}

	return mapDomainError(err)
}

// mapDomainError converts bare sentinel errors to HTTP status codes and responses
func mapDomainError(err error) (int, ErrorResponse) {
	switch {
	case apperrors.IsNetworkUnavailable(err):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error: "The civic-issue service is unreachable. Try again shortly.",
			Code:  "NETWORK_UNAVAILABLE",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error: "The request timed out",
			Code:  "TIMEOUT",
		}
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error: "The request was canceled",
			Code:  "CANCELED",
		}

	case errors.Is(err, apperrors.ErrUnauthenticated),
		errors.Is(err, apperrors.ErrNoToken),
		errors.Is(err, apperrors.ErrInvalidToken):
		return http.StatusUnauthorized, ErrorResponse{
			Error: "Authentication required",
			Code:  "UNAUTHENTICATED",
		}
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{
			Error: "You do not have permission to perform this action",
			Code:  "FORBIDDEN",
		}

	case errors.Is(err, apperrors.ErrTicketNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Ticket not found",
			Code:  "TICKET_NOT_FOUND",
		}
	case errors.Is(err, apperrors.ErrWorkerNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Worker not found",
			Code:  "WORKER_NOT_FOUND",
		}
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Resource not found",
			Code:  "NOT_FOUND",
		}

	case errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrInvalidState):
		return http.StatusConflict, ErrorResponse{
			Error: err.Error(),
			Code:  "CONFLICT",
		}
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "BAD_REQUEST",
		}
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorResponse{
			Error: "Too many requests. Please try again later.",
			Code:  "RATE_LIMITED",
		}
	case errors.Is(err, apperrors.ErrNotConnected):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error: "Live updates are not connected",
			Code:  "PUSH_DISCONNECTED",
		}

	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: "An unexpected error occurred",
			Code:  "INTERNAL_ERROR",
		}
	}
}

// logError logs the error; the request id comes from the context.
func (h *ErrorHandler) logError(r *http.Request, statusCode int, err error) {
	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", statusCode,
		"error", err.Error(),
	}

	switch {
	case statusCode >= 500:
		h.logger.ErrorContext(r.Context(), "server error", attrs...)
	case statusCode >= 400:
		h.logger.WarnContext(r.Context(), "client error", attrs...)
	default:
		h.logger.InfoContext(r.Context(), "request error", attrs...)
	}
}

// HandleError Helper function to handle errors inline in handlers
// Usage: if HandleError(w, r, err, h.errorHandler) { return }
func HandleError(w http.ResponseWriter, r *http.Request, err error, handler *ErrorHandler) bool {
	if err != nil {
		handler.Handle(w, r, err)
		return true
	}
	return false
}
