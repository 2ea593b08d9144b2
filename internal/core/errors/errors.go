package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors - these classify every failure the dashboard core can surface
var (
	// Transport
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("action forbidden")

	// Remote application errors
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("resource conflict")
	ErrRemote     = errors.New("remote service error")

	// Local session errors (mock authentication path)
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrNoChallenge       = errors.New("no pending verification challenge")
	ErrChallengeExpired  = errors.New("verification code expired")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrInvalidToken      = errors.New("invalid session token")
	ErrInvalidState      = errors.New("operation not allowed in current session state")

	// Push channel
	ErrNoToken      = errors.New("no session token")
	ErrNotConnected = errors.New("push channel not connected")

	// Generic
	ErrTicketNotFound = errors.New("ticket not found")
	ErrWorkerNotFound = errors.New("worker not found")
	ErrInternal       = errors.New("internal error")
	ErrBadRequest     = errors.New("bad request")
	ErrRateLimited    = errors.New("rate limit exceeded")
)

// AppError wraps errors with the context needed to present them
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-facing message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NetworkError marks a request that never produced a response: connection
// refused, DNS failure or timeout. It always matches ErrNetworkUnavailable.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network unavailable: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetworkUnavailable, e.Err}
}

// IsNetworkUnavailable reports whether err carries the network-unavailable marker.
func IsNetworkUnavailable(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable)
}

func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: http.StatusBadRequest,
	}
}

func NewUnauthenticatedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthenticated,
		Message:    message,
		Code:       "UNAUTHENTICATED",
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: http.StatusForbidden,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: http.StatusNotFound,
	}
}

func NewConflictError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "CONFLICT",
		StatusCode: http.StatusConflict,
	}
}

func NewValidationError(err error, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		StatusCode: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: http.StatusTooManyRequests,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: http.StatusInternalServerError,
	}
}

// NewSessionError builds the user-facing error for a failed local session step.
func NewSessionError(err error) *AppError {
	message := err.Error()
	switch {
	case errors.Is(err, ErrUnknownIdentifier):
		message = "User not found. Try: admin@civic.com, superadmin@civic.com, or worker@civic.com"
	case errors.Is(err, ErrNoChallenge):
		message = "No pending verification. Please request a code first."
	case errors.Is(err, ErrChallengeExpired):
		message = "Verification code expired. Please request a new one."
	case errors.Is(err, ErrInvalidCode):
		message = "Invalid verification code."
	}
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "SESSION_ERROR",
		StatusCode: http.StatusUnauthorized,
	}
}

// FromStatus maps a remote HTTP status and message to an AppError so
// callers can match on the sentinel regardless of which layer produced it.
func FromStatus(status int, message string) *AppError {
	var (
		err  error
		code string
	)
	switch {
	case status == http.StatusUnauthorized:
		err, code = ErrUnauthenticated, "UNAUTHENTICATED"
	case status == http.StatusForbidden:
		err, code = ErrForbidden, "FORBIDDEN"
	case status == http.StatusNotFound:
		err, code = ErrNotFound, "NOT_FOUND"
	case status == http.StatusConflict:
		err, code = ErrConflict, "CONFLICT"
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		err, code = ErrValidation, "VALIDATION_ERROR"
	case status == http.StatusTooManyRequests:
		err, code = ErrRateLimited, "RATE_LIMITED"
	default:
		err, code = ErrRemote, "REMOTE_ERROR"
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       code,
		StatusCode: status,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}

// Is lets callers match ValidationErrors against ErrValidation.
func (v *ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}
