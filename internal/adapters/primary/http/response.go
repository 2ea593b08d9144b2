package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/validation"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// ListResponse wraps a list of items (non-paginated)
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// MessageResponse carries a short confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The header is already sent; nothing useful can be done on failure.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteCreated writes a created response
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a no content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteList writes a simple list response
func WriteList[T any](w http.ResponseWriter, data []T) {
	if data == nil {
		data = []T{}
	}
	WriteJSON(w, http.StatusOK, ListResponse[T]{
		Data:  data,
		Count: len(data),
	})
}

// decodeJSON reads a bounded JSON body into T and validates it.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return v, apperrors.NewBadRequestError(err, "Request body is required")
		case errors.As(err, &maxErr):
			return v, apperrors.NewBadRequestError(err, "Request body is too large")
		default:
			return v, apperrors.NewBadRequestError(err, fmt.Sprintf("Malformed JSON: %v", err))
		}
	}
	if dec.More() {
		return v, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "Request body must contain a single JSON object")
	}
	if err := validation.Struct(v); err != nil {
		return v, err
	}
	return v, nil
}

// parseID reads a positive integer path parameter.
func parseID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		errs := apperrors.NewValidationErrors()
		errs.Add(param, "Must be a positive integer")
		return 0, errs
	}
	return id, nil
}
