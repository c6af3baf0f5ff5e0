package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/stockmarket/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v.
// It validates that the Content-Type header is application/json and
// returns an error for missing/incorrect content type or malformed JSON.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}

// pathID parses a positive integer URL parameter. On failure it writes a
// 400 response and returns false.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "validation_error", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// writeServiceError maps service errors to HTTP responses. Anything it
// does not recognize is logged and reported as a 500 without details.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		WriteError(w, http.StatusBadRequest, "validation_error", ve.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", "Order not found.")
	case errors.Is(err, domain.ErrStockNotFound):
		WriteError(w, http.StatusNotFound, "stock_not_found", "Stock not found.")
	case errors.Is(err, domain.ErrNotOrderOwner):
		WriteError(w, http.StatusForbidden, "not_order_owner", "Order belongs to another trader.")
	case errors.Is(err, domain.ErrTraderAlreadyExists):
		WriteError(w, http.StatusConflict, "trader_already_exists", "Tradername is already taken.")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid tradername or password.")
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrTraderNotFound):
		WriteError(w, http.StatusUnauthorized, "unauthenticated", "A valid session token is required.")
	default:
		logger.Error("request failed", slog.String("error", err.Error()))
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
