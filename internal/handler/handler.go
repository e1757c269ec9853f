// Package handler contains the HTTP layer: request decoding, validation
// and translation of domain errors into status codes. Business rules
// live in the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/pagebound/pagebound/internal/domain"
	"github.com/pagebound/pagebound/internal/service"
)

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ENOTIMPL:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse writes an error as a JSON body with the mapped status
// code. Typed service errors carry customer-facing messages and map to
// 409; everything else goes through the domain error code.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeError(w, http.StatusConflict, domain.ECONFLICT, stockErr.Error())
		return
	}

	var unavailableErr *service.BookUnavailableError
	if errors.As(err, &unavailableErr) {
		writeError(w, http.StatusConflict, domain.ECONFLICT, unavailableErr.Error())
		return
	}

	var transitionErr *domain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		writeError(w, http.StatusConflict, domain.ECONFLICT, transitionErr.Error())
		return
	}

	code := domain.ErrorCode(err)
	writeError(w, ErrorCodeToHTTPStatus(code), code, domain.ErrorMessage(err))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		// encoding failures at this point are unrecoverable; headers are sent
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Invalid("", "Invalid JSON body")
	}
	return nil
}

// ownerKey identifies the cart owner: the authenticated user when
// present, otherwise the guest session key. Authentication itself is
// handled upstream; this layer trusts the forwarded headers.
func ownerKey(r *http.Request) string {
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		return userID
	}
	return r.Header.Get("X-Session-Key")
}

// userID returns the authenticated user, or empty for guests.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func queryInt(r *http.Request, key string, fallback int64) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
