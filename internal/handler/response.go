package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
//   writeJSON(w, http.StatusOK, data)
//   writeError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "validation_error", "message": "Title must be at least 3 characters.",
//    "errors": ["Title must be at least 3 characters.", "Content must be at least 20 characters."]}
//
// "message" is always the first entry of "errors", so a client that only
// shows one line still shows the most relevant one.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/fileblog/internal/apperror"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 300 << 10

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string   `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string   `json:"message"` // Human-readable description
	Errors  []string `json:"errors"`  // Every problem found, Message first
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are sent.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error to an HTTP status and a machine-readable kind.
//
// errors.Is() walks the whole chain, so this works no matter how many
// fmt.Errorf("...: %w") layers the service added on the way up.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrBusy):
		return http.StatusServiceUnavailable, "busy"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// WHY HERE AND NOT IN THE SERVICE?
// The service layer should not know about HTTP status codes. It returns
// apperror values; this is the one place they become 400/401/403/404/503.
func writeError(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)

	// A corrupt store or an I/O failure is a 500. NEVER expose the raw error:
	// it can carry file paths or SQL. Log it instead.
	if status == http.StatusInternalServerError {
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, status, ErrorResponse{
			Error:   kind,
			Message: "An internal error occurred",
			Errors:  []string{"An internal error occurred"},
		})
		return
	}

	msg := err.Error()
	details := []string{msg}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
		details = []string{msg}
		if len(appErr.Details) > 0 {
			details = appErr.Details
		}
	}

	writeJSON(w, status, ErrorResponse{
		Error:   kind,
		Message: msg,
		Errors:  details,
	})
}

// decodeJSON reads a size-capped JSON body into dst.
//
// http.MaxBytesReader stops reading after MaxBodyBytes and makes Decode fail
// with *http.MaxBytesError, which becomes a 413 here.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		msg := fmt.Sprintf("Request body too large (max %d bytes).", tooBig.Limit)
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "payload_too_large",
			Message: msg,
			Errors:  []string{msg},
		})
		return false
	}

	msg := "Invalid JSON body."
	if errors.Is(err, io.EOF) {
		msg = "Request body is required."
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: msg,
		Errors:  []string{msg},
	})
	return false
}
