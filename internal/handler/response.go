package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError, so the API has one
// content type and one error shape:
//
//	{"error": "Task already submitted today", "code": "already_submitted_today"}
//
// "error" is meant for direct display in the UI. "code" is stable and meant
// for programs.
//
// STATUS POLICY:
//   - any *apperror.AppError → 400 (the caller can fix or retry it)
//   - anything else          → 500 with a generic message; details go to the log only
//   - unsupported method     → 405 (Fallback.MethodNotAllowed)

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sakif/challenge-tracker/internal/apperror"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`           // human-readable
	Code  string `json:"code"`            // apperror.Kind
	Field string `json:"field,omitempty"` // offending field of a validation error
}

// MessageResponse is the body of the action endpoints that return nothing
// but a confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends data with the given status.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the first body byte is written;
// after that they are silently ignored. So data is encoded first, and an
// encoding failure still gets a proper 500.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"An internal error occurred","code":"internal_error"}` + "\n"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(raw, '\n')); err != nil {
		logger.Debug("failed to write response", slog.String("error", err.Error()))
	}
}

// writeError maps err to a status and the standard error body.
//
// errors.As walks the wrap chain, so a service returning
// fmt.Errorf("...: %w", apperror.NoActiveChallenge()) still maps to 400.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		resp := ErrorResponse{Error: appErr.Message, Code: apperror.Kind(err)}
		if errors.Is(err, apperror.ErrValidation) {
			resp.Field = appErr.Field
		}
		writeJSON(w, logger, http.StatusBadRequest, resp)
		return
	}

	// NEVER expose internal error details: they may carry SQL or file paths.
	logger.Error("request failed", slog.String("error", err.Error()))
	writeJSON(w, logger, http.StatusInternalServerError, ErrorResponse{
		Error: "An internal error occurred",
		Code:  "internal_error",
	})
}

// decodeJSON reads a JSON body into dst. A missing, oversized or malformed
// body is a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("body", "Request body is too large")
		}
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return apperror.ValidationFailed("body", "Request body is required")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// Fallback answers the requests no route handles: unknown paths, wrong
// methods, and clients the rate limiter turned away.
type Fallback struct {
	logger *slog.Logger
}

func NewFallback(logger *slog.Logger) *Fallback {
	return &Fallback{logger: logger}
}

// MethodNotAllowed answers requests whose path exists but whose method does
// not. Mounted as the router's MethodNotAllowed handler.
func (f *Fallback) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, f.logger, http.StatusMethodNotAllowed, ErrorResponse{
		Error: "Method " + r.Method + " not allowed",
		Code:  "method_not_allowed",
	})
}

// NotFound answers unknown paths.
func (f *Fallback) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, f.logger, http.StatusNotFound, ErrorResponse{
		Error: "Route not found",
		Code:  "route_not_found",
	})
}

// TooManyRequests answers requests refused by the rate limiter.
func (f *Fallback) TooManyRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, f.logger, http.StatusTooManyRequests, ErrorResponse{
		Error: "Too many requests, please try again later",
		Code:  "rate_limited",
	})
}
