package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler serves GET /healthz.
type HealthHandler struct {
	checks map[string]HealthCheck
	logger *slog.Logger
}

// NewHealthHandler creates a handler running checks on every probe. With no
// checks it only reports that the process is up.
func NewHealthHandler(checks map[string]HealthCheck, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

// HealthResponse is the body of GET /healthz. Checks lists failing
// dependencies only.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleHealth answers 200 {"status":"ok"}, or 503 naming each failing check.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := map[string]string{}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("health check failed", slog.String("check", name), slog.String("error", err.Error()))
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		writeJSON(w, h.logger, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Checks: failed})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, HealthResponse{Status: "ok"})
}
