package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/scoring"
	"github.com/sakif/challenge-tracker/internal/service"
)

// SubmissionService is what SubmissionHandler needs from
// service.SubmissionService.
type SubmissionService interface {
	Submit(ctx context.Context, uniqueCode string, m model.TaskMetrics) (*service.SubmissionResult, error)
}

// SubmissionHandler accepts the daily task form.
type SubmissionHandler struct {
	submissions SubmissionService
	logger      *slog.Logger
}

func NewSubmissionHandler(submissions SubmissionService, logger *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, logger: logger}
}

// HandleSubmit records today's metrics.
//
// HTTP: POST /task-submission
// REQUEST BODY: {"uniqueCode": "ABC123", "upworkOutreach": 2, "noOfClients": "1", ...}
//
// WHY DECODE INTO A MAP?
// Form clients send counts as numbers or as strings, and sometimes leave a
// field empty. Decoding into map[string]any and running scoring.FromValues
// accepts all of those. A typed struct would reject "1" outright.
func (h *SubmissionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}

	code := uniqueCodeFrom(body["uniqueCode"])
	if _, err := h.submissions.Submit(r.Context(), code, scoring.FromValues(body)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Task submitted successfully"})
}

// uniqueCodeFrom accepts the code as a string or as a bare number, since a
// code made only of digits is easy to send unquoted. Anything else is "".
func uniqueCodeFrom(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return ""
}
