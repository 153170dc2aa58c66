package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/challenge-tracker/internal/model"
)

// ChallengeService is what ChallengeHandler needs from
// service.ChallengeService.
type ChallengeService interface {
	List(ctx context.Context) ([]model.Challenge, error)
	CreateMonthly(ctx context.Context, key string) (*model.Challenge, error)
	CloseSubmissions(ctx context.Context, key, challengeID string) ([]model.Challenge, error)
}

// ChallengeHandler lists challenges and runs the admin challenge actions.
type ChallengeHandler struct {
	challenges ChallengeService
	logger     *slog.Logger
}

func NewChallengeHandler(challenges ChallengeService, logger *slog.Logger) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, logger: logger}
}

// ChallengesResponse is the body of GET /challenges and of
// POST /turn-off-submission.
type ChallengesResponse struct {
	Challenges []model.Challenge `json:"challenges"`
}

// CreateChallengeResponse is the body of POST /create-challenge.
type CreateChallengeResponse struct {
	Message   string           `json:"message"`
	Challenge *model.Challenge `json:"challenge"`
}

type adminKeyRequest struct {
	Key string `json:"key"`
}

type turnOffRequest struct {
	Key         string `json:"key"`
	ChallengeID string `json:"challengeId"`
}

// HandleList returns every challenge, newest first.
//
// HTTP: GET /challenges
func (h *ChallengeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.challenges.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ChallengesResponse{Challenges: challenges})
}

// HandleCreate opens the challenge for the current month.
//
// HTTP: POST /create-challenge
// REQUEST BODY: {"key": "<admin key>"}
//
// The month is always the current one in the server's time zone; the body
// carries nothing else. A second call in the same month fails with
// already_exists and leaves the existing challenge untouched.
func (h *ChallengeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req adminKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.challenges.CreateMonthly(r.Context(), req.Key)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, CreateChallengeResponse{
		Message:   "Challenge created successfully",
		Challenge: c,
	})
}

// HandleTurnOffSubmission stops a challenge from accepting submissions.
//
// HTTP: POST /turn-off-submission
// REQUEST BODY: {"key": "<admin key>", "challengeId": "..."}
//
// Responds with the refreshed challenge list so an admin screen can redraw
// without a second request.
func (h *ChallengeHandler) HandleTurnOffSubmission(w http.ResponseWriter, r *http.Request) {
	var req turnOffRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	challenges, err := h.challenges.CloseSubmissions(r.Context(), req.Key, req.ChallengeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ChallengesResponse{Challenges: challenges})
}
