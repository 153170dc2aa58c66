package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/challenge-tracker/internal/auth"
	"github.com/sakif/challenge-tracker/internal/leaderboard"
)

// LeaderboardService is what LeaderboardHandler needs from
// leaderboard.Service.
type LeaderboardService interface {
	Leaderboard(ctx context.Context, q leaderboard.Query) (*leaderboard.Page, error)
	Browse(ctx context.Context, from, step string) (leaderboard.Browse, error)
}

// AdminChecker validates the shared admin key; *auth.AdminGate implements it.
type AdminChecker interface {
	Check(key string) error
}

// LeaderboardHandler serves the standings and month browsing.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLeaderboard      → public standings of one challenge
//   - HandleAdminLeaderboard → the same with unique codes (admin key required)
//   - HandleBrowse           → step through challenges month by month
//
// Handlers only translate HTTP to leaderboard.Query and back. Filtering,
// sorting, ranking and paging all happen in the leaderboard package.
type LeaderboardHandler struct {
	board  LeaderboardService
	admin  AdminChecker
	logger *slog.Logger
}

func NewLeaderboardHandler(board LeaderboardService, admin AdminChecker, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{board: board, admin: admin, logger: logger}
}

// HandleLeaderboard returns one page of a challenge's standings.
//
// HTTP: GET /leaderboard?challengeId=&page=&pageSize=&searchQuery=&sortBy=&sortDir=
//
// QUERY PARAMETERS (all optional):
//
//	challengeId  id or slug; empty means the current challenge
//	page         0-based, default 0
//	pageSize     default 10, capped at 100
//	searchQuery  case-insensitive substring of "first last"
//	sortBy       totalPoints or any metric name; unknown keys fall back to totalPoints
//	sortDir      "asc" or "desc" (default)
//
// Invalid paging values fall back to defaults instead of failing: the page is
// a view, and a bad link should still show something.
func (h *LeaderboardHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, false)
}

// HandleAdminLeaderboard is HandleLeaderboard with each row's unique code.
//
// HTTP: GET /admin/leaderboard (X-Admin-Key header, or ?key=)
func (h *LeaderboardHandler) HandleAdminLeaderboard(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Check(auth.KeyFromRequest(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.serve(w, r, true)
}

func (h *LeaderboardHandler) serve(w http.ResponseWriter, r *http.Request, admin bool) {
	page, err := h.board.Leaderboard(r.Context(), parseQuery(r, admin))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, page)
}

// parseQuery turns the query string into a normalized leaderboard.Query.
func parseQuery(r *http.Request, admin bool) leaderboard.Query {
	values := r.URL.Query()
	page, pageSize := leaderboard.NormalizePaging(values.Get("page"), values.Get("pageSize"))
	sortBy, desc := leaderboard.ResolveSort(values.Get("sortBy"), values.Get("sortDir"))

	return leaderboard.Query{
		ChallengeID: values.Get("challengeId"),
		Page:        page,
		PageSize:    pageSize,
		Search:      values.Get("searchQuery"),
		SortBy:      sortBy,
		Desc:        desc,
		Admin:       admin,
	}
}

// HandleBrowse moves the month cursor.
//
// HTTP: GET /challenges/browse?challengeId=&step=prev|next
//
// Without challengeId the cursor starts at the newest challenge. "prev" goes
// to the older month, "next" to the newer one; both stop at the ends.
func (h *LeaderboardHandler) HandleBrowse(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	b, err := h.board.Browse(r.Context(), values.Get("challengeId"), values.Get("step"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, b)
}
