package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/challenge-tracker/internal/auth"
	"github.com/sakif/challenge-tracker/internal/leaderboard"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/service"
)

// AccountService is what AccountHandler needs from service.AccountService.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, in service.Credentials) (*service.LoginResult, error)
	GetUniqueCode(ctx context.Context, in service.Credentials) (string, error)
	Me(ctx context.Context, userID string) (*model.User, error)
	ChangePassword(ctx context.Context, in service.ChangePasswordInput) error
	ListUsers(ctx context.Context, key string, q service.UserListQuery) (*service.UserPage, error)
}

// SessionConfig controls the session cookie written at login.
type SessionConfig struct {
	TTL    time.Duration
	Secure bool // set on HTTPS deployments
}

// AccountHandler manages registration, sessions and the admin user tools.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create a user and hand out their unique code
//   - HandleLogin          → check credentials, set the JWT cookie
//   - HandleLogout         → clear the JWT cookie
//   - HandleMe             → the logged-in user's profile
//   - HandleGetUniqueCode  → recover a forgotten unique code with email + password
//   - HandleChangePassword → admin resets a user's password
//   - HandleListUsers      → admin user list
type AccountHandler struct {
	accounts AccountService
	session  SessionConfig
	logger   *slog.Logger
}

func NewAccountHandler(accounts AccountService, session SessionConfig, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, session: session, logger: logger}
}

// RegisterResponse is the body of POST /register. The unique code is shown
// here once; afterwards only /get-unique-code reveals it.
type RegisterResponse struct {
	UniqueCode string      `json:"uniqueCode"`
	User       *model.User `json:"user"`
}

// LoginResponse is the body of POST /login.
type LoginResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// UniqueCodeResponse is the body of POST /get-unique-code.
type UniqueCodeResponse struct {
	UniqueCode string `json:"uniqueCode"`
}

// HandleRegister creates a participant.
//
// HTTP: POST /register
// REQUEST BODY: {"firstName", "lastName", "email", "password", "<profile links>", "phoneNumber"}
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	public := user.PublicUser()
	writeJSON(w, h.logger, http.StatusOK, RegisterResponse{UniqueCode: user.UniqueCode, User: &public})
}

// HandleLogin verifies credentials and sets the session cookie.
//
// HTTP: POST /login
// REQUEST BODY: {"email": "...", "password": "..."}
//
// The token travels only in an HttpOnly cookie: JavaScript never sees it, so
// an XSS bug cannot steal the session.
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.Credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.session.TTL, h.session.Secure)
	writeJSON(w, h.logger, http.StatusOK, LoginResponse{Message: "Login successful", User: res.User})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /logout
//
// Sessions are stateless JWTs, so logging out only removes the cookie. The
// token itself stays valid until it expires.
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// HandleMe returns the logged-in user.
//
// HTTP: GET /me (behind auth.RequireAuth)
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// RequireAuth should have stopped the request already.
		writeJSON(w, h.logger, http.StatusUnauthorized, ErrorResponse{Error: "Please log in to continue", Code: "unauthorized"})
		return
	}

	user, err := h.accounts.Me(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, user)
}

// HandleGetUniqueCode reveals a user's unique code.
//
// HTTP: POST /get-unique-code
// REQUEST BODY: {"email": "...", "password": "..."}
func (h *AccountHandler) HandleGetUniqueCode(w http.ResponseWriter, r *http.Request) {
	var in service.Credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	code, err := h.accounts.GetUniqueCode(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, UniqueCodeResponse{UniqueCode: code})
}

// HandleChangePassword sets a new password for any user.
//
// HTTP: POST /change-password
// REQUEST BODY: {"key": "<admin key>", "email": "...", "password": "..."}
func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in service.ChangePasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}

// HandleListUsers pages through all users ordered by first name.
//
// HTTP: GET /users?page=&pageSize=&searchQuery=&sortDir= (X-Admin-Key header, or ?key=)
func (h *AccountHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	page, pageSize := leaderboard.NormalizePaging(values.Get("page"), values.Get("pageSize"))

	res, err := h.accounts.ListUsers(r.Context(), auth.KeyFromRequest(r), service.UserListQuery{
		Page:     page,
		PageSize: pageSize,
		Search:   values.Get("searchQuery"),
		Desc:     strings.EqualFold(values.Get("sortDir"), "desc"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}
