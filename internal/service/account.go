package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/auth"
	"github.com/sakif/challenge-tracker/internal/leaderboard"
	"github.com/sakif/challenge-tracker/internal/metrics"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
	"github.com/sakif/challenge-tracker/internal/validation"
)

// AccountService handles registration, login and the admin user tools.
//
// DEPENDENCIES (injected via NewAccountService):
//   - users      repository.UserRepository → user records
//   - tokens     *auth.TokenService        → session JWTs issued at login
//   - passwords  *auth.PasswordService     → bcrypt
//   - admin      *auth.AdminGate           → ChangePassword, ListUsers
type AccountService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	admin     *auth.AdminGate
	logger    *slog.Logger
}

func NewAccountService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	admin *auth.AdminGate,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		admin:     admin,
		logger:    logger,
	}
}

// RegisterInput is the body of POST /register.
type RegisterInput struct {
	FirstName              string `json:"firstName"              validate:"required,max=100"`
	LastName               string `json:"lastName"               validate:"required,max=100"`
	Email                  string `json:"email"                  validate:"required,email,max=254"`
	Password               string `json:"password"               validate:"required,min=6,max=72"`
	LinkedInLink           string `json:"linkedInLink"           validate:"max=500"`
	UpworkLink             string `json:"upworkLink"             validate:"max=500"`
	FacebookLink           string `json:"facebookLink"           validate:"max=500"`
	TwitterLink            string `json:"twitterLink"            validate:"max=500"`
	FunnelLink             string `json:"funnelLink"             validate:"max=500"`
	MediumLink             string `json:"mediumLink"             validate:"max=500"`
	GoHighLevelAccountName string `json:"goHighLevelAccountName" validate:"max=200"`
	PhoneNumber            string `json:"phoneNumber"            validate:"max=32"`
}

// Credentials is the body of POST /login and POST /get-unique-code.
type Credentials struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult bundles the user and the session token so the handler can set
// the cookie and respond in one step.
type LoginResult struct {
	User  *model.User
	Token string
}

// Register creates a user with a fresh unique code.
//
// The email check runs before a code is drawn, so a duplicate registration
// never consumes one. The repository's UNIQUE(email) still catches two
// concurrent registrations with the same address.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validation.ValidateStruct(&in); err != nil {
		return nil, err
	}

	_, err := s.users.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return nil, apperror.AlreadyExists("Email already exists")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/account: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/account: hashing password: %w", err)
	}

	code, err := auth.NewUniqueCode(ctx, s.users.UniqueCodeExists)
	if err != nil {
		return nil, fmt.Errorf("service/account: %w", err)
	}

	user := &model.User{
		UniqueCode:             code,
		FirstName:              in.FirstName,
		LastName:               in.LastName,
		Email:                  in.Email,
		PasswordHash:           hash,
		LinkedInLink:           in.LinkedInLink,
		UpworkLink:             in.UpworkLink,
		FacebookLink:           in.FacebookLink,
		TwitterLink:            in.TwitterLink,
		FunnelLink:             in.FunnelLink,
		MediumLink:             in.MediumLink,
		GoHighLevelAccountName: in.GoHighLevelAccountName,
		PhoneNumber:            in.PhoneNumber,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: creating user: %w", err)
	}

	metrics.RegistrationsTotal.Inc()
	s.logger.Info("user registered", slog.String("userID", user.ID))
	return user, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password fail identically.
func (s *AccountService) Login(ctx context.Context, in Credentials) (*LoginResult, error) {
	user, err := s.authenticate(ctx, in, apperror.InvalidCredentials())
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: issuing token for %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	public := user.PublicUser()
	return &LoginResult{User: &public, Token: token}, nil
}

// GetUniqueCode returns a user's submission code after checking their
// password.
func (s *AccountService) GetUniqueCode(ctx context.Context, in Credentials) (string, error) {
	user, err := s.authenticate(ctx, in,
		apperror.NotFoundMessage("User not found with this details, kindly confirim and try again!"))
	if err != nil {
		return "", err
	}
	return user.UniqueCode, nil
}

// authenticate returns the user matching the credentials, or fail for an
// unknown email or a wrong password.
func (s *AccountService) authenticate(ctx context.Context, in Credentials, fail error) (*model.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validation.ValidateStruct(&in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, fail
	}
	if err != nil {
		return nil, fmt.Errorf("service/account: looking up email: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, fail
		}
		return nil, fmt.Errorf("service/account: verifying password: %w", err)
	}
	return user, nil
}

// Me returns the logged-in user without the unique code.
func (s *AccountService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	public := user.PublicUser()
	return &public, nil
}

// ChangePasswordInput is the body of POST /change-password.
type ChangePasswordInput struct {
	Key      string `json:"key"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// ChangePassword lets the admin set a new password for any user.
func (s *AccountService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	if err := s.admin.Check(in.Key); err != nil {
		return err
	}
	in.Email = normalizeEmail(in.Email)
	if err := validation.ValidateStruct(&in); err != nil {
		return err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.NotFoundMessage("User with this email does not exists")
	}
	if err != nil {
		return fmt.Errorf("service/account: looking up email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("service/account: hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("service/account: updating password: %w", err)
	}

	s.logger.Info("password reset by admin", slog.String("userID", user.ID))
	return nil
}

// UserListQuery pages the admin user list.
type UserListQuery struct {
	Page     int
	PageSize int
	Search   string
	Desc     bool
}

// UserPage is the response of GET /users.
type UserPage struct {
	Users      []model.User           `json:"users"`
	Pagination leaderboard.Pagination `json:"pagination"`
}

// ListUsers returns one page of users ordered by first name, unique codes
// included.
func (s *AccountService) ListUsers(ctx context.Context, key string, q UserListQuery) (*UserPage, error) {
	if err := s.admin.Check(key); err != nil {
		return nil, err
	}

	users, total, err := s.users.ListUsers(ctx, repository.UserQuery{
		Search: strings.TrimSpace(q.Search),
		Desc:   q.Desc,
		Limit:  q.PageSize,
		Offset: q.Page * q.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("service/account: listing users: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}

	return &UserPage{
		Users: users,
		Pagination: leaderboard.Pagination{
			Total:      total,
			PageSize:   q.PageSize,
			Page:       q.Page,
			TotalPages: leaderboard.TotalPages(total, q.PageSize),
		},
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
