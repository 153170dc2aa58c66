// Package repository declares the storage contracts of the tracker.
//
// Two implementations live in sub-packages:
//   - sqlite   → database/sql + modernc.org/sqlite (default, single file)
//   - postgres → gorm + the pgx-backed postgres driver
//
// Services depend on these interfaces only, so tests swap in hand-written
// fakes and main picks the backend from config.
//
// ERROR CONTRACT:
// Implementations return *apperror.AppError values for the conditions a
// caller can act on (not found, duplicates, closed challenge, same-day
// resubmission). Everything else is a wrapped driver error.
package repository

import (
	"context"

	"github.com/sakif/challenge-tracker/internal/model"
)

// UserQuery filters and pages the admin user list.
type UserQuery struct {
	Search string // case-insensitive substring of "firstName lastName"
	Desc   bool   // order by first name descending
	Limit  int
	Offset int
}

// UserRepository stores registered participants.
type UserRepository interface {
	// CreateUser inserts u, filling ID and CreatedAt. A duplicate email
	// yields apperror.ErrConflict.
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUniqueCode(ctx context.Context, code string) (*model.User, error)
	UniqueCodeExists(ctx context.Context, code string) (bool, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	// ListUsers returns one page plus the number of users matching q.Search.
	ListUsers(ctx context.Context, q UserQuery) ([]model.User, int, error)
}

// ChallengeRepository stores monthly challenges.
type ChallengeRepository interface {
	// CurrentChallenge returns the challenge flagged current, or
	// apperror.ErrNoActiveChallenge.
	CurrentChallenge(ctx context.Context) (*model.Challenge, error)
	// GetChallenge resolves an id or a slug, or returns
	// apperror.ErrChallengeNotFound.
	GetChallenge(ctx context.Context, idOrSlug string) (*model.Challenge, error)
	// ListChallenges returns every challenge, newest created first.
	ListChallenges(ctx context.Context) ([]model.Challenge, error)
	// CreateMonthlyChallenge atomically clears current/acceptSubmission on
	// every existing challenge and inserts c as the new current one. If a
	// challenge for c.Month/c.Year already exists it returns
	// apperror.ErrConflict and changes nothing.
	CreateMonthlyChallenge(ctx context.Context, c *model.Challenge) error
	// CloseSubmissions clears acceptSubmission on one challenge.
	CloseSubmissions(ctx context.Context, id string) error
}

// SubmissionRepository stores daily submissions and the running totals they
// feed.
type SubmissionRepository interface {
	// RecordSubmission writes sub for userID against the current challenge
	// in one transaction:
	//
	//  1. load the current challenge (ErrNoActiveChallenge / ErrSubmissionsClosed)
	//  2. find or create the user's UserChallenge
	//  3. reject a second submission for sub.Day (ErrAlreadySubmittedToday)
	//  4. add sub.Points to TotalPoints and insert sub
	//
	// sub.Metrics, sub.Points, sub.Day and sub.Date must be set; ID and
	// UserChallengeID are filled in. The updated UserChallenge is returned.
	RecordSubmission(ctx context.Context, userID string, sub *model.TaskSubmission) (*model.UserChallenge, error)

	// ListEnrollments returns every UserChallenge of a challenge with its
	// user projection and all submissions, in enrollment order
	// (created_at, then id).
	ListEnrollments(ctx context.Context, challengeID string) ([]model.Enrollment, error)
}

// Store bundles the three repositories; both backends implement it.
type Store interface {
	UserRepository
	ChallengeRepository
	SubmissionRepository
	Ping(ctx context.Context) error
	Close() error
}
