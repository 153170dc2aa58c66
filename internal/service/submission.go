package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/metrics"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
	"github.com/sakif/challenge-tracker/internal/scoring"
)

// Invalidator drops cached leaderboard pages of a challenge.
// *leaderboard.Service implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, challengeID string)
}

// SubmissionService records daily task submissions.
type SubmissionService struct {
	users       repository.UserRepository
	submissions repository.SubmissionRepository
	board       Invalidator
	loc         *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

// NewSubmissionService creates a SubmissionService. loc decides where one
// calendar day ends and the next begins.
func NewSubmissionService(
	users repository.UserRepository,
	submissions repository.SubmissionRepository,
	board Invalidator,
	loc *time.Location,
	logger *slog.Logger,
) *SubmissionService {
	if loc == nil {
		loc = time.Local
	}
	return &SubmissionService{
		users:       users,
		submissions: submissions,
		board:       board,
		loc:         loc,
		now:         time.Now,
		logger:      logger,
	}
}

// SubmissionResult is what a successful Submit hands back.
type SubmissionResult struct {
	UserChallenge *model.UserChallenge
	Points        int64
	Day           string
}

// Submit records today's metrics for the user owning uniqueCode.
//
// The order of checks is: code resolves to a user (NotFound), a challenge is
// current (NoActiveChallenge), it accepts submissions (SubmissionsClosed),
// nothing was submitted today (AlreadySubmittedToday). The last three, the
// total increment and the insert all run in one repository transaction.
func (s *SubmissionService) Submit(ctx context.Context, uniqueCode string, m model.TaskMetrics) (*SubmissionResult, error) {
	uniqueCode = strings.TrimSpace(uniqueCode)
	if uniqueCode == "" {
		return nil, s.reject(apperror.ValidationFailed("uniqueCode", "uniqueCode is required"))
	}

	user, err := s.users.GetUserByUniqueCode(ctx, uniqueCode)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, s.reject(apperror.NotFoundMessage("Unique code does not exist, kindly confirim and try again!"))
	}
	if err != nil {
		return nil, fmt.Errorf("service/submission: looking up code: %w", err)
	}

	now := s.now()
	sub := &model.TaskSubmission{
		Metrics: m,
		Points:  scoring.Points(m),
		Day:     Day(now, s.loc),
		Date:    now.UTC(),
	}

	uc, err := s.submissions.RecordSubmission(ctx, user.ID, sub)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, s.reject(err)
		}
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("service/submission: recording for user %s: %w", user.ID, err)
	}

	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	metrics.SubmissionPoints.Add(float64(sub.Points))

	s.logger.Info("task submitted",
		slog.String("userID", user.ID),
		slog.String("challengeID", uc.ChallengeID),
		slog.String("day", sub.Day),
		slog.Int64("points", sub.Points),
		slog.Int64("totalPoints", uc.TotalPoints),
	)

	s.board.Invalidate(ctx, uc.ChallengeID)

	return &SubmissionResult{UserChallenge: uc, Points: sub.Points, Day: sub.Day}, nil
}

// reject counts a refused submission by its error kind.
func (s *SubmissionService) reject(err error) error {
	metrics.SubmissionsTotal.WithLabelValues(apperror.Kind(err)).Inc()
	return err
}
