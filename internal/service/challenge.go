package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gosimple/slug"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/auth"
	"github.com/sakif/challenge-tracker/internal/metrics"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
)

// ChallengeService manages monthly challenges.
//
// Admin operations (CreateMonthly, CloseSubmissions) check the key first and
// touch nothing on a mismatch. The scheduler uses EnsureMonthly and
// CloseExpired, which need no key.
type ChallengeService struct {
	challenges repository.ChallengeRepository
	admin      *auth.AdminGate
	loc        *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

func NewChallengeService(
	challenges repository.ChallengeRepository,
	admin *auth.AdminGate,
	loc *time.Location,
	logger *slog.Logger,
) *ChallengeService {
	if loc == nil {
		loc = time.Local
	}
	return &ChallengeService{
		challenges: challenges,
		admin:      admin,
		loc:        loc,
		now:        time.Now,
		logger:     logger,
	}
}

// NewMonthlyChallenge builds the challenge for the month containing now:
// it starts today and ends on the last calendar day of the month, both at
// midnight in loc.
func NewMonthlyChallenge(now time.Time, loc *time.Location) model.Challenge {
	local := now.In(loc)
	year, month, day := local.Date()

	start := time.Date(year, month, day, 0, 0, 0, 0, loc)
	// Day 0 of the next month is the last day of this one.
	end := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)

	return model.Challenge{
		Slug:             slug.Make(fmt.Sprintf("%s %d", month, year)),
		Month:            month.String(),
		Year:             year,
		StartDate:        start,
		EndDate:          end,
		Current:          true,
		AcceptSubmission: true,
	}
}

// CreateMonthly opens this month's challenge and makes it the only current
// one. It fails with AlreadyExists when the month already has a challenge.
func (s *ChallengeService) CreateMonthly(ctx context.Context, key string) (*model.Challenge, error) {
	if err := s.admin.Check(key); err != nil {
		return nil, err
	}
	return s.create(ctx, "admin")
}

// EnsureMonthly creates this month's challenge unless one exists. created
// is false when there was nothing to do.
func (s *ChallengeService) EnsureMonthly(ctx context.Context) (c *model.Challenge, created bool, err error) {
	c, err = s.create(ctx, "scheduler")
	if errors.Is(err, apperror.ErrConflict) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (s *ChallengeService) create(ctx context.Context, trigger string) (*model.Challenge, error) {
	c := NewMonthlyChallenge(s.now(), s.loc)

	if err := s.challenges.CreateMonthlyChallenge(ctx, &c); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("service/challenge: creating %s: %w", c.Slug, err)
	}

	metrics.ChallengesCreated.WithLabelValues(trigger).Inc()
	s.logger.Info("challenge created",
		slog.String("challengeID", c.ID),
		slog.String("slug", c.Slug),
		slog.String("trigger", trigger),
	)
	return &c, nil
}

// CloseSubmissions stops a challenge from accepting submissions and returns
// the updated challenge list.
func (s *ChallengeService) CloseSubmissions(ctx context.Context, key, challengeID string) ([]model.Challenge, error) {
	if err := s.admin.Check(key); err != nil {
		return nil, err
	}
	if challengeID == "" {
		return nil, apperror.ValidationFailed("challengeId", "challengeId is required")
	}

	if err := s.challenges.CloseSubmissions(ctx, challengeID); err != nil {
		return nil, err
	}
	s.logger.Info("submissions closed", slog.String("challengeID", challengeID))

	return s.List(ctx)
}

// List returns every challenge, newest first.
func (s *ChallengeService) List(ctx context.Context) ([]model.Challenge, error) {
	cs, err := s.challenges.ListChallenges(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/challenge: listing: %w", err)
	}
	if cs == nil {
		cs = []model.Challenge{}
	}
	return cs, nil
}

// CloseExpired closes submissions on every open challenge whose end date is
// a day that has already passed in the configured zone. It returns how many
// were closed.
func (s *ChallengeService) CloseExpired(ctx context.Context) (int, error) {
	cs, err := s.challenges.ListChallenges(ctx)
	if err != nil {
		return 0, fmt.Errorf("service/challenge: listing: %w", err)
	}

	today := Day(s.now(), s.loc)
	closed := 0
	for _, c := range cs {
		if !c.AcceptSubmission || Day(c.EndDate, s.loc) >= today {
			continue
		}
		if err := s.challenges.CloseSubmissions(ctx, c.ID); err != nil {
			return closed, fmt.Errorf("service/challenge: closing %s: %w", c.ID, err)
		}
		closed++
		s.logger.Info("expired challenge closed",
			slog.String("challengeID", c.ID),
			slog.String("slug", c.Slug),
		)
	}
	return closed, nil
}
