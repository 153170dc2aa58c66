package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/sakif/challenge-tracker/internal/metrics"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
)

// Cache stores computed pages. Implementations live in internal/cache; a
// miss or a broken cache only costs a recomputation.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Service serves leaderboard pages and month browsing.
type Service struct {
	challenges  repository.ChallengeRepository
	enrollments repository.SubmissionRepository
	cache       Cache
	logger      *slog.Logger
}

func NewService(
	challenges repository.ChallengeRepository,
	enrollments repository.SubmissionRepository,
	cache Cache,
	logger *slog.Logger,
) *Service {
	return &Service{
		challenges:  challenges,
		enrollments: enrollments,
		cache:       cache,
		logger:      logger,
	}
}

// Leaderboard resolves the challenge (current one when q.ChallengeID is
// empty) and returns one page of standings.
//
// Fails with ErrNoActiveChallenge or ErrChallengeNotFound; never returns a
// partial page.
func (s *Service) Leaderboard(ctx context.Context, q Query) (*Page, error) {
	challenge, err := s.resolve(ctx, q.ChallengeID)
	if err != nil {
		return nil, err
	}

	// Only the standings are cached. The challenge itself is resolved on
	// every read, so closing or rolling over a month shows up immediately.
	key := cacheKey(challenge.ID, q)
	var cached standings
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.Warn("leaderboard cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	} else if hit {
		metrics.LeaderboardCache.WithLabelValues("hit").Inc()
		return &Page{Challenge: *challenge, Rows: cached.Rows, Pagination: cached.Pagination}, nil
	}
	metrics.LeaderboardCache.WithLabelValues("miss").Inc()

	start := time.Now()
	es, err := s.enrollments.ListEnrollments(ctx, challenge.ID)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: loading enrollments: %w", err)
	}

	rows, pagination := Build(es, q)
	metrics.LeaderboardBuildDuration.Observe(time.Since(start).Seconds())

	if err := s.cache.Set(ctx, key, standings{Rows: rows, Pagination: pagination}); err != nil {
		s.logger.Warn("leaderboard cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return &Page{Challenge: *challenge, Rows: rows, Pagination: pagination}, nil
}

// standings is the cached part of a Page.
type standings struct {
	Rows       []Row      `json:"rows"`
	Pagination Pagination `json:"pagination"`
}

// Invalidate drops every cached page of a challenge. Called after each
// accepted submission.
func (s *Service) Invalidate(ctx context.Context, challengeID string) {
	if err := s.cache.DeletePrefix(ctx, cachePrefix(challengeID)); err != nil {
		s.logger.Warn("leaderboard cache invalidation failed",
			slog.String("challengeID", challengeID),
			slog.String("error", err.Error()),
		)
	}
}

// Browse steps through the challenge list; see Step.
func (s *Service) Browse(ctx context.Context, from, step string) (Browse, error) {
	challenges, err := s.challenges.ListChallenges(ctx)
	if err != nil {
		return Browse{}, fmt.Errorf("leaderboard: listing challenges: %w", err)
	}
	return Step(challenges, from, step)
}

func (s *Service) resolve(ctx context.Context, idOrSlug string) (*model.Challenge, error) {
	if idOrSlug == "" {
		return s.challenges.CurrentChallenge(ctx)
	}
	return s.challenges.GetChallenge(ctx, idOrSlug)
}

func cachePrefix(challengeID string) string {
	return "leaderboard:" + challengeID + ":"
}

// cacheKey encodes every input that changes the page. The search text is
// query-escaped so it cannot collide with the separators.
func cacheKey(challengeID string, q Query) string {
	v := url.Values{}
	v.Set("p", strconv.Itoa(q.Page))
	v.Set("n", strconv.Itoa(q.PageSize))
	v.Set("q", q.Search)
	v.Set("by", q.SortBy)
	v.Set("desc", strconv.FormatBool(q.Desc))
	v.Set("admin", strconv.FormatBool(q.Admin))
	return cachePrefix(challengeID) + v.Encode()
}
