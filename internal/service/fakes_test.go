package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================

// fakeStore is an in-memory repository.Store. It follows the same contract
// as the SQL stores (error kinds, atomic create/record) under one mutex.
type fakeStore struct {
	mu          sync.Mutex
	nextID      int
	users       []*model.User
	challenges  []*model.Challenge // insertion order; ListChallenges reverses
	enrollments []*model.UserChallenge
	submissions []model.TaskSubmission

	createUserCalls int
	failList        error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore { return &fakeStore{} }

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) Close() error { return nil }

// --- users ---

func (f *fakeStore) CreateUser(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createUserCalls++
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.AlreadyExists("Email already exists")
		}
	}
	u.ID = f.id("user")
	u.CreatedAt = time.Now()
	copied := *u
	f.users = append(f.users, &copied)
	return nil
}

func (f *fakeStore) findUser(match func(*model.User) bool, key string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return f.findUser(func(u *model.User) bool { return u.ID == id }, id)
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.findUser(func(u *model.User) bool { return u.Email == strings.ToLower(email) }, email)
}

func (f *fakeStore) GetUserByUniqueCode(ctx context.Context, code string) (*model.User, error) {
	return f.findUser(func(u *model.User) bool { return u.UniqueCode == code }, code)
}

func (f *fakeStore) UniqueCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := f.GetUserByUniqueCode(ctx, code)
	return err == nil, nil
}

func (f *fakeStore) UpdatePassword(ctx context.Context, userID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == userID {
			u.PasswordHash = hash
			return nil
		}
	}
	return apperror.NotFound("user", userID)
}

func (f *fakeStore) ListUsers(ctx context.Context, q repository.UserQuery) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []model.User
	for _, u := range f.users {
		full := strings.ToLower(u.FirstName + " " + u.LastName)
		if strings.Contains(full, strings.ToLower(q.Search)) {
			matched = append(matched, *u)
		}
	}
	slices.SortStableFunc(matched, func(a, b model.User) int {
		c := strings.Compare(strings.ToLower(a.FirstName), strings.ToLower(b.FirstName))
		if q.Desc {
			return -c
		}
		return c
	})
	total := len(matched)
	start := min(q.Offset, total)
	end := min(start+q.Limit, total)
	return matched[start:end], total, nil
}

// --- challenges ---

func (f *fakeStore) currentLocked() (*model.Challenge, error) {
	for _, c := range f.challenges {
		if c.Current {
			return c, nil
		}
	}
	return nil, apperror.NoActiveChallenge()
}

func (f *fakeStore) CurrentChallenge(ctx context.Context) (*model.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.currentLocked()
	if err != nil {
		return nil, err
	}
	copied := *c
	return &copied, nil
}

func (f *fakeStore) GetChallenge(ctx context.Context, idOrSlug string) (*model.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.challenges {
		if c.ID == idOrSlug || c.Slug == idOrSlug {
			copied := *c
			return &copied, nil
		}
	}
	return nil, apperror.ChallengeNotFound(idOrSlug)
}

func (f *fakeStore) ListChallenges(ctx context.Context) ([]model.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]model.Challenge, 0, len(f.challenges))
	for i := len(f.challenges) - 1; i >= 0; i-- {
		out = append(out, *f.challenges[i])
	}
	return out, nil
}

func (f *fakeStore) CreateMonthlyChallenge(ctx context.Context, c *model.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.challenges {
		if existing.Month == c.Month && existing.Year == c.Year {
			return apperror.AlreadyExists("Challenge already created for this month")
		}
	}
	for _, existing := range f.challenges {
		existing.Current = false
		existing.AcceptSubmission = false
	}
	c.ID = f.id("challenge")
	c.CreatedAt = time.Now()
	copied := *c
	f.challenges = append(f.challenges, &copied)
	return nil
}

func (f *fakeStore) CloseSubmissions(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.challenges {
		if c.ID == id || c.Slug == id {
			c.AcceptSubmission = false
			return nil
		}
	}
	return apperror.ChallengeNotFound(id)
}

// addChallenge seeds a challenge directly, bypassing the month check.
func (f *fakeStore) addChallenge(c model.Challenge) *model.Challenge {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = f.id("challenge")
	}
	f.challenges = append(f.challenges, &c)
	return &c
}

// --- submissions ---

func (f *fakeStore) RecordSubmission(ctx context.Context, userID string, sub *model.TaskSubmission) (*model.UserChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, err := f.currentLocked()
	if err != nil {
		return nil, err
	}
	if !c.AcceptSubmission {
		return nil, apperror.SubmissionsClosed()
	}

	var uc *model.UserChallenge
	for _, e := range f.enrollments {
		if e.UserID == userID && e.ChallengeID == c.ID {
			uc = e
		}
	}
	if uc == nil {
		uc = &model.UserChallenge{ID: f.id("uc"), UserID: userID, ChallengeID: c.ID, CreatedAt: time.Now()}
		f.enrollments = append(f.enrollments, uc)
	}

	for _, s := range f.submissions {
		if s.UserChallengeID == uc.ID && s.Day == sub.Day {
			return nil, apperror.AlreadySubmittedToday()
		}
	}

	uc.TotalPoints += sub.Points
	sub.ID = f.id("sub")
	sub.UserChallengeID = uc.ID
	f.submissions = append(f.submissions, *sub)

	copied := *uc
	return &copied, nil
}

func (f *fakeStore) ListEnrollments(ctx context.Context, challengeID string) ([]model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Enrollment
	for _, uc := range f.enrollments {
		if uc.ChallengeID != challengeID {
			continue
		}
		e := model.Enrollment{UserChallengeID: uc.ID, TotalPoints: uc.TotalPoints}
		for _, s := range f.submissions {
			if s.UserChallengeID == uc.ID {
				e.Submissions = append(e.Submissions, s.Metrics)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// =========================================================================
// HELPERS
// =========================================================================

// recordingInvalidator remembers which challenges were invalidated.
type recordingInvalidator struct {
	challengeIDs []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, challengeID string) {
	r.challengeIDs = append(r.challengeIDs, challengeID)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock returns a clock that can be moved by the test.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }
