package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
	"github.com/sakif/challenge-tracker/internal/scoring"
)

// =========================================================================
// USERS
// =========================================================================

func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	u.ID = xid.New().String()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = time.Now().UTC()

	rec := userFromModel(u)
	if err := db.gorm.WithContext(ctx).Create(&rec).Error; err != nil {
		if isDuplicate(err) {
			return apperror.AlreadyExists("Email already exists")
		}
		return fmt.Errorf("postgres: inserting user %s: %w", u.Email, err)
	}
	return nil
}

func (db *DB) getUserWhere(ctx context.Context, column, value string) (*model.User, error) {
	var rec userRecord
	err := db.gorm.WithContext(ctx).Where(column+" = ?", value).First(&rec).Error
	if err != nil {
		if notFound(err) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("postgres: getting user by %s: %w", column, err)
	}
	u := rec.toModel()
	return &u, nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUserWhere(ctx, "id", id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUserWhere(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (db *DB) GetUserByUniqueCode(ctx context.Context, code string) (*model.User, error) {
	return db.getUserWhere(ctx, "unique_code", code)
}

func (db *DB) UniqueCodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	err := db.gorm.WithContext(ctx).Model(&userRecord{}).Where("unique_code = ?", code).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("postgres: checking unique code: %w", err)
	}
	return n > 0, nil
}

func (db *DB) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res := db.gorm.WithContext(ctx).Model(&userRecord{}).
		Where("id = ?", userID).
		Update("password", passwordHash)
	if res.Error != nil {
		return fmt.Errorf("postgres: updating password for %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

func (db *DB) ListUsers(ctx context.Context, q repository.UserQuery) ([]model.User, int, error) {
	filter := func(tx *gorm.DB) *gorm.DB {
		tx = tx.Model(&userRecord{})
		if q.Search != "" {
			tx = tx.Where("(first_name || ' ' || last_name) ILIKE ?", likePattern(q.Search))
		}
		return tx
	}

	var total int64
	if err := db.gorm.WithContext(ctx).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("postgres: counting users: %w", err)
	}

	query := db.gorm.WithContext(ctx).Scopes(filter).Order(clause.OrderByColumn{
		Column: clause.Column{Raw: true, Name: "lower(first_name)"},
		Desc:   q.Desc,
	}).Order("created_at").Order("id").Offset(q.Offset)
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var recs []userRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, 0, fmt.Errorf("postgres: listing users: %w", err)
	}

	users := make([]model.User, len(recs))
	for i, r := range recs {
		users[i] = r.toModel()
	}
	return users, int(total), nil
}

// =========================================================================
// CHALLENGES
// =========================================================================

func currentChallenge(tx *gorm.DB) (*model.Challenge, error) {
	var rec challengeRecord
	err := tx.Where("is_current = ?", true).Order("created_at DESC").First(&rec).Error
	if err != nil {
		if notFound(err) {
			return nil, apperror.NoActiveChallenge()
		}
		return nil, fmt.Errorf("postgres: getting current challenge: %w", err)
	}
	c := rec.toModel()
	return &c, nil
}

func (db *DB) CurrentChallenge(ctx context.Context) (*model.Challenge, error) {
	return currentChallenge(db.gorm.WithContext(ctx))
}

func (db *DB) GetChallenge(ctx context.Context, idOrSlug string) (*model.Challenge, error) {
	var rec challengeRecord
	err := db.gorm.WithContext(ctx).Where("id = ? OR slug = ?", idOrSlug, idOrSlug).First(&rec).Error
	if err != nil {
		if notFound(err) {
			return nil, apperror.ChallengeNotFound(idOrSlug)
		}
		return nil, fmt.Errorf("postgres: getting challenge %s: %w", idOrSlug, err)
	}
	c := rec.toModel()
	return &c, nil
}

func (db *DB) ListChallenges(ctx context.Context) ([]model.Challenge, error) {
	var recs []challengeRecord
	if err := db.gorm.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing challenges: %w", err)
	}
	out := make([]model.Challenge, len(recs))
	for i, r := range recs {
		out[i] = r.toModel()
	}
	return out, nil
}

// CreateMonthlyChallenge flips and inserts in one transaction. The
// (month, year) unique index makes a concurrent duplicate fail at insert,
// which rolls the flip back with it.
func (db *DB) CreateMonthlyChallenge(ctx context.Context, c *model.Challenge) error {
	err := db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&challengeRecord{}).
			Where("month = ? AND year = ?", c.Month, c.Year).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperror.AlreadyExists("Challenge already created for this month")
		}

		if err := tx.Model(&challengeRecord{}).
			Where("is_current = ? OR accept_submission = ?", true, true).
			Updates(map[string]any{"is_current": false, "accept_submission": false}).Error; err != nil {
			return err
		}

		c.ID = xid.New().String()
		c.Current = true
		c.AcceptSubmission = true
		c.CreatedAt = time.Now().UTC()

		rec := challengeRecord{
			ID:               c.ID,
			Slug:             c.Slug,
			Month:            c.Month,
			Year:             c.Year,
			StartDate:        c.StartDate,
			EndDate:          c.EndDate,
			IsCurrent:        true,
			AcceptSubmission: true,
			CreatedAt:        c.CreatedAt,
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return apperror.AlreadyExists("Challenge already created for this month")
		}
		if isAppError(err) {
			return err
		}
		return fmt.Errorf("postgres: creating challenge %s: %w", c.Slug, err)
	}
	return nil
}

func (db *DB) CloseSubmissions(ctx context.Context, id string) error {
	res := db.gorm.WithContext(ctx).Model(&challengeRecord{}).
		Where("id = ? OR slug = ?", id, id).
		Update("accept_submission", false)
	if res.Error != nil {
		return fmt.Errorf("postgres: closing submissions for %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.ChallengeNotFound(id)
	}
	return nil
}

// =========================================================================
// SUBMISSIONS
// =========================================================================

// RecordSubmission mirrors the sqlite transaction. The current challenge row
// is read FOR SHARE so a concurrent close or roll-over waits for this
// submission, and the enrollment row is locked FOR UPDATE around the
// increment.
func (db *DB) RecordSubmission(ctx context.Context, userID string, sub *model.TaskSubmission) (*model.UserChallenge, error) {
	var uc userChallengeRecord

	err := db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		challenge, err := currentChallenge(tx.Clauses(clause.Locking{Strength: "SHARE"}))
		if err != nil {
			return err
		}
		if !challenge.AcceptSubmission {
			return apperror.SubmissionsClosed()
		}

		// Find or create; ON CONFLICT DO NOTHING lets two first submissions
		// race without either failing.
		fresh := userChallengeRecord{
			ID:          xid.New().String(),
			UserID:      userID,
			ChallengeID: challenge.ID,
			CreatedAt:   time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND challenge_id = ?", userID, challenge.ID).
			First(&uc).Error; err != nil {
			return err
		}

		var n int64
		if err := tx.Model(&submissionRecord{}).
			Where("user_challenge_id = ? AND day = ?", uc.ID, sub.Day).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperror.AlreadySubmittedToday()
		}

		if err := tx.Model(&userChallengeRecord{}).
			Where("id = ?", uc.ID).
			Update("total_points", gorm.Expr("total_points + ?", max(sub.Points, 0))).Error; err != nil {
			return err
		}
		uc.TotalPoints = scoring.SaturatingAdd(uc.TotalPoints, sub.Points)

		sub.ID = xid.New().String()
		sub.UserChallengeID = uc.ID
		return tx.Create(&submissionRecord{
			ID:              sub.ID,
			UserChallengeID: sub.UserChallengeID,
			Points:          sub.Points,
			Day:             sub.Day,
			Date:            sub.Date,
			Metrics:         sub.Metrics,
		}).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, apperror.AlreadySubmittedToday()
		}
		if isAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: recording submission: %w", err)
	}

	return &model.UserChallenge{
		ID:          uc.ID,
		UserID:      uc.UserID,
		ChallengeID: uc.ChallengeID,
		TotalPoints: uc.TotalPoints,
		CreatedAt:   uc.CreatedAt,
	}, nil
}

func (db *DB) ListEnrollments(ctx context.Context, challengeID string) ([]model.Enrollment, error) {
	var rows []struct {
		ID          string
		TotalPoints int64
		FirstName   string
		LastName    string
		UniqueCode  string
	}
	err := db.gorm.WithContext(ctx).
		Table("user_challenges AS uc").
		Select("uc.id, uc.total_points, u.first_name, u.last_name, u.unique_code").
		Joins("JOIN users u ON u.id = uc.user_id").
		Where("uc.challenge_id = ?", challengeID).
		Order("uc.created_at, uc.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing enrollments: %w", err)
	}

	enrollments := make([]model.Enrollment, len(rows))
	index := make(map[string]int, len(rows))
	ids := make([]string, len(rows))
	for i, r := range rows {
		enrollments[i] = model.Enrollment{
			UserChallengeID: r.ID,
			TotalPoints:     r.TotalPoints,
			User: model.LeaderboardUser{
				FirstName:  r.FirstName,
				LastName:   r.LastName,
				UniqueCode: r.UniqueCode,
			},
		}
		index[r.ID] = i
		ids[i] = r.ID
	}
	if len(ids) == 0 {
		return enrollments, nil
	}

	var subs []submissionRecord
	if err := db.gorm.WithContext(ctx).
		Where("user_challenge_id IN ?", ids).
		Order("date").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing submissions: %w", err)
	}
	for _, s := range subs {
		i := index[s.UserChallengeID]
		enrollments[i].Submissions = append(enrollments[i].Submissions, s.Metrics)
	}
	return enrollments, nil
}
