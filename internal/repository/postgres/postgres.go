// Package postgres implements repository.Store on PostgreSQL through gorm.
//
// It is the backend for deployments that outgrow a single SQLite file. The
// schema matches the sqlite package: same tables, same column names, same
// UNIQUE constraints, so the two are interchangeable behind
// repository.Store.
//
// gorm builds the schema with AutoMigrate from the record types below. They
// stay unexported; callers only ever see model types.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB implements repository.Store.
type DB struct {
	gorm *gorm.DB
}

// Open connects to dsn and migrates the schema.
//
// TranslateError makes unique violations come back as gorm.ErrDuplicatedKey,
// which the write paths map onto apperror conflicts.
func Open(dsn string, log *slog.Logger) (*DB, error) {
	g, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: connecting: %w", err)
	}

	db := &DB{gorm: g}
	if err := db.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	log.Info("postgres store ready")
	return db, nil
}

// Ping checks the server is reachable.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) migrate() error {
	return db.gorm.AutoMigrate(
		&userRecord{},
		&challengeRecord{},
		&userChallengeRecord{},
		&submissionRecord{},
	)
}

// =========================================================================
// RECORDS
// =========================================================================

type userRecord struct {
	ID                     string `gorm:"primaryKey;type:varchar(20)"`
	UniqueCode             string `gorm:"uniqueIndex;not null"`
	FirstName              string `gorm:"index;not null"`
	LastName               string `gorm:"not null"`
	Email                  string `gorm:"uniqueIndex;not null"`
	Password               string `gorm:"not null"`
	LinkedinLink           string
	UpworkLink             string
	FacebookLink           string
	TwitterLink            string
	FunnelLink             string
	MediumLink             string
	GohighlevelAccountName string
	PhoneNumber            string
	CreatedAt              time.Time `gorm:"autoCreateTime"`
}

func (userRecord) TableName() string { return "users" }

func (r userRecord) toModel() model.User {
	return model.User{
		ID:                     r.ID,
		UniqueCode:             r.UniqueCode,
		FirstName:              r.FirstName,
		LastName:               r.LastName,
		Email:                  r.Email,
		PasswordHash:           r.Password,
		LinkedInLink:           r.LinkedinLink,
		UpworkLink:             r.UpworkLink,
		FacebookLink:           r.FacebookLink,
		TwitterLink:            r.TwitterLink,
		FunnelLink:             r.FunnelLink,
		MediumLink:             r.MediumLink,
		GoHighLevelAccountName: r.GohighlevelAccountName,
		PhoneNumber:            r.PhoneNumber,
		CreatedAt:              r.CreatedAt,
	}
}

func userFromModel(u *model.User) userRecord {
	return userRecord{
		ID:                     u.ID,
		UniqueCode:             u.UniqueCode,
		FirstName:              u.FirstName,
		LastName:               u.LastName,
		Email:                  u.Email,
		Password:               u.PasswordHash,
		LinkedinLink:           u.LinkedInLink,
		UpworkLink:             u.UpworkLink,
		FacebookLink:           u.FacebookLink,
		TwitterLink:            u.TwitterLink,
		FunnelLink:             u.FunnelLink,
		MediumLink:             u.MediumLink,
		GohighlevelAccountName: u.GoHighLevelAccountName,
		PhoneNumber:            u.PhoneNumber,
		CreatedAt:              u.CreatedAt,
	}
}

type challengeRecord struct {
	ID               string    `gorm:"primaryKey;type:varchar(20)"`
	Slug             string    `gorm:"uniqueIndex;not null"`
	Month            string    `gorm:"uniqueIndex:idx_challenge_month_year;not null"`
	Year             int       `gorm:"uniqueIndex:idx_challenge_month_year;not null"`
	StartDate        time.Time `gorm:"not null"`
	EndDate          time.Time `gorm:"not null"`
	IsCurrent        bool      `gorm:"index;not null;default:false"`
	AcceptSubmission bool      `gorm:"not null;default:false"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

func (challengeRecord) TableName() string { return "challenges" }

func (r challengeRecord) toModel() model.Challenge {
	return model.Challenge{
		ID:               r.ID,
		Slug:             r.Slug,
		Month:            r.Month,
		Year:             r.Year,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		Current:          r.IsCurrent,
		AcceptSubmission: r.AcceptSubmission,
		CreatedAt:        r.CreatedAt,
	}
}

type userChallengeRecord struct {
	ID          string    `gorm:"primaryKey;type:varchar(20)"`
	UserID      string    `gorm:"uniqueIndex:idx_user_challenge;not null"`
	ChallengeID string    `gorm:"uniqueIndex:idx_user_challenge;index:idx_uc_challenge_created,priority:1;not null"`
	TotalPoints int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_uc_challenge_created,priority:2"`
}

func (userChallengeRecord) TableName() string { return "user_challenges" }

// submissionRecord embeds the metric struct, so its columns are the
// snake_case field names (upwork_outreach, no_of_clients, ...), the same
// names scoring.Schema uses for SQLite.
type submissionRecord struct {
	ID              string `gorm:"primaryKey;type:varchar(20)"`
	UserChallengeID string `gorm:"uniqueIndex:idx_submission_day;not null"`
	Points          int64  `gorm:"not null;default:0"`
	Day             string `gorm:"uniqueIndex:idx_submission_day;type:char(10);not null"`
	Date            time.Time
	Metrics         model.TaskMetrics `gorm:"embedded"`
}

func (submissionRecord) TableName() string { return "task_submissions" }

// =========================================================================
// HELPERS
// =========================================================================

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func isAppError(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr)
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// likePattern matches q anywhere, with % and _ taken literally. Backslash is
// PostgreSQL's default LIKE escape.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
