package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
)

const userColumns = `id, unique_code, first_name, last_name, email, password,
	linkedin_link, upwork_link, facebook_link, twitter_link, funnel_link,
	medium_link, gohighlevel_account_name, phone_number, created_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*model.User, error) {
	var u model.User
	err := s.Scan(
		&u.ID, &u.UniqueCode, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.LinkedInLink, &u.UpworkLink, &u.FacebookLink, &u.TwitterLink, &u.FunnelLink,
		&u.MediumLink, &u.GoHighLevelAccountName, &u.PhoneNumber, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new participant. Emails are stored lower-cased so the
// uniqueness check is case-insensitive.
func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	u.ID = xid.New().String()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.UniqueCode, u.FirstName, u.LastName, u.Email, u.PasswordHash,
		u.LinkedInLink, u.UpworkLink, u.FacebookLink, u.TwitterLink, u.FunnelLink,
		u.MediumLink, u.GoHighLevelAccountName, u.PhoneNumber, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.AlreadyExists("Email already exists")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", u.Email, err)
	}
	return nil
}

func (db *DB) getUserBy(ctx context.Context, column, value string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}
	return u, nil
}

// GetUserByID returns apperror.ErrNotFound when no user has that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUserBy(ctx, "id", id)
}

// GetUserByEmail matches case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUserBy(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// GetUserByUniqueCode matches the code exactly; codes are case-sensitive.
func (db *DB) GetUserByUniqueCode(ctx context.Context, code string) (*model.User, error) {
	return db.getUserBy(ctx, "unique_code", code)
}

func (db *DB) UniqueCodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE unique_code = ?`, code,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking unique code: %w", err)
	}
	return n > 0, nil
}

func (db *DB) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for %s: %w", userID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// ListUsers pages users ordered by first name. The search matches anywhere
// in "firstName lastName", case-insensitively (LIKE is case-insensitive
// for ASCII in SQLite).
func (db *DB) ListUsers(ctx context.Context, q repository.UserQuery) ([]model.User, int, error) {
	where := ""
	var args []any
	if q.Search != "" {
		where = `WHERE (first_name || ' ' || last_name) LIKE ? ESCAPE '\'`
		args = append(args, likePattern(q.Search))
	}

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting users: %w", err)
	}

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users `+where+`
		 ORDER BY first_name COLLATE NOCASE `+dir+`, created_at, id
		 LIMIT ? OFFSET ?`,
		append(args, limit, q.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, total, nil
}
