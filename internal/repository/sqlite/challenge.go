package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/model"
)

const challengeColumns = `id, slug, month, year, start_date, end_date, is_current, accept_submission, created_at`

func scanChallenge(s rowScanner) (*model.Challenge, error) {
	var c model.Challenge
	err := s.Scan(&c.ID, &c.Slug, &c.Month, &c.Year, &c.StartDate, &c.EndDate,
		&c.Current, &c.AcceptSubmission, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// querier is the part of *sql.DB and *sql.Tx the read helpers need, so the
// same lookup can run inside or outside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func currentChallenge(ctx context.Context, q querier) (*model.Challenge, error) {
	c, err := scanChallenge(q.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE is_current = 1
		 ORDER BY created_at DESC LIMIT 1`))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NoActiveChallenge()
		}
		return nil, fmt.Errorf("sqlite: getting current challenge: %w", err)
	}
	return c, nil
}

func (db *DB) CurrentChallenge(ctx context.Context) (*model.Challenge, error) {
	return currentChallenge(ctx, db.conn)
}

// GetChallenge accepts either the xid or the slug ("october-2026").
func (db *DB) GetChallenge(ctx context.Context, idOrSlug string) (*model.Challenge, error) {
	c, err := scanChallenge(db.conn.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id = ? OR slug = ? LIMIT 1`,
		idOrSlug, idOrSlug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ChallengeNotFound(idOrSlug)
		}
		return nil, fmt.Errorf("sqlite: getting challenge %s: %w", idOrSlug, err)
	}
	return c, nil
}

// ListChallenges returns newest-created first. Ties on created_at (same
// second, e.g. in tests) fall back to the xid, which also sorts by time.
func (db *DB) ListChallenges(ctx context.Context) ([]model.Challenge, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing challenges: %w", err)
	}
	defer rows.Close()

	challenges := []model.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning challenge: %w", err)
		}
		challenges = append(challenges, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating challenges: %w", err)
	}
	return challenges, nil
}

// CreateMonthlyChallenge runs the existence check, the flip of every other
// challenge and the insert in one transaction. Concurrent readers see
// either the old current challenge or the new one, never zero or two.
func (db *DB) CreateMonthlyChallenge(ctx context.Context, c *model.Challenge) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM challenges WHERE month = ? AND year = ?`, c.Month, c.Year,
	).Scan(&n); err != nil {
		return fmt.Errorf("sqlite: checking existing challenge: %w", err)
	}
	if n > 0 {
		return apperror.AlreadyExists("Challenge already created for this month")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE challenges SET is_current = 0, accept_submission = 0`); err != nil {
		return fmt.Errorf("sqlite: clearing current challenges: %w", err)
	}

	c.ID = xid.New().String()
	c.Current = true
	c.AcceptSubmission = true
	c.CreatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO challenges (`+challengeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Slug, c.Month, c.Year, c.StartDate, c.EndDate, c.Current, c.AcceptSubmission, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.AlreadyExists("Challenge already created for this month")
		}
		return fmt.Errorf("sqlite: inserting challenge %s: %w", c.Slug, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing challenge %s: %w", c.Slug, err)
	}
	return nil
}

func (db *DB) CloseSubmissions(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE challenges SET accept_submission = 0 WHERE id = ? OR slug = ?`, id, id)
	if err != nil {
		return fmt.Errorf("sqlite: closing submissions for %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.ChallengeNotFound(id)
	}
	return nil
}
