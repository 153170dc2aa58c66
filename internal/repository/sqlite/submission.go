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
	"github.com/sakif/challenge-tracker/internal/scoring"
)

// RecordSubmission implements the increment-and-insert of a daily
// submission as one transaction. See repository.SubmissionRepository.
//
// The same-day rule is enforced twice: the explicit SELECT gives the clean
// error, and UNIQUE(user_challenge_id, day) catches anything that slips past
// it.
func (db *DB) RecordSubmission(ctx context.Context, userID string, sub *model.TaskSubmission) (*model.UserChallenge, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	challenge, err := currentChallenge(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !challenge.AcceptSubmission {
		return nil, apperror.SubmissionsClosed()
	}

	uc, err := findOrCreateUserChallenge(ctx, tx, userID, challenge.ID)
	if err != nil {
		return nil, err
	}

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_submissions WHERE user_challenge_id = ? AND day = ?`,
		uc.ID, sub.Day,
	).Scan(&n); err != nil {
		return nil, fmt.Errorf("sqlite: checking same-day submission: %w", err)
	}
	if n > 0 {
		return nil, apperror.AlreadySubmittedToday()
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE user_challenges SET total_points = total_points + ? WHERE id = ?`,
		max(sub.Points, 0), uc.ID,
	); err != nil {
		return nil, fmt.Errorf("sqlite: incrementing total points: %w", err)
	}
	uc.TotalPoints = scoring.SaturatingAdd(uc.TotalPoints, sub.Points)

	sub.ID = xid.New().String()
	sub.UserChallengeID = uc.ID

	args := []any{sub.ID, sub.UserChallengeID, sub.Points, sub.Day, sub.Date}
	for _, mt := range scoring.Schema {
		args = append(args, mt.Get(sub.Metrics))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")

	_, err = tx.ExecContext(ctx,
		`INSERT INTO task_submissions (id, user_challenge_id, points, day, date, `+metricColumns("")+`)
		 VALUES (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.AlreadySubmittedToday()
		}
		return nil, fmt.Errorf("sqlite: inserting submission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing submission: %w", err)
	}
	return uc, nil
}

func findOrCreateUserChallenge(ctx context.Context, tx *sql.Tx, userID, challengeID string) (*model.UserChallenge, error) {
	var uc model.UserChallenge
	err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, challenge_id, total_points, created_at
		 FROM user_challenges WHERE user_id = ? AND challenge_id = ?`,
		userID, challengeID,
	).Scan(&uc.ID, &uc.UserID, &uc.ChallengeID, &uc.TotalPoints, &uc.CreatedAt)
	if err == nil {
		return &uc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: looking up enrollment: %w", err)
	}

	uc = model.UserChallenge{
		ID:          xid.New().String(),
		UserID:      userID,
		ChallengeID: challengeID,
		CreatedAt:   time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_challenges (id, user_id, challenge_id, total_points, created_at)
		 VALUES (?, ?, ?, 0, ?)`,
		uc.ID, uc.UserID, uc.ChallengeID, uc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating enrollment: %w", err)
	}
	return &uc, nil
}

// ListEnrollments loads a challenge's enrollments with two queries: the
// enrollments joined to their users, then every submission of the challenge,
// grouped in memory.
func (db *DB) ListEnrollments(ctx context.Context, challengeID string) ([]model.Enrollment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT uc.id, uc.total_points, u.first_name, u.last_name, u.unique_code
		 FROM user_challenges uc
		 JOIN users u ON u.id = uc.user_id
		 WHERE uc.challenge_id = ?
		 ORDER BY uc.created_at, uc.id`,
		challengeID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing enrollments: %w", err)
	}

	enrollments := []model.Enrollment{}
	index := map[string]int{}
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(&e.UserChallengeID, &e.TotalPoints,
			&e.User.FirstName, &e.User.LastName, &e.User.UniqueCode); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning enrollment: %w", err)
		}
		index[e.UserChallengeID] = len(enrollments)
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating enrollments: %w", err)
	}
	// Release the single connection before the next query.
	rows.Close()

	if len(enrollments) == 0 {
		return enrollments, nil
	}

	subRows, err := db.conn.QueryContext(ctx,
		`SELECT ts.user_challenge_id, `+metricColumns("ts.")+`
		 FROM task_submissions ts
		 JOIN user_challenges uc ON uc.id = ts.user_challenge_id
		 WHERE uc.challenge_id = ?
		 ORDER BY ts.date`,
		challengeID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing submissions: %w", err)
	}
	defer subRows.Close()

	for subRows.Next() {
		var (
			ucID string
			m    model.TaskMetrics
		)
		dest := []any{&ucID}
		for _, mt := range scoring.Schema {
			dest = append(dest, mt.Field(&m))
		}
		if err := subRows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlite: scanning submission: %w", err)
		}
		if i, ok := index[ucID]; ok {
			enrollments[i].Submissions = append(enrollments[i].Submissions, m)
		}
	}
	if err := subRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating submissions: %w", err)
	}
	return enrollments, nil
}
