package model

import "time"

// Challenge is one calendar month's competition.
//
// At most one challenge has Current == true at any time. AcceptSubmission is
// the gate the submission recorder checks before writing anything.
type Challenge struct {
	ID               string    `json:"id"               db:"id"`
	Slug             string    `json:"slug"             db:"slug"` // e.g. "october-2026"
	Month            string    `json:"month"            db:"month"`
	Year             int       `json:"year"             db:"year"`
	StartDate        time.Time `json:"startDate"        db:"start_date"`
	EndDate          time.Time `json:"endDate"          db:"end_date"`
	Current          bool      `json:"current"          db:"current"`
	AcceptSubmission bool      `json:"acceptSubmission" db:"accept_submission"`
	CreatedAt        time.Time `json:"createdAt"        db:"created_at"`
}

// UserChallenge is a user's enrollment and running score in one challenge.
// Created lazily by the first submission; TotalPoints only ever grows.
type UserChallenge struct {
	ID          string    `json:"id"          db:"id"`
	UserID      string    `json:"userId"      db:"user_id"`
	ChallengeID string    `json:"challengeId" db:"challenge_id"`
	TotalPoints int64     `json:"totalPoints" db:"total_points"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}

// TaskSubmission is one day's reported counts. Rows are append-only.
//
// Day is the calendar day ("2006-01-02") in the server's configured time
// zone. Together with UserChallengeID it is unique.
type TaskSubmission struct {
	ID              string      `json:"id"              db:"id"`
	UserChallengeID string      `json:"userChallengeId" db:"user_challenge_id"`
	Metrics         TaskMetrics `json:"metrics"`
	Points          int64       `json:"points"          db:"points"`
	Day             string      `json:"day"             db:"day"`
	Date            time.Time   `json:"date"            db:"date"`
}
