// Package sqlite implements repository.Store on an embedded SQLite file.
//
// WHY SQLITE?
// The tracker is a single process with modest write volume (one submission
// per participant per day). SQLite gives it real transactions and UNIQUE
// constraints without running a database server. ":memory:" makes every
// repository test start from an empty schema.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary still
// cross-compiles without a C toolchain.
//
// ONE CONNECTION:
// SQLite allows a single writer. The pool is capped at one connection so the
// submission and challenge transactions are serialised by database/sql
// instead of failing with SQLITE_BUSY. It also keeps ":memory:" databases
// alive, since each new connection to ":memory:" would see an empty
// database. Inside a transaction every query MUST go through the *sql.Tx,
// never db.conn, or it will wait forever for the only connection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite3 "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/sakif/challenge-tracker/internal/repository"
	"github.com/sakif/challenge-tracker/internal/scoring"
)

var _ repository.Store = (*DB)(nil)

// DB wraps the connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
//   - "data/tracker.db" → file on disk
//   - ":memory:"        → throwaway database for tests
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight; foreign keys are
	// off by default in SQLite.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// Ping checks the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. Every statement is idempotent, so it runs on
// each start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                       TEXT PRIMARY KEY,
			unique_code              TEXT NOT NULL UNIQUE,
			first_name               TEXT NOT NULL,
			last_name                TEXT NOT NULL,
			email                    TEXT NOT NULL UNIQUE,
			password                 TEXT NOT NULL,
			linkedin_link            TEXT NOT NULL DEFAULT '',
			upwork_link              TEXT NOT NULL DEFAULT '',
			facebook_link            TEXT NOT NULL DEFAULT '',
			twitter_link             TEXT NOT NULL DEFAULT '',
			funnel_link              TEXT NOT NULL DEFAULT '',
			medium_link              TEXT NOT NULL DEFAULT '',
			gohighlevel_account_name TEXT NOT NULL DEFAULT '',
			phone_number             TEXT NOT NULL DEFAULT '',
			created_at               DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_users_first_name ON users(first_name);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// UNIQUE(month, year) backs the one-challenge-per-month rule even if two
	// admins race past the existence check.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS challenges (
			id                TEXT PRIMARY KEY,
			slug              TEXT NOT NULL UNIQUE,
			month             TEXT NOT NULL,
			year              INTEGER NOT NULL,
			start_date        DATETIME NOT NULL,
			end_date          DATETIME NOT NULL,
			is_current        INTEGER NOT NULL DEFAULT 0,
			accept_submission INTEGER NOT NULL DEFAULT 0,
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (month, year)
		);
		CREATE INDEX IF NOT EXISTS idx_challenges_current ON challenges(is_current);
	`)
	if err != nil {
		return fmt.Errorf("creating challenges table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS user_challenges (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id),
			challenge_id TEXT NOT NULL REFERENCES challenges(id),
			total_points INTEGER NOT NULL DEFAULT 0,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, challenge_id)
		);
		CREATE INDEX IF NOT EXISTS idx_user_challenges_challenge ON user_challenges(challenge_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating user_challenges table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS task_submissions (
			id                TEXT PRIMARY KEY,
			user_challenge_id TEXT NOT NULL REFERENCES user_challenges(id),
			points            INTEGER NOT NULL DEFAULT 0,
			day               TEXT NOT NULL,
			date              DATETIME NOT NULL,
			UNIQUE (user_challenge_id, day)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating task_submissions table: %w", err)
	}

	// One column per metric. Adding a metric to scoring.Schema adds its
	// column on the next start.
	for _, mt := range scoring.Schema {
		if err := db.addColumnIfNotExists("task_submissions", mt.Column,
			"INTEGER NOT NULL DEFAULT 0"); err != nil {
			return fmt.Errorf("adding metric column %s: %w", mt.Column, err)
		}
	}

	return nil
}

// addColumnIfNotExists makes ALTER TABLE ADD COLUMN idempotent.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE ||
		se.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
}

// metricColumns returns the metric column names in schema order, e.g.
// "upwork_outreach, social_media_posts, ...".
func metricColumns(prefix string) string {
	cols := make([]string, len(scoring.Schema))
	for i, mt := range scoring.Schema {
		cols[i] = prefix + mt.Column
	}
	return strings.Join(cols, ", ")
}

// likePattern turns a search query into a LIKE pattern matching it anywhere,
// with % and _ in the query taken literally (ESCAPE '\').
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
