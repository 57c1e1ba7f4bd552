package database

import (
	"database/sql"

	_ "modernc.org/sqlite" // SQLite driver
)

// New creates a new database connection pool.
func New(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dataSourceName+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
func Migrate(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('voter', 'candidate', 'admin')),
		has_voted INTEGER NOT NULL DEFAULT 0,
		party TEXT NOT NULL DEFAULT '',
		vote_count INTEGER NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_seen_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS votes (
		id TEXT NOT NULL PRIMARY KEY,
		voter_id TEXT NOT NULL REFERENCES accounts(id),
		candidate_id TEXT NOT NULL REFERENCES accounts(id),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Storage-level backstop for the one-vote-per-voter rule.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_voter ON votes(voter_id);
	CREATE INDEX IF NOT EXISTS idx_votes_candidate ON votes(candidate_id);
	`
	_, err := db.Exec(sqlStmt)
	return err
}
