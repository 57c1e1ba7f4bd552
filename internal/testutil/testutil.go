// Package testutil provides shared helpers for service and handler tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jcastellr/ballotbox-be/internal/database"
	"github.com/jcastellr/ballotbox-be/internal/models"
	"github.com/jcastellr/ballotbox-be/internal/services"
	_ "modernc.org/sqlite"
)

// SetupTestDB creates a fresh in-memory database with the full schema.
// The pool is capped at one connection so every query sees the same
// in-memory instance.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// CreateVoter registers a voter account through the account service.
func CreateVoter(t *testing.T, db *sql.DB, name, email string) models.Account {
	t.Helper()
	return createAccount(t, db, name, email, "voter", "")
}

// CreateCandidate registers a candidate account through the account service.
func CreateCandidate(t *testing.T, db *sql.DB, name, email, party string) models.Account {
	t.Helper()
	return createAccount(t, db, name, email, "candidate", party)
}

// CreateAdmin registers an admin account through the account service.
func CreateAdmin(t *testing.T, db *sql.DB, name, email string) models.Account {
	t.Helper()
	return createAccount(t, db, name, email, "admin", "")
}

func createAccount(t *testing.T, db *sql.DB, name, email, role, party string) models.Account {
	t.Helper()
	svc := services.NewAccountService(db)
	account, err := svc.CreateAccount(context.Background(), name, email, "secret123", role, party)
	if err != nil {
		t.Fatalf("Failed to create %s account %s: %v", role, email, err)
	}
	return account
}

// CountRows returns the number of rows matching the query, which must be a
// SELECT COUNT(*) statement.
func CountRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}
