package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jcastellr/ballotbox-be/internal/models"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	maxNameLength   = 100
	maxPartyLength  = 50
	minSecretLength = 6
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// sqliteErrCode extracts the extended result code from a driver error.
func sqliteErrCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

// AccountServiceProvider defines the interface for account services.
type AccountServiceProvider interface {
	CreateAccount(ctx context.Context, name, email, secret, role, party string) (models.Account, error)
	GetAccount(ctx context.Context, id string) (models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	UpdateAccount(ctx context.Context, id string, patch AccountPatch) (models.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	Authenticate(ctx context.Context, email, secret string) (models.Account, error)
}

// AccountPatch holds optional account fields for an update. Nil fields are
// left untouched. Role is immutable and deliberately absent.
type AccountPatch struct {
	Name   *string
	Email  *string
	Secret *string
	Party  *string
}

// AccountService provides business logic for account management.
type AccountService struct {
	db *sql.DB
}

// NewAccountService creates a new AccountService.
func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{db: db}
}

// CreateAccount registers a new account, hashing the secret. Candidates get
// the sentinel party and a zero tally when none is supplied.
func (s *AccountService) CreateAccount(ctx context.Context, name, email, secret, role, party string) (models.Account, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return models.Account{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(name) > maxNameLength {
		return models.Account{}, fmt.Errorf("%w: name exceeds %d characters", ErrValidation, maxNameLength)
	}
	if email == "" {
		return models.Account{}, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return models.Account{}, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(secret) < minSecretLength {
		return models.Account{}, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minSecretLength)
	}

	parsedRole, err := models.ParseRole(role)
	if err != nil {
		return models.Account{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if parsedRole == models.RoleCandidate {
		party = strings.TrimSpace(party)
		if party == "" {
			party = models.DefaultParty
		}
		if len(party) > maxPartyLength {
			return models.Account{}, fmt.Errorf("%w: party exceeds %d characters", ErrValidation, maxPartyLength)
		}
	} else {
		party = ""
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE email = ?)", email).Scan(&exists)
	if err != nil {
		return models.Account{}, err
	}
	if exists {
		return models.Account{}, fmt.Errorf("%w: email %s is already registered", ErrConflict, email)
	}

	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	account := models.Account{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      parsedRole,
		Party:     party,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, email, password_hash, role, has_voted, party, vote_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, 0, ?, ?)`,
		account.ID, account.Name, account.Email, string(hashedSecret), string(account.Role), account.Party, now, now)
	if err != nil {
		// Concurrent registrations can slip past the existence check and
		// land on the schema's UNIQUE constraint instead.
		if sqliteErrCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return models.Account{}, fmt.Errorf("%w: email %s is already registered", ErrConflict, email)
		}
		return models.Account{}, err
	}

	return account, nil
}

// GetAccount retrieves a single account by its ID. The password hash is never
// populated.
func (s *AccountService) GetAccount(ctx context.Context, id string) (models.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, has_voted, party, vote_count, created_at, updated_at, last_seen_at
		FROM accounts WHERE id = ?`, id)
	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return models.Account{}, fmt.Errorf("%w: account %s", ErrNotFound, id)
	}
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}

// ListAccounts retrieves all accounts, oldest first, without password hashes.
func (s *AccountService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, role, has_voted, party, vote_count, created_at, updated_at, last_seen_at
		FROM accounts ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// UpdateAccount applies a partial update to an account's profile fields. The
// role cannot be changed after creation.
func (s *AccountService) UpdateAccount(ctx context.Context, id string, patch AccountPatch) (models.Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return models.Account{}, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" || len(name) > maxNameLength {
			return models.Account{}, fmt.Errorf("%w: name must be 1-%d characters", ErrValidation, maxNameLength)
		}
		account.Name = name
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if !emailPattern.MatchString(email) {
			return models.Account{}, fmt.Errorf("%w: invalid email address", ErrValidation)
		}
		if email != account.Email {
			var taken bool
			if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE email = ? AND id != ?)", email, id).Scan(&taken); err != nil {
				return models.Account{}, err
			}
			if taken {
				return models.Account{}, fmt.Errorf("%w: email %s is already registered", ErrConflict, email)
			}
		}
		account.Email = email
	}
	if patch.Party != nil {
		if account.Role != models.RoleCandidate {
			return models.Account{}, fmt.Errorf("%w: only candidates have a party", ErrValidation)
		}
		party := strings.TrimSpace(*patch.Party)
		if party == "" {
			party = models.DefaultParty
		}
		if len(party) > maxPartyLength {
			return models.Account{}, fmt.Errorf("%w: party exceeds %d characters", ErrValidation, maxPartyLength)
		}
		account.Party = party
	}

	passwordHash := ""
	if patch.Secret != nil {
		if len(*patch.Secret) < minSecretLength {
			return models.Account{}, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minSecretLength)
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*patch.Secret), bcrypt.DefaultCost)
		if err != nil {
			return models.Account{}, fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = string(hashed)
	}

	now := time.Now().UTC()
	if passwordHash != "" {
		_, err = s.db.ExecContext(ctx, `
			UPDATE accounts SET name = ?, email = ?, party = ?, password_hash = ?, updated_at = ? WHERE id = ?`,
			account.Name, account.Email, account.Party, passwordHash, now, id)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE accounts SET name = ?, email = ?, party = ?, updated_at = ? WHERE id = ?`,
			account.Name, account.Email, account.Party, now, id)
	}
	if err != nil {
		if sqliteErrCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return models.Account{}, fmt.Errorf("%w: email %s is already registered", ErrConflict, account.Email)
		}
		return models.Account{}, err
	}

	account.UpdatedAt = now
	return account, nil
}

// DeleteAccount removes an account from the database. An account still
// referenced by vote records cannot be deleted; the votes must be reverted
// first so the tallies stay consistent.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		if sqliteErrCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return fmt.Errorf("%w: account %s has recorded votes; revert them first", ErrConflict, id)
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: account %s", ErrNotFound, id)
	}
	return nil
}

// Authenticate verifies a login attempt and touches the account's last-seen
// timestamp. The same failure is reported whether the email is unknown or the
// password is wrong.
func (s *AccountService) Authenticate(ctx context.Context, email, secret string) (models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var (
		account models.Account
		hash    string
		role    string
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, has_voted, party, vote_count, created_at, updated_at
		FROM accounts WHERE email = ?`, email)
	err := row.Scan(&account.ID, &account.Name, &account.Email, &hash, &role,
		&account.HasVoted, &account.Party, &account.VoteCount, &account.CreatedAt, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.Account{}, err
	}
	account.Role = models.Role(role)

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return models.Account{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, "UPDATE accounts SET last_seen_at = ? WHERE id = ?", now, account.ID); err != nil {
		return models.Account{}, err
	}
	account.LastSeenAt = &now

	return account, nil
}

// EnsureAdmin creates a bootstrap administrator account when none exists.
// It is a no-op if any admin is already registered, so restarting with the
// same configuration never duplicates or resets the account.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, secret string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE role = 'admin')").Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = s.CreateAccount(ctx, "Administrator", email, secret, string(models.RoleAdmin), "")
	if err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	return nil
}

// rowScanner lets scanAccount work with both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (models.Account, error) {
	var (
		account  models.Account
		role     string
		lastSeen sql.NullTime
	)
	err := row.Scan(&account.ID, &account.Name, &account.Email, &role, &account.HasVoted,
		&account.Party, &account.VoteCount, &account.CreatedAt, &account.UpdatedAt, &lastSeen)
	if err != nil {
		return models.Account{}, err
	}
	account.Role = models.Role(role)
	if lastSeen.Valid {
		t := lastSeen.Time
		account.LastSeenAt = &t
	}
	return account, nil
}
