package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jcastellr/ballotbox-be/internal/models"
	"github.com/jcastellr/ballotbox-be/internal/services"
	"github.com/jcastellr/ballotbox-be/internal/testutil"
)

func TestCreateAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := services.NewAccountService(db)
	ctx := context.Background()

	t.Run("voter with defaults", func(t *testing.T) {
		account, err := svc.CreateAccount(ctx, "Vera", "vera@x.com", "abc123", "", "")
		if err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		if account.Role != models.RoleVoter {
			t.Errorf("Expected default role voter, got %s", account.Role)
		}
		if account.HasVoted {
			t.Error("New voter must start with has_voted false")
		}
		if account.PasswordHash != "" {
			t.Error("Returned account must not carry the password hash")
		}
	})

	t.Run("candidate with party sentinel", func(t *testing.T) {
		account, err := svc.CreateAccount(ctx, "Carla", "carla@x.com", "abc123", "candidate", "")
		if err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		if account.Party != models.DefaultParty {
			t.Errorf("Expected sentinel party %q, got %q", models.DefaultParty, account.Party)
		}
		if account.VoteCount != 0 {
			t.Errorf("New candidate must start at tally 0, got %d", account.VoteCount)
		}
	})

	t.Run("email is normalized and unique case-insensitively", func(t *testing.T) {
		_, err := svc.CreateAccount(ctx, "Shadow", "VERA@X.COM", "abc123", "", "")
		if !errors.Is(err, services.ErrConflict) {
			t.Errorf("Expected ErrConflict for case-variant duplicate, got %v", err)
		}
	})

	tests := []struct {
		name    string
		input   [5]string // name, email, secret, role, party
		wantErr error
	}{
		{"empty name", [5]string{"", "a@x.com", "abc123", "", ""}, services.ErrValidation},
		{"name too long", [5]string{strings.Repeat("n", 101), "a@x.com", "abc123", "", ""}, services.ErrValidation},
		{"empty email", [5]string{"Ana", "", "abc123", "", ""}, services.ErrValidation},
		{"malformed email", [5]string{"Ana", "not-an-email", "abc123", "", ""}, services.ErrValidation},
		{"short secret", [5]string{"Ana", "ana@x.com", "abc12", "", ""}, services.ErrValidation},
		{"unknown role", [5]string{"Ana", "ana@x.com", "abc123", "overlord", ""}, services.ErrValidation},
		{"party too long", [5]string{"Ana", "ana@x.com", "abc123", "candidate", strings.Repeat("p", 51)}, services.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAccount(ctx, tt.input[0], tt.input[1], tt.input[2], tt.input[3], tt.input[4])
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := services.NewAccountService(db)
	ctx := context.Background()

	created, err := svc.CreateAccount(ctx, "Vera", "vera@x.com", "abc123", "voter", "")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		account, err := svc.Authenticate(ctx, "Vera@X.com", "abc123")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if account.ID != created.ID {
			t.Errorf("Wrong account returned: %s", account.ID)
		}
		if account.PasswordHash != "" {
			t.Error("Authenticated view must not carry the password hash")
		}
		if account.LastSeenAt == nil {
			t.Error("Login must touch the last-seen timestamp")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "vera@x.com", "wrong1")
		if !errors.Is(err, services.ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "nobody@x.com", "abc123")
		if !errors.Is(err, services.ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestUpdateAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := services.NewAccountService(db)
	ctx := context.Background()

	voter := testutil.CreateVoter(t, db, "Vera", "vera@x.com")
	testutil.CreateVoter(t, db, "Wanda", "wanda@x.com")

	t.Run("rename", func(t *testing.T) {
		name := "Vera Lopez"
		account, err := svc.UpdateAccount(ctx, voter.ID, services.AccountPatch{Name: &name})
		if err != nil {
			t.Fatalf("UpdateAccount failed: %v", err)
		}
		if account.Name != name {
			t.Errorf("Expected name %q, got %q", name, account.Name)
		}
	})

	t.Run("email collision", func(t *testing.T) {
		email := "wanda@x.com"
		_, err := svc.UpdateAccount(ctx, voter.ID, services.AccountPatch{Email: &email})
		if !errors.Is(err, services.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
	})

	t.Run("party on a voter", func(t *testing.T) {
		party := "Green"
		_, err := svc.UpdateAccount(ctx, voter.ID, services.AccountPatch{Party: &party})
		if !errors.Is(err, services.ErrValidation) {
			t.Errorf("Expected ErrValidation, got %v", err)
		}
	})

	t.Run("password change re-hashes", func(t *testing.T) {
		secret := "newsecret"
		if _, err := svc.UpdateAccount(ctx, voter.ID, services.AccountPatch{Secret: &secret}); err != nil {
			t.Fatalf("UpdateAccount failed: %v", err)
		}
		if _, err := svc.Authenticate(ctx, "vera@x.com", "newsecret"); err != nil {
			t.Errorf("New password rejected: %v", err)
		}
		if _, err := svc.Authenticate(ctx, "vera@x.com", "secret123"); !errors.Is(err, services.ErrInvalidCredentials) {
			t.Errorf("Old password still accepted: %v", err)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		name := "Ghost"
		_, err := svc.UpdateAccount(ctx, "missing", services.AccountPatch{Name: &name})
		if !errors.Is(err, services.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestDeleteAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := services.NewAccountService(db)
	ctx := context.Background()

	voter := testutil.CreateVoter(t, db, "Vera", "vera@x.com")

	if err := svc.DeleteAccount(ctx, voter.ID); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if err := svc.DeleteAccount(ctx, voter.ID); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListAccounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := services.NewAccountService(db)

	testutil.CreateVoter(t, db, "Vera", "vera@x.com")
	testutil.CreateCandidate(t, db, "Carla", "carla@x.com", "Green")

	accounts, err := svc.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(accounts))
	}
	for _, a := range accounts {
		if a.PasswordHash != "" {
			t.Errorf("Account %s leaked its password hash", a.ID)
		}
	}
}

// Two registrations racing on the same email: one lands on the schema's
// UNIQUE constraint instead of the existence check, and must still report
// a conflict rather than a bare driver error.
func TestConcurrentRegistrationSameEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := services.NewAccountService(db)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	var created atomic.Int32
	errCh := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.CreateAccount(ctx, fmt.Sprintf("Clone %d", n), "vera@x.com", "abc123", "", "")
			if err == nil {
				created.Add(1)
				return
			}
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)

	if got := created.Load(); got != 1 {
		t.Fatalf("Expected exactly 1 registration to win, got %d", got)
	}
	for err := range errCh {
		if !errors.Is(err, services.ErrConflict) {
			t.Errorf("Expected ErrConflict for the losing registration, got %v", err)
		}
	}
	if n := testutil.CountRows(t, db, "SELECT COUNT(*) FROM accounts WHERE email = ?", "vera@x.com"); n != 1 {
		t.Errorf("Expected 1 account row, got %d", n)
	}
}

// An account referenced by a vote record cannot be deleted until the vote
// is reverted.
func TestDeleteAccountWithVotes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	accountSvc := services.NewAccountService(db)
	voteSvc := services.NewVoteService(db)
	ctx := context.Background()

	voter := testutil.CreateVoter(t, db, "Vera", "vera@x.com")
	candidate := testutil.CreateCandidate(t, db, "Carla", "carla@x.com", "Green")

	vote, err := voteSvc.CastVote(ctx, voter.ID, candidate.ID)
	if err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	if err := accountSvc.DeleteAccount(ctx, candidate.ID); !errors.Is(err, services.ErrConflict) {
		t.Errorf("Expected ErrConflict deleting a voted-for candidate, got %v", err)
	}
	if err := accountSvc.DeleteAccount(ctx, voter.ID); !errors.Is(err, services.ErrConflict) {
		t.Errorf("Expected ErrConflict deleting a voter with a vote, got %v", err)
	}

	if err := voteSvc.RevertVote(ctx, vote.ID); err != nil {
		t.Fatalf("RevertVote failed: %v", err)
	}
	if err := accountSvc.DeleteAccount(ctx, candidate.ID); err != nil {
		t.Errorf("Expected deletion to succeed after revert, got %v", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := services.NewAccountService(db)
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "root@x.com", "abc123"); err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}
	admin, err := svc.Authenticate(ctx, "root@x.com", "abc123")
	if err != nil {
		t.Fatalf("Bootstrap admin cannot log in: %v", err)
	}
	if admin.Role != models.RoleAdmin {
		t.Errorf("Expected admin role, got %s", admin.Role)
	}

	// Idempotent: a second run with different credentials changes nothing.
	if err := svc.EnsureAdmin(ctx, "other@x.com", "xyz789"); err != nil {
		t.Fatalf("Second EnsureAdmin failed: %v", err)
	}
	if n := testutil.CountRows(t, db, "SELECT COUNT(*) FROM accounts WHERE role = 'admin'"); n != 1 {
		t.Errorf("Expected 1 admin account, got %d", n)
	}
}
