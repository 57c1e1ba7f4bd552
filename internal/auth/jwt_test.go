package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jcastellr/ballotbox-be/internal/models"
)

func TestMain(m *testing.M) {
	Init("test-signing-key")
	os.Exit(m.Run())
}

func TestJWTRoundTrip(t *testing.T) {
	account := models.Account{ID: "acc-1", Name: "Vera", Role: models.RoleVoter}

	token, err := GenerateJWT(account)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT failed: %v", err)
	}
	if claims.AccountID != account.ID {
		t.Errorf("Expected account ID %s, got %s", account.ID, claims.AccountID)
	}
	if claims.Role != models.RoleVoter {
		t.Errorf("Expected role voter, got %s", claims.Role)
	}
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	if _, err := ValidateJWT("not-a-token"); err == nil {
		t.Error("Expected an error for a malformed token")
	}
}

// Tokens signed under any key other than the configured one must be
// rejected, including the empty key an attacker could sign with if the
// secret were never wired in.
func TestValidateJWTRejectsForeignKeys(t *testing.T) {
	for _, key := range []string{"", "some-other-key"} {
		claims := &Claims{
			AccountID: "a1",
			Role:      models.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		if err != nil {
			t.Fatalf("Failed to sign token with key %q: %v", key, err)
		}
		if _, err := ValidateJWT(forged); err == nil {
			t.Errorf("Admin token signed with key %q must not verify", key)
		}
	}
}

func TestMiddlewareGating(t *testing.T) {
	protected := JWTMiddleware()(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	tests := []struct {
		name           string
		account        *models.Account
		expectedStatus int
	}{
		{"no token", nil, http.StatusUnauthorized},
		{"voter token", &models.Account{ID: "v1", Role: models.RoleVoter}, http.StatusForbidden},
		{"candidate token", &models.Account{ID: "c1", Role: models.RoleCandidate}, http.StatusForbidden},
		{"admin token", &models.Account{ID: "a1", Role: models.RoleAdmin}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.account != nil {
				token, err := GenerateJWT(*tt.account)
				if err != nil {
					t.Fatalf("GenerateJWT failed: %v", err)
				}
				req.Header.Set("Authorization", "Bearer "+token)
			}
			w := httptest.NewRecorder()
			protected.ServeHTTP(w, req)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}
