package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jcastellr/ballotbox-be/internal/models"
)

var jwtKey []byte

// Init sets the signing key for all tokens. It must be called once at
// startup, after configuration is loaded, before any token is issued or
// verified.
func Init(secret string) {
	jwtKey = []byte(secret)
}

// Claims defines the JWT claims structure.
type Claims struct {
	AccountID string      `json:"accountId"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserClaimsKey is the context key for user claims.
type contextKey string

const UserClaimsKey = contextKey("userClaims")

// GenerateJWT creates a new JWT for a given account.
func GenerateJWT(account models.Account) (string, error) {
	if len(jwtKey) == 0 {
		return "", fmt.Errorf("signing key not configured")
	}
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &Claims{
		AccountID: account.ID,
		Name:      account.Name,
		Role:      account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ValidateJWT parses and validates a JWT string.
func ValidateJWT(tokenStr string) (*Claims, error) {
	if len(jwtKey) == 0 {
		return nil, fmt.Errorf("signing key not configured")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// ClaimsFromContext retrieves the authenticated claims set by JWTMiddleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*Claims)
	return claims, ok
}

// extractToken pulls the token from the Authorization header, falling back
// to the session cookie.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, "Bearer ")
		if len(parts) == 2 {
			return parts[1]
		}
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}

// JWTMiddleware creates a middleware for protecting routes.
func JWTMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := extractToken(r)
			if tokenStr == "" {
				http.Error(w, "Missing auth token", http.StatusUnauthorized)
				return
			}

			claims, err := ValidateJWT(tokenStr)
			if err != nil {
				http.Error(w, "Invalid auth token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWT attaches claims to the context when a valid token accompanies
// the request, but lets anonymous requests through. Handlers that branch on
// the caller's role use ClaimsFromContext to tell the two apart.
func OptionalJWT() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenStr := extractToken(r); tokenStr != "" {
				if claims, err := ValidateJWT(tokenStr); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), UserClaimsKey, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin guards administrative routes. It must run after JWTMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "Missing auth token", http.StatusUnauthorized)
			return
		}
		switch claims.Role {
		case models.RoleAdmin:
			next.ServeHTTP(w, r)
		case models.RoleVoter, models.RoleCandidate:
			http.Error(w, "Admin access required", http.StatusForbidden)
		default:
			http.Error(w, "Admin access required", http.StatusForbidden)
		}
	})
}
