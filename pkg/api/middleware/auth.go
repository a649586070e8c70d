package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/painterjd/deuce/pkg/api/auth"
	"github.com/painterjd/deuce/pkg/api/handlers"
)

// Context key type for storing claims
type contextKey string

const claimsContextKey contextKey = "claims"

// ClaimsFromContext retrieves verified token claims from the request context.
// Returns nil when auth is disabled or BearerAuth has not run.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// extractBearerToken extracts the token from a Bearer Authorization header.
// Returns the token string and true if successful, or empty string and false if not.
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

// BearerAuth validates Bearer tokens in the Authorization header. Tokens
// carrying a project claim must match the request's X-Project-Id. Valid
// claims are stored in the request context.
func BearerAuth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				handlers.Unauthorized(w, "Authorization header required")
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				handlers.Unauthorized(w, "Invalid or expired token")
				return
			}

			if claims.ProjectID != "" && claims.ProjectID != r.Header.Get(handlers.HeaderProjectID) {
				handlers.Unauthorized(w, "Token is not valid for this project")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
