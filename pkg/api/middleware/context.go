// Package middleware provides HTTP middleware for the Deuce API.
package middleware

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/painterjd/deuce/internal/logger"
	"github.com/painterjd/deuce/pkg/api/handlers"
)

// RequestContext assigns each request a transaction ID, stamps it on the
// response, and seeds the logging context with the transaction, tenant and
// client address. It does not enforce the tenant header; RequireProjectID
// does that on the routes that need it.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transactionID := uuid.New().String()
		projectID := r.Header.Get(handlers.HeaderProjectID)

		w.Header().Set(handlers.HeaderTransactionID, transactionID)

		lc := logger.NewLogContext(transactionID, projectID)
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			lc.ClientIP = host
		} else {
			lc.ClientIP = r.RemoteAddr
		}

		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), lc)))
	})
}

// RequireProjectID rejects requests without an X-Project-Id header.
func RequireProjectID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(handlers.HeaderProjectID) == "" {
			handlers.BadRequest(w, "X-Project-Id header is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// VaultContext tags the logging context with the vault addressed by the
// request. Must be mounted inside a route carrying a {vaultID} parameter.
func VaultContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vaultID := chi.URLParam(r, "vaultID")
		if vaultID == "" {
			next.ServeHTTP(w, r)
			return
		}

		lc := logger.FromContext(r.Context())
		if lc == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.WithContext(r.Context(), lc.WithVault(vaultID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
