// Package middleware holds the per-request authentication interceptor and the
// principal context plumbing.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"personnel-registry/backend/internal/account/domain"
	"personnel-registry/backend/internal/account/repository"
	"personnel-registry/backend/internal/security"
)

const bearerPrefix = "bearer "

// PrincipalFinder resolves a token subject to the stored account. The lookup
// happens on every request so disablement takes effect immediately.
type PrincipalFinder interface {
	FindBySubject(ctx context.Context, subject string) (*domain.User, error)
}

// Authenticate returns middleware that extracts a Bearer token, verifies its
// signature, resolves the subject to a principal, and attaches the principal to
// the request context.
//
// Requests without a usable token proceed unauthenticated; rejecting anonymous
// access to protected routes is downstream authorization's job. A token whose
// subject no longer maps to an active account fails the request outright, even
// if the token itself is structurally valid. CORS preflight (OPTIONS) bypasses
// the pipeline entirely.
func Authenticate(tokens *security.TokenService, finder PrincipalFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			token := extractBearer(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			subject, err := tokens.ExtractSubject(token)
			if err != nil {
				log.Printf("auth: malformed bearer token from %s, proceeding unauthenticated", r.RemoteAddr)
				next.ServeHTTP(w, r)
				return
			}
			user, err := finder.FindBySubject(r.Context(), subject)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					unauthorized(w, "account not found")
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			principal := domain.PrincipalOf(user)
			if !principal.Active {
				unauthorized(w, "account is disabled")
				return
			}
			if !tokens.Validate(token, principal.Subject) {
				// Expired or otherwise invalid: degrade to anonymous.
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or "" if
// missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
