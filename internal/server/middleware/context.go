package middleware

import (
	"context"

	"personnel-registry/backend/internal/account/domain"
)

type contextKey struct{ name string }

var principalKey = contextKey{"principal"}

// WithPrincipal returns a context carrying the authenticated principal.
// Handlers read it via GetPrincipal.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the principal from ctx and true if set; otherwise nil, false.
func GetPrincipal(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*domain.Principal)
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}
