package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"personnel-registry/backend/internal/account/domain"
	"personnel-registry/backend/internal/account/repository"
	"personnel-registry/backend/internal/security"
)

// mockFinder implements PrincipalFinder for middleware tests.
type mockFinder struct {
	users map[string]*domain.User
	err   error
	calls int
}

func (m *mockFinder) FindBySubject(ctx context.Context, subject string) (*domain.User, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[subject]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func activeUser(email string) *domain.User {
	return &domain.User{
		ID:        "u1",
		Email:     email,
		FirstName: "Alice",
		LastName:  "Smith",
		Role:      domain.RoleUser,
		Status:    domain.UserStatusActive,
	}
}

// capture records whether the inner handler ran and what principal it saw.
type capture struct {
	ran       bool
	principal *domain.Principal
	hadOne    bool
}

func (c *capture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.ran = true
		c.principal, c.hadOne = GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func serve(t *testing.T, tokens *security.TokenService, finder PrincipalFinder, req *http.Request) (*httptest.ResponseRecorder, *capture) {
	t.Helper()
	c := &capture{}
	rec := httptest.NewRecorder()
	Authenticate(tokens, finder)(c.handler()).ServeHTTP(rec, req)
	return rec, c
}

func TestAuthenticate_NoTokenProceedsAnonymous(t *testing.T) {
	tokens := security.NewTestTokenService()
	finder := &mockFinder{}
	req := httptest.NewRequest("GET", "/users", nil)

	rec, c := serve(t, tokens, finder, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !c.ran || c.hadOne {
		t.Error("request should proceed unauthenticated without a principal")
	}
	if finder.calls != 0 {
		t.Error("no lookup expected without a token")
	}
}

func TestAuthenticate_PreflightBypassesPipeline(t *testing.T) {
	tokens := security.NewTestTokenService()
	finder := &mockFinder{}
	req := httptest.NewRequest(http.MethodOptions, "/users", nil)
	req.Header.Set("Authorization", "Bearer complete-garbage")

	rec, c := serve(t, tokens, finder, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !c.ran || c.hadOne {
		t.Error("preflight should pass through unauthenticated")
	}
	if finder.calls != 0 {
		t.Error("preflight must not trigger a principal lookup")
	}
}

func TestAuthenticate_MalformedTokenProceedsAnonymous(t *testing.T) {
	tokens := security.NewTestTokenService()
	finder := &mockFinder{}
	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")

	rec, c := serve(t, tokens, finder, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !c.ran || c.hadOne {
		t.Error("malformed token should degrade to anonymous, not reject")
	}
}

func TestAuthenticate_ValidTokenAttachesPrincipal(t *testing.T) {
	tokens := security.NewTestTokenService()
	finder := &mockFinder{users: map[string]*domain.User{
		"alice@example.com": activeUser("alice@example.com"),
	}}
	token, err := tokens.IssueAccess("alice@example.com", nil)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec, c := serve(t, tokens, finder, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !c.hadOne {
		t.Fatal("principal should be attached")
	}
	if c.principal.Subject != "alice@example.com" {
		t.Errorf("subject = %q", c.principal.Subject)
	}
	if c.principal.Name != "Alice Smith" {
		t.Errorf("name = %q", c.principal.Name)
	}
}

func TestAuthenticate_UnknownSubjectRejected(t *testing.T) {
	tokens := security.NewTestTokenService()
	finder := &mockFinder{users: map[string]*domain.User{}}
	token, _ := tokens.IssueAccess("ghost@example.com", nil)
	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec, c := serve(t, tokens, finder, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if c.ran {
		t.Error("handler must not run when the subject no longer exists")
	}
}

func TestAuthenticate_DisabledAccountRejected(t *testing.T) {
	// A still-unexpired token must fail at principal resolution once the
	// account is disabled, even though the token alone would validate.
	tokens := security.NewTestTokenService()
	u := activeUser("alice@example.com")
	u.Status = domain.UserStatusDisabled
	finder := &mockFinder{users: map[string]*domain.User{u.Email: u}}
	token, _ := tokens.IssueAccess(u.Email, nil)
	if !tokens.Validate(token, u.Email) {
		t.Fatal("precondition: token itself should be valid")
	}
	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec, c := serve(t, tokens, finder, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if c.ran {
		t.Error("handler must not run for a disabled account")
	}
}

func TestAuthenticate_ExpiredTokenProceedsAnonymous(t *testing.T) {
	tokens := security.NewTestTokenService()
	finder := &mockFinder{users: map[string]*domain.User{
		"alice@example.com": activeUser("alice@example.com"),
	}}
	token, err := security.NewTestTokenService().Issue("alice@example.com", nil, -1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec, c := serve(t, tokens, finder, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !c.ran || c.hadOne {
		t.Error("expired token should degrade to anonymous")
	}
}

func TestAuthenticate_LookupErrorIsServerError(t *testing.T) {
	tokens := security.NewTestTokenService()
	finder := &mockFinder{err: errors.New("db down")}
	token, _ := tokens.IssueAccess("alice@example.com", nil)
	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec, c := serve(t, tokens, finder, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if c.ran {
		t.Error("handler must not run on lookup failure")
	}
}
