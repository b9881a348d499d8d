package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"personnel-registry/backend/internal/account/domain"
	"personnel-registry/backend/internal/account/repository"
	"personnel-registry/backend/internal/account/service"
	"personnel-registry/backend/internal/audit"
	auditdomain "personnel-registry/backend/internal/audit/domain"
	"personnel-registry/backend/internal/security"
	"personnel-registry/backend/internal/server/middleware"
)

// memRepo is a minimal in-memory account store for handler tests.
type memRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (m *memRepo) FindBySubject(ctx context.Context, subject string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == subject {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) Create(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		return nil
	}
	return repository.ErrNotFound
}

func (m *memRepo) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Status = status
		return nil
	}
	return repository.ErrNotFound
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (c *captureRecorder) Record(entry audit.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *captureRecorder) all() []audit.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]audit.Entry(nil), c.entries...)
}

type fixture struct {
	router   chi.Router
	repo     *memRepo
	recorder *captureRecorder
	tokens   *security.TokenService
}

// newFixture wires the handler under the real authentication middleware,
// matching the server's route layout.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := &memRepo{users: map[string]*domain.User{}}
	recorder := &captureRecorder{}
	tokens := security.NewTestTokenService()
	svc := service.NewAccountService(repo, security.NewTestHasher(), tokens, recorder)
	h := NewAccountHandler(svc)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(tokens, repo))
		h.Routes(r)
	})
	return &fixture{router: r, repo: repo, recorder: recorder, tokens: tokens}
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) registerUser(t *testing.T, email, password string) {
	t.Helper()
	rec := f.do(t, "POST", "/auth/register", "", map[string]string{
		"email":     email,
		"password":  password,
		"firstName": "Alice",
		"lastName":  "Smith",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func decodeTokens(t *testing.T, rec *httptest.ResponseRecorder) (access, refresh string) {
	t.Helper()
	var body struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body.AccessToken, body.RefreshToken
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "alice@example.com", "Secret123!")

	rec := f.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "Secret123!",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	access, refresh := decodeTokens(t, rec)
	if access == "" || refresh == "" {
		t.Fatal("login must return both tokens")
	}

	var sawLogin bool
	for _, e := range f.recorder.all() {
		if e.Action == auditdomain.ActionLogin {
			sawLogin = true
		}
	}
	if !sawLogin {
		t.Error("login must record a LOGIN audit entry")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "alice@example.com", "Secret123!")

	rec := f.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "WrongPass1!",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body should be JSON: %v", err)
	}
	if body["error"] != "invalid credentials" {
		t.Errorf("error = %q, must stay generic", body["error"])
	}
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "alice@example.com", "Secret123!")

	rec := f.do(t, "POST", "/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "Other456!",
		"firstName": "Alice", "lastName": "Smith",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "POST", "/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "short",
		"firstName": "Alice", "lastName": "Smith",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMe_RequiresPrincipal(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, "GET", "/auth/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous /auth/me status = %d, want 401", rec.Code)
	}
}

func TestMe_ReturnsCaller(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "alice@example.com", "Secret123!")
	login := f.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "Secret123!",
	})
	access, _ := decodeTokens(t, login)

	rec := f.do(t, "GET", "/auth/me", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var view struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.Email != "alice@example.com" || view.Role != string(domain.RoleUser) {
		t.Errorf("view = %+v", view)
	}
}

func TestRefresh_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "alice@example.com", "Secret123!")
	login := f.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "Secret123!",
	})
	_, refresh := decodeTokens(t, login)

	rec := f.do(t, "POST", "/auth/refresh", "", map[string]string{"refreshToken": refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	access, _ := decodeTokens(t, rec)
	if access == "" {
		t.Fatal("refresh must return a new access token")
	}
}

func TestRefresh_Garbage(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "POST", "/auth/refresh", "", map[string]string{"refreshToken": "garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestChangePassword_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "alice@example.com", "Secret123!")
	login := f.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "Secret123!",
	})
	access, _ := decodeTokens(t, login)

	rec := f.do(t, "POST", "/auth/change-password", access, map[string]string{
		"currentPassword": "Secret123!", "newPassword": "NewSecret456!",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if rec := f.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "Secret123!",
	}); rec.Code != http.StatusUnauthorized {
		t.Error("old password must stop working")
	}
	if rec := f.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "NewSecret456!",
	}); rec.Code != http.StatusOK {
		t.Errorf("new password login status = %d", rec.Code)
	}
}

func TestDisable_AdminOnly(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "alice@example.com", "Secret123!")
	f.registerUser(t, "bob@example.com", "Secret123!")
	login := f.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "Secret123!",
	})
	access, _ := decodeTokens(t, login)

	var bobID string
	for id, u := range f.repo.users {
		if u.Email == "bob@example.com" {
			bobID = id
		}
	}
	rec := f.do(t, "POST", "/users/"+bobID+"/disable", access, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, a plain user must not disable accounts", rec.Code)
	}
}

func TestDisable_AsAdmin(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "admin@example.com", "Secret123!")
	f.registerUser(t, "bob@example.com", "Secret123!")
	var bobID string
	for id, u := range f.repo.users {
		switch u.Email {
		case "admin@example.com":
			u.Role = domain.RoleAdmin
		case "bob@example.com":
			bobID = id
		}
	}
	login := f.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "Secret123!",
	})
	access, _ := decodeTokens(t, login)

	rec := f.do(t, "POST", "/users/"+bobID+"/disable", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Bob's still-valid token no longer opens the door.
	bobToken, err := f.tokens.IssueAccess("bob@example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec := f.do(t, "GET", "/auth/me", bobToken, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("disabled account with valid token: status = %d, want 401", rec.Code)
	}

	var sawDisable bool
	for _, e := range f.recorder.all() {
		if e.Action == auditdomain.ActionDisable {
			sawDisable = true
		}
	}
	if !sawDisable {
		t.Error("disable must record a DISABLE audit entry")
	}
}

func TestLogout_RecordsEvent(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "alice@example.com", "Secret123!")
	login := f.do(t, "POST", "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "Secret123!",
	})
	access, _ := decodeTokens(t, login)

	rec := f.do(t, "POST", "/auth/logout", access, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	var sawLogout bool
	for _, e := range f.recorder.all() {
		if e.Action == auditdomain.ActionLogout {
			sawLogout = true
		}
	}
	if !sawLogout {
		t.Error("logout must record a LOGOUT audit entry")
	}
}
