package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"personnel-registry/backend/internal/account/domain"
	"personnel-registry/backend/internal/account/repository"
	"personnel-registry/backend/internal/audit"
	auditdomain "personnel-registry/backend/internal/audit/domain"
	"personnel-registry/backend/internal/platform/rbac"
	"personnel-registry/backend/internal/security"
)

// Sentinel errors for the account service; the handler maps them to HTTP statuses.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrInvalidCredentials is deliberately generic: it does not distinguish an
	// unknown account from a wrong password, to avoid account-enumeration leakage.
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrPrincipalNotFound   = errors.New("account not found")
	ErrPrincipalDisabled   = errors.New("account is disabled")
	ErrPermissionDenied    = errors.New("permission denied")
)

const usersTable = "users"

// AuthResult holds the outcome of a successful Authenticate or Refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Principal    *domain.Principal
}

// AccountService implements registration, login, refresh, logout, password change,
// and enable/disable for user accounts, recording an audit event for each mutation.
type AccountService struct {
	repo     repository.Repository
	hasher   *security.Hasher
	tokens   *security.TokenService
	recorder audit.Recorder
}

// NewAccountService returns an AccountService with the given dependencies.
// recorder may be nil (audit disabled, e.g. in some tests).
func NewAccountService(repo repository.Repository, hasher *security.Hasher, tokens *security.TokenService, recorder audit.Recorder) *AccountService {
	return &AccountService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
	}
}

// userSnapshot is the audit view of a user. It must never carry the credential blob.
type userSnapshot struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	Status    string `json:"status"`
}

func snapshot(u *domain.User) userSnapshot {
	return userSnapshot{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		Status:    string(u.Status),
	}
}

// Register creates a user account with the given email and password.
// The password must pass the strength policy before it is hashed.
func (s *AccountService) Register(ctx context.Context, email, password, firstName, lastName string, client audit.ClientMeta) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := security.CheckPasswordStrength(password, firstName, lastName); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindBySubject(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Role:         domain.RoleUser,
		Status:       domain.UserStatusActive,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.record(audit.Entry{
		Actor:       actorOf(domain.PrincipalOf(user)),
		Table:       usersTable,
		RecordID:    user.ID,
		Action:      auditdomain.ActionInsert,
		After:       snapshot(user),
		Description: "account registered",
		Client:      client,
	})
	return user, nil
}

// Authenticate verifies email/password and returns fresh access and refresh tokens.
// Unknown accounts, disabled accounts, and wrong passwords all fail with
// ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, email, password string, client audit.ClientMeta) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.repo.FindBySubject(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	result, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	s.record(audit.Entry{
		Actor:       actorOf(result.Principal),
		Table:       usersTable,
		RecordID:    user.ID,
		Action:      auditdomain.ActionLogin,
		Description: "login",
		Client:      client,
	})
	return result, nil
}

// Refresh validates the refresh token against the account it names and issues a
// new token pair. Tokens are stateless, so this is the only rotation point.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string, client audit.ClientMeta) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	subject, err := s.tokens.ExtractSubject(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.repo.FindBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, ErrPrincipalDisabled
	}
	if !s.tokens.Validate(refreshToken, user.Email) {
		return nil, ErrInvalidRefreshToken
	}
	return s.issueTokens(user)
}

// Logout records the logout; token invalidation itself is a client-side discard,
// since tokens are stateless until expiry.
func (s *AccountService) Logout(ctx context.Context, actor *domain.Principal, client audit.ClientMeta) {
	if actor == nil {
		return
	}
	s.record(audit.Entry{
		Actor:       actorOf(actor),
		Table:       usersTable,
		RecordID:    actor.ID,
		Action:      auditdomain.ActionLogout,
		Description: "logout",
		Client:      client,
	})
}

// ChangePassword verifies the current password, checks the replacement against
// the strength policy (including the account holder's names), and replaces the
// stored credential blob wholesale.
func (s *AccountService) ChangePassword(ctx context.Context, subject, current, next string, client audit.ClientMeta) error {
	user, err := s.repo.FindBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := security.CheckPasswordStrength(next, user.FirstName, user.LastName); err != nil {
		return err
	}
	hashed, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}
	s.record(audit.Entry{
		Actor:       actorOf(domain.PrincipalOf(user)),
		Table:       usersTable,
		RecordID:    user.ID,
		Action:      auditdomain.ActionChangePassword,
		Description: "password changed",
		Client:      client,
	})
	return nil
}

// SetStatus enables or disables the target account. Only an admin may do this;
// the audit event carries before/after snapshots of the account.
func (s *AccountService) SetStatus(ctx context.Context, actor *domain.Principal, targetID string, enable bool, client audit.ClientMeta) (*domain.User, error) {
	if !rbac.IsAdmin(actor) {
		return nil, ErrPermissionDenied
	}
	user, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	before := snapshot(user)
	status := domain.UserStatusDisabled
	action := auditdomain.ActionDisable
	if enable {
		status = domain.UserStatusActive
		action = auditdomain.ActionEnable
	}
	if err := s.repo.UpdateStatus(ctx, user.ID, status); err != nil {
		return nil, err
	}
	user.Status = status
	s.record(audit.Entry{
		Actor:       actorOf(actor),
		Table:       usersTable,
		RecordID:    user.ID,
		Action:      action,
		Before:      before,
		After:       snapshot(user),
		Description: fmt.Sprintf("account %s", status),
		Client:      client,
	})
	return user, nil
}

// issueTokens builds the access/refresh pair for an active user.
func (s *AccountService) issueTokens(user *domain.User) (*AuthResult, error) {
	principal := domain.PrincipalOf(user)
	access, err := s.tokens.IssueAccess(user.Email, map[string]any{
		"role": string(user.Role),
		"name": user.FullName(),
	})
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().UTC().Add(s.tokens.AccessTTL()),
		Principal:    principal,
	}, nil
}

func (s *AccountService) record(entry audit.Entry) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(entry)
}

func actorOf(p *domain.Principal) audit.Actor {
	if p == nil {
		return audit.Actor{}
	}
	return audit.Actor{ID: p.ID, Email: p.Subject, Name: p.Name}
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}
