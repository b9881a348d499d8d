// Package handler exposes the account service over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"personnel-registry/backend/internal/account/domain"
	"personnel-registry/backend/internal/account/service"
	"personnel-registry/backend/internal/audit"
	"personnel-registry/backend/internal/security"
	"personnel-registry/backend/internal/server/middleware"
)

// AccountHandler provides authentication and account-administration endpoints.
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler constructs an AccountHandler over the account service.
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Routes registers the account routes on the given router. The authentication
// middleware is expected to run above this router; privileged routes enforce
// authorization themselves.
func (h *AccountHandler) Routes(r chi.Router) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/logout", h.Logout)
	r.Post("/auth/change-password", h.ChangePassword)
	r.Get("/auth/me", h.Me)
	r.Post("/users/{id}/enable", h.Enable)
	r.Post("/users/{id}/disable", h.Disable)
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type tokenResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	ExpiresAt    time.Time     `json:"expiresAt"`
	User         principalView `json:"user"`
}

type principalView struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

func viewOf(p *domain.Principal) principalView {
	return principalView{
		ID:     p.ID,
		Email:  p.Subject,
		Name:   p.Name,
		Role:   string(p.Role),
		Active: p.Active,
	}
}

// Register creates a new account.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	user, err := h.accounts.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName, audit.ClientMetaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyRegistered):
			writeError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, security.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "password does not meet the strength policy")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(domain.PrincipalOf(user)))
}

// Login verifies credentials and returns an access/refresh token pair.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	result, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password, audit.ClientMetaFromRequest(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    result.ExpiresAt,
		User:         viewOf(result.Principal),
	})
}

// Refresh rotates a refresh token into a new token pair.
func (h *AccountHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	result, err := h.accounts.Refresh(r.Context(), req.RefreshToken, audit.ClientMetaFromRequest(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) || errors.Is(err, service.ErrPrincipalDisabled) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to refresh")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    result.ExpiresAt,
		User:         viewOf(result.Principal),
	})
}

// Logout records the logout event. Tokens are stateless; the client discards them.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.accounts.Logout(r.Context(), principal, audit.ClientMetaFromRequest(r))
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword replaces the caller's own credential.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	err := h.accounts.ChangePassword(r.Context(), principal.Subject, req.CurrentPassword, req.NewPassword, audit.ClientMetaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, security.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "password does not meet the strength policy")
		default:
			writeError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's principal.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(principal))
}

// Enable re-activates the target account (admin only).
func (h *AccountHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, true)
}

// Disable deactivates the target account (admin only).
func (h *AccountHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, false)
}

func (h *AccountHandler) setStatus(w http.ResponseWriter, r *http.Request, enable bool) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	user, err := h.accounts.SetStatus(r.Context(), principal, targetID, enable, audit.ClientMetaFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "forbidden")
		case errors.Is(err, service.ErrPrincipalNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update account")
		}
		return
	}
	writeJSON(w, http.StatusOK, viewOf(domain.PrincipalOf(user)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
