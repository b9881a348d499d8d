// Package handler exposes a read-only view of the audit trail for ops spot-checks.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	auditrepo "personnel-registry/backend/internal/audit/repository"
	"personnel-registry/backend/internal/platform/rbac"
	"personnel-registry/backend/internal/server/middleware"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// AuditHandler lists recent audit events. Admin or support only; the application
// itself never updates or deletes events.
type AuditHandler struct {
	repo auditrepo.Repository
}

// NewAuditHandler constructs an AuditHandler over the audit repository.
func NewAuditHandler(repo auditrepo.Repository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

// Routes registers the audit routes on the given router.
func (h *AuditHandler) Routes(r chi.Router) {
	r.Get("/audit/events", h.ListRecent)
}

// ListRecent returns the newest audit events, paginated with limit/offset query params.
func (h *AuditHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !rbac.IsAdminOrSupport(principal) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	limit := queryInt(r, "limit", defaultLimit)
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	events, err := h.repo.ListRecent(r.Context(), int32(limit), int32(offset))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit events")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(events)
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
