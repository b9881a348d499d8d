package rbac

import (
	"testing"

	"personnel-registry/backend/internal/account/domain"
)

func principal(role domain.Role, active bool) *domain.Principal {
	return &domain.Principal{
		ID:      "u1",
		Subject: "alice@example.com",
		Name:    "Alice Smith",
		Role:    role,
		Active:  active,
	}
}

func TestIsAdmin(t *testing.T) {
	if !IsAdmin(principal(domain.RoleAdmin, true)) {
		t.Error("active admin should pass IsAdmin")
	}
	if IsAdmin(principal(domain.RoleSupport, true)) {
		t.Error("support is not admin")
	}
	if IsAdmin(principal(domain.RoleAdmin, false)) {
		t.Error("inactive admin must fail closed")
	}
	if IsAdmin(nil) {
		t.Error("nil principal must fail closed")
	}
	if IsAdmin(principal("", true)) {
		t.Error("principal with no role is authorized for nothing privileged")
	}
}

func TestIsAdminOrSupport(t *testing.T) {
	if !IsAdminOrSupport(principal(domain.RoleAdmin, true)) {
		t.Error("admin should pass")
	}
	if !IsAdminOrSupport(principal(domain.RoleSupport, true)) {
		t.Error("support should pass")
	}
	if IsAdminOrSupport(principal(domain.RoleUser, true)) {
		t.Error("plain user should not pass")
	}
	if IsAdminOrSupport(nil) {
		t.Error("nil principal must fail closed")
	}
}

func TestIsOwner(t *testing.T) {
	p := principal(domain.RoleUser, true)
	if !IsOwner(p, "alice@example.com") {
		t.Error("subject matching owner should pass")
	}
	if IsOwner(p, "bob@example.com") {
		t.Error("different owner should fail")
	}
	if IsOwner(p, "") {
		t.Error("empty owner never matches")
	}
	if IsOwner(nil, "alice@example.com") {
		t.Error("nil principal must fail closed")
	}
	if IsOwner(principal(domain.RoleUser, false), "alice@example.com") {
		t.Error("inactive principal must fail closed")
	}
}

func TestCanAccessResource(t *testing.T) {
	owner := principal(domain.RoleUser, true)
	if !CanAccessResource(owner, "alice@example.com") {
		t.Error("owner should access their own resource")
	}
	if CanAccessResource(owner, "bob@example.com") {
		t.Error("plain user should not access another user's resource")
	}
	if !CanAccessResource(principal(domain.RoleSupport, true), "bob@example.com") {
		t.Error("support should access any resource")
	}
	if !CanAccessResource(principal(domain.RoleAdmin, true), "bob@example.com") {
		t.Error("admin should access any resource")
	}
}
