// Package rbac holds the authorization guard: the closed set of predicates
// consulted before privileged mutations. Callers depend on these functions, never
// on role string literals.
package rbac

import "personnel-registry/backend/internal/account/domain"

// IsAdmin reports whether p is an active administrator. Nil or inactive
// principals are authorized for nothing (fail closed).
func IsAdmin(p *domain.Principal) bool {
	if p == nil || !p.Active {
		return false
	}
	return p.Role == domain.RoleAdmin
}

// IsAdminOrSupport reports whether p is an active administrator or support user.
func IsAdminOrSupport(p *domain.Principal) bool {
	if p == nil || !p.Active {
		return false
	}
	return p.Role == domain.RoleAdmin || p.Role == domain.RoleSupport
}

// IsOwner reports whether p is the owner of the resource identified by
// ownerSubject. An empty ownerSubject never matches.
func IsOwner(p *domain.Principal, ownerSubject string) bool {
	if p == nil || !p.Active || ownerSubject == "" {
		return false
	}
	return p.Subject == ownerSubject
}

// CanAccessResource reports whether p may read or write a resource owned by
// ownerSubject: the owner themselves, or an admin/support principal.
func CanAccessResource(p *domain.Principal, ownerSubject string) bool {
	return IsOwner(p, ownerSubject) || IsAdminOrSupport(p)
}
