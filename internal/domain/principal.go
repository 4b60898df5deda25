package domain

import "github.com/google/uuid"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the authenticated identity resolved from a credential.
type Principal struct {
	UserID   uuid.UUID
	IsAdmin  bool
	IsActive bool
}

// Role reports the highest role held by the principal.
func (p *Principal) Role() Role {
	if p.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Authorize reports whether the principal may act with the required role.
// Inactive principals are never authorized.
func (p *Principal) Authorize(required Role) bool {
	if p == nil || !p.IsActive {
		return false
	}
	switch required {
	case RoleAdmin:
		return p.IsAdmin
	case RoleUser:
		return true
	default:
		return false
	}
}

// CanAccessUser reports whether the principal may read or modify the account with the given id.
func (p *Principal) CanAccessUser(id uuid.UUID) bool {
	return p.Authorize(RoleAdmin) || (p.Authorize(RoleUser) && p.UserID == id)
}
