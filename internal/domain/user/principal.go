package user

import (
	"slices"
	"strings"
)

// Principal is the acting identity used for one authorization decision.
// It is either central (TenantID == "") or scoped to a tenant membership.
type Principal struct {
	UserID      int64    `json:"user_id"`
	Email       string   `json:"email"`
	TenantID    string   `json:"tenant_id,omitempty"`
	MemberID    int64    `json:"member_id,omitempty"`
	ExternalUID *int64   `json:"external_uid,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// CentralPrincipal builds the principal for a central user.
func CentralPrincipal(u *User) *Principal {
	return &Principal{
		UserID:      u.ID,
		Email:       u.Email,
		Roles:       u.Roles,
		Permissions: u.Permissions,
	}
}

// ScopedPrincipal builds the tenant-scoped principal for central's
// membership m. Central roles and permissions do not carry over.
func ScopedPrincipal(central *Principal, m *Member) *Principal {
	return &Principal{
		UserID:      central.UserID,
		Email:       central.Email,
		TenantID:    m.TenantID,
		MemberID:    m.ID,
		ExternalUID: m.ExternalUID,
		Roles:       m.Roles,
		Permissions: m.Permissions,
	}
}

// Scoped reports whether the principal is a tenant membership.
func (p *Principal) Scoped() bool {
	return p.TenantID != ""
}

// HasRole reports whether the principal holds role.
func (p *Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// IsSuperAdmin reports whether the principal bypasses permission checks.
func (p *Principal) IsSuperAdmin() bool {
	return p.HasRole(RoleSuperAdmin)
}

// HasPermission reports an exact permission assignment.
func (p *Principal) HasPermission(name string) bool {
	return slices.Contains(p.Permissions, name)
}

// HasPermissionPrefix reports whether any assigned permission starts with prefix.
func (p *Principal) HasPermissionPrefix(prefix string) bool {
	for _, perm := range p.Permissions {
		if strings.HasPrefix(perm, prefix) {
			return true
		}
	}
	return false
}
