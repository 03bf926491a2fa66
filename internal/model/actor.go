package model

import "github.com/google/uuid"

// Actor is the authenticated caller of a domain operation. It is built by
// the auth middleware and passed explicitly to every service call.
type Actor struct {
	UserID      uuid.UUID
	Email       string
	Role        Role
	TenantID    *uuid.UUID
	TenantType  TenantType
	Permissions map[string]bool
}

func (a Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// BelongsTo reports whether the actor acts on behalf of tenant id.
func (a Actor) BelongsTo(id uuid.UUID) bool {
	return a.TenantID != nil && *a.TenantID == id
}

// Can reports whether the actor holds permission p. Super admins and tenant
// admins hold every permission; staff hold what was granted to them.
func (a Actor) Can(p Permission) bool {
	if a.IsSuperAdmin() || a.Role.IsTenantAdmin() {
		return true
	}
	return a.Permissions[string(p)]
}

// CompanyID returns the actor's tenant when the actor acts for a company.
func (a Actor) CompanyID() *uuid.UUID {
	if a.TenantID != nil && a.TenantType == TenantCompany {
		id := *a.TenantID
		return &id
	}
	return nil
}

// ActorFor builds the actor a stored user acts as. u.Tenant must be loaded
// for tenant users.
func ActorFor(u *User) Actor {
	a := Actor{
		UserID:      u.ID,
		Email:       u.Email,
		Role:        u.Role,
		TenantID:    u.TenantID,
		Permissions: PermissionFlags(u.Permissions),
	}
	if u.Tenant != nil {
		a.TenantType = u.Tenant.Type
	}
	return a
}
