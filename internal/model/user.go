package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleSuperAdmin           Role = "super_admin"
	RoleSupplierAdmin        Role = "supplier_admin"
	RoleSupplierStaff        Role = "supplier_staff"
	RoleCompanyAdmin         Role = "company_admin"
	RoleCompanyStaff         Role = "company_staff"
	RoleServiceProviderAdmin Role = "service_provider_admin"
	RoleServiceProviderStaff Role = "service_provider_staff"
	RoleCustomer             Role = "customer"
)

var roleTenantType = map[Role]TenantType{
	RoleSupplierAdmin:        TenantSupplier,
	RoleSupplierStaff:        TenantSupplier,
	RoleCompanyAdmin:         TenantCompany,
	RoleCompanyStaff:         TenantCompany,
	RoleServiceProviderAdmin: TenantServiceProvider,
	RoleServiceProviderStaff: TenantServiceProvider,
}

func (r Role) Valid() bool {
	if r == RoleSuperAdmin || r == RoleCustomer {
		return true
	}
	_, ok := roleTenantType[r]
	return ok
}

// IsTenantAdmin reports whether r administers a tenant.
func (r Role) IsTenantAdmin() bool {
	return r == RoleSupplierAdmin || r == RoleCompanyAdmin || r == RoleServiceProviderAdmin
}

// AdminRoleFor returns the administrator role for a tenant type.
func AdminRoleFor(t TenantType) Role {
	switch t {
	case TenantSupplier:
		return RoleSupplierAdmin
	case TenantCompany:
		return RoleCompanyAdmin
	default:
		return RoleServiceProviderAdmin
	}
}

// StaffRoleFor returns the staff role for a tenant type.
func StaffRoleFor(t TenantType) Role {
	switch t {
	case TenantSupplier:
		return RoleSupplierStaff
	case TenantCompany:
		return RoleCompanyStaff
	default:
		return RoleServiceProviderStaff
	}
}

// RoleMatchesTenant checks that a role is consistent with the tenant it is
// attached to. super_admin and customer must have no tenant.
func RoleMatchesTenant(r Role, tenantType *TenantType) error {
	want, scoped := roleTenantType[r]
	switch {
	case !r.Valid():
		return fmt.Errorf("unknown role %q", r)
	case !scoped && tenantType != nil:
		return fmt.Errorf("role %q cannot belong to a tenant", r)
	case scoped && tenantType == nil:
		return fmt.Errorf("role %q requires a %s tenant", r, want)
	case scoped && *tenantType != want:
		return fmt.Errorf("role %q requires a %s tenant, got %s", r, want, *tenantType)
	}
	return nil
}

// User is an account. TenantID is nil for super_admin and customer.
type User struct {
	ID              uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	Email           string            `json:"email" gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash    string            `json:"-" gorm:"type:varchar(255);not null"`
	FirstName       string            `json:"first_name,omitempty" gorm:"type:varchar(100)"`
	LastName        string            `json:"last_name,omitempty" gorm:"type:varchar(100)"`
	Role            Role              `json:"role" gorm:"type:varchar(32);not null;index"`
	TenantID        *uuid.UUID        `json:"tenant_id,omitempty" gorm:"type:uuid;index"`
	Status          ApprovalStatus    `json:"status" gorm:"type:varchar(16);not null;index"`
	IsActive        bool              `json:"is_active" gorm:"not null"`
	Permissions     datatypes.JSONMap `json:"permissions"`
	ApprovedBy      *uuid.UUID        `json:"approved_by,omitempty" gorm:"type:uuid"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
	RejectedBy      *uuid.UUID        `json:"rejected_by,omitempty" gorm:"type:uuid"`
	RejectedAt      *time.Time        `json:"rejected_at,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty" gorm:"type:text"`
	LastLoginAt     *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`

	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID;constraint:OnDelete:RESTRICT"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
