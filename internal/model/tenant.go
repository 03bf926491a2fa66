package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TenantType string

const (
	TenantSupplier        TenantType = "supplier"
	TenantCompany         TenantType = "company"
	TenantServiceProvider TenantType = "service_provider"
)

func (t TenantType) Valid() bool {
	switch t {
	case TenantSupplier, TenantCompany, TenantServiceProvider:
		return true
	}
	return false
}

// Sells reports whether tenants of this type own catalog listings.
func (t TenantType) Sells() bool {
	return t == TenantSupplier || t == TenantServiceProvider
}

// ApprovalStatus is shared by tenants and users.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusActive   ApprovalStatus = "active"
	StatusRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	return s == StatusPending || s == StatusActive || s == StatusRejected
}

// Tenant is a supplier, company or service-provider organization account.
type Tenant struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name            string         `json:"name" gorm:"type:varchar(200);not null;index"`
	Type            TenantType     `json:"type" gorm:"type:varchar(32);not null;index"`
	Email           string         `json:"email" gorm:"type:varchar(200);not null;uniqueIndex"`
	Phone           string         `json:"phone,omitempty" gorm:"type:varchar(40)"`
	Address         string         `json:"address,omitempty" gorm:"type:text"`
	Status          ApprovalStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	IsActive        bool           `json:"is_active" gorm:"not null"`
	ApprovedBy      *uuid.UUID     `json:"approved_by,omitempty" gorm:"type:uuid"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	RejectedBy      *uuid.UUID     `json:"rejected_by,omitempty" gorm:"type:uuid"`
	RejectedAt      *time.Time     `json:"rejected_at,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty" gorm:"type:text"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (t *Tenant) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Operational reports whether the tenant may transact: approved and not
// switched off. A rejected tenant is never operational whatever IsActive says.
func (t *Tenant) Operational() bool {
	return t.Status == StatusActive && t.IsActive
}
