package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
)

// DirectoryService lists the tenants users can trade with.
type DirectoryService struct {
	*deps
}

// TenantSummary is the public face of a tenant.
type TenantSummary struct {
	ID    uuid.UUID        `json:"id"`
	Name  string           `json:"name"`
	Type  model.TenantType `json:"type"`
	Email string           `json:"email"`
	Phone string           `json:"phone,omitempty"`
}

// ListTenants returns operational tenants, optionally of one type.
func (s *DirectoryService) ListTenants(ctx context.Context, tenantType *model.TenantType) ([]TenantSummary, error) {
	if tenantType != nil && !tenantType.Valid() {
		return nil, apperr.Invalid("unknown tenant type %q", *tenantType)
	}
	active, on := model.StatusActive, true
	tenants, err := s.repo.ListTenants(ctx, repository.TenantFilter{Type: tenantType, Status: &active, IsActive: &on})
	if err != nil {
		return nil, err
	}
	out := make([]TenantSummary, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, TenantSummary{ID: t.ID, Name: t.Name, Type: t.Type, Email: t.Email, Phone: t.Phone})
	}
	return out, nil
}

// GetTenant returns a tenant in full to its own users and super admins, and
// only operational tenants to everyone else.
func (s *DirectoryService) GetTenant(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Tenant, error) {
	t, err := s.repo.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsSuperAdmin() || actor.BelongsTo(id) || t.Operational() {
		return t, nil
	}
	return nil, apperr.NotFound("tenant not found")
}
