package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/events"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/prometheus"
)

// ApprovalService moves tenants and users through onboarding: pending
// accounts are approved or rejected, active accounts are switched on and off.
type ApprovalService struct {
	*deps
}

func (s *ApprovalService) ListTenants(ctx context.Context, actor model.Actor, f repository.TenantFilter) ([]model.Tenant, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.ListTenants(ctx, f)
}

// ApproveTenant activates a pending tenant together with its pending
// administrator accounts.
func (s *ApprovalService) ApproveTenant(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Tenant, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}

	var tenant *model.Tenant
	err := s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		var err error
		tenant, err = tx.GetTenant(ctx, id)
		if err != nil {
			return err
		}
		if tenant.Status != model.StatusPending {
			return apperr.InvalidTransition("approve tenant", string(tenant.Status))
		}

		now := s.clock()
		tenant.Status = model.StatusActive
		tenant.IsActive = true
		tenant.ApprovedBy = &actor.UserID
		tenant.ApprovedAt = &now
		if err := tx.UpdateTenant(ctx, tenant); err != nil {
			return err
		}

		pending := model.StatusPending
		users, err := tx.ListUsers(ctx, repository.UserFilter{TenantID: &tenant.ID, Status: &pending})
		if err != nil {
			return err
		}
		for i := range users {
			u := &users[i]
			if !u.Role.IsTenantAdmin() {
				continue
			}
			u.Status = model.StatusActive
			u.IsActive = true
			u.ApprovedBy = &actor.UserID
			u.ApprovedAt = &now
			if err := tx.UpdateUser(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordApproval("tenant", "approved")
	s.logFor(ctx).Info("Tenant approved",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("approved_by", actor.UserID.String()))
	return tenant, nil
}

// RejectTenant rejects a pending tenant and every pending user under it.
func (s *ApprovalService) RejectTenant(ctx context.Context, actor model.Actor, id uuid.UUID, reason string) (*model.Tenant, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)

	var tenant *model.Tenant
	err := s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		var err error
		tenant, err = tx.GetTenant(ctx, id)
		if err != nil {
			return err
		}
		if tenant.Status != model.StatusPending {
			return apperr.InvalidTransition("reject tenant", string(tenant.Status))
		}

		now := s.clock()
		tenant.Status = model.StatusRejected
		tenant.IsActive = false
		tenant.RejectedBy = &actor.UserID
		tenant.RejectedAt = &now
		tenant.RejectionReason = reason
		if err := tx.UpdateTenant(ctx, tenant); err != nil {
			return err
		}

		pending := model.StatusPending
		users, err := tx.ListUsers(ctx, repository.UserFilter{TenantID: &tenant.ID, Status: &pending})
		if err != nil {
			return err
		}
		for i := range users {
			u := &users[i]
			u.Status = model.StatusRejected
			u.IsActive = false
			u.RejectedBy = &actor.UserID
			u.RejectedAt = &now
			u.RejectionReason = reason
			if err := tx.UpdateUser(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordApproval("tenant", "rejected")
	s.logFor(ctx).Info("Tenant rejected",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("rejected_by", actor.UserID.String()),
		zap.String("reason", reason))
	return tenant, nil
}

// ToggleTenantStatus flips IsActive of an approved tenant.
func (s *ApprovalService) ToggleTenantStatus(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Tenant, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}

	var tenant *model.Tenant
	err := s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		var err error
		tenant, err = tx.GetTenant(ctx, id)
		if err != nil {
			return err
		}
		if tenant.Status != model.StatusActive {
			return apperr.InvalidTransition("toggle tenant status", string(tenant.Status))
		}
		tenant.IsActive = !tenant.IsActive
		return tx.UpdateTenant(ctx, tenant)
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordApproval("tenant", toggleDecision(tenant.IsActive))
	s.logFor(ctx).Info("Tenant status toggled",
		zap.String("tenant_id", tenant.ID.String()),
		zap.Bool("is_active", tenant.IsActive))
	return tenant, nil
}

// ListUsers lists users the actor administers: all users for a super
// admin, the own tenant's users for a tenant admin.
func (s *ApprovalService) ListUsers(ctx context.Context, actor model.Actor, f repository.UserFilter) ([]model.User, error) {
	switch {
	case actor.IsSuperAdmin():
	case actor.Role.IsTenantAdmin() && actor.TenantID != nil:
		f.TenantID = actor.TenantID
	default:
		return nil, apperr.Forbidden("admin access required")
	}
	return s.repo.ListUsers(ctx, f)
}

func (s *ApprovalService) ApproveUser(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.User, error) {
	user, err := s.updateUser(ctx, actor, id, func(tx repository.Repository, u *model.User) error {
		if u.Status != model.StatusPending {
			return apperr.InvalidTransition("approve user", string(u.Status))
		}
		if u.TenantID != nil {
			tenant, err := tx.GetTenant(ctx, *u.TenantID)
			if err != nil {
				return err
			}
			if tenant.Status != model.StatusActive {
				return apperr.Invalid("the user's tenant has not been approved")
			}
		}
		now := s.clock()
		u.Status = model.StatusActive
		u.IsActive = true
		u.ApprovedBy = &actor.UserID
		u.ApprovedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	prometheus.RecordApproval("user", "approved")
	s.logFor(ctx).Info("User approved",
		zap.String("user_id", user.ID.String()),
		zap.String("approved_by", actor.UserID.String()))
	return user, nil
}

func (s *ApprovalService) RejectUser(ctx context.Context, actor model.Actor, id uuid.UUID, reason string) (*model.User, error) {
	reason = strings.TrimSpace(reason)
	user, err := s.updateUser(ctx, actor, id, func(_ repository.Repository, u *model.User) error {
		if u.Status != model.StatusPending {
			return apperr.InvalidTransition("reject user", string(u.Status))
		}
		now := s.clock()
		u.Status = model.StatusRejected
		u.IsActive = false
		u.RejectedBy = &actor.UserID
		u.RejectedAt = &now
		u.RejectionReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	prometheus.RecordApproval("user", "rejected")
	s.logFor(ctx).Info("User rejected",
		zap.String("user_id", user.ID.String()),
		zap.String("rejected_by", actor.UserID.String()))
	return user, nil
}

// ToggleUserStatus flips IsActive of an approved user. Actors cannot switch
// themselves off.
func (s *ApprovalService) ToggleUserStatus(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.User, error) {
	if actor.UserID == id {
		return nil, apperr.Forbidden("cannot change your own status")
	}
	user, err := s.updateUser(ctx, actor, id, func(_ repository.Repository, u *model.User) error {
		if u.Status != model.StatusActive {
			return apperr.InvalidTransition("toggle user status", string(u.Status))
		}
		u.IsActive = !u.IsActive
		return nil
	})
	if err != nil {
		return nil, err
	}
	prometheus.RecordApproval("user", toggleDecision(user.IsActive))
	return user, nil
}

// SetUserPermissions replaces a staff user's permission flags. Requested
// flags are closed downwards so admin implies create implies view.
func (s *ApprovalService) SetUserPermissions(ctx context.Context, actor model.Actor, id uuid.UUID, requested map[string]bool) (*model.User, error) {
	perms, err := model.NormalizePermissions(requested)
	if err != nil {
		return nil, apperr.Invalid("%s", err.Error())
	}
	user, err := s.updateUser(ctx, actor, id, func(_ repository.Repository, u *model.User) error {
		if u.TenantID == nil || u.Role.IsTenantAdmin() {
			return apperr.Invalid("permissions can only be set on staff users")
		}
		u.Permissions = perms
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logFor(ctx).Info("User permissions updated",
		zap.String("user_id", user.ID.String()),
		zap.Any("permissions", user.Permissions))
	return user, nil
}

// CreateStaffInput describes a staff account. TenantID is only honoured for
// super admins; tenant admins always create staff in their own tenant.
type CreateStaffInput struct {
	Email       string          `json:"email" validate:"required,email"`
	Password    string          `json:"password" validate:"required,min=8"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	TenantID    *uuid.UUID      `json:"tenant_id"`
	Permissions map[string]bool `json:"permissions"`
}

// CreateStaffUser adds an already approved staff user to a tenant.
func (s *ApprovalService) CreateStaffUser(ctx context.Context, actor model.Actor, in CreateStaffInput) (*model.User, error) {
	tenantID := actor.TenantID
	switch {
	case actor.IsSuperAdmin():
		tenantID = in.TenantID
		if tenantID == nil {
			return nil, apperr.Invalid("tenant id is required")
		}
	case actor.Role.IsTenantAdmin() && actor.TenantID != nil:
	default:
		return nil, apperr.Forbidden("admin access required")
	}

	perms := model.DefaultStaffPermissions()
	if len(in.Permissions) > 0 {
		var err error
		if perms, err = model.NormalizePermissions(in.Permissions); err != nil {
			return nil, apperr.Invalid("%s", err.Error())
		}
	}
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		tenant, err := tx.GetTenant(ctx, *tenantID)
		if err != nil {
			return err
		}
		if !tenant.Operational() {
			return apperr.Invalid("staff can only be added to an active tenant")
		}
		taken, err := tx.UserEmailExists(ctx, in.Email)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("email already registered")
		}

		now := s.clock()
		user = &model.User{
			Email:        in.Email,
			PasswordHash: hash,
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			Role:         model.StaffRoleFor(tenant.Type),
			TenantID:     &tenant.ID,
			Status:       model.StatusActive,
			IsActive:     true,
			Permissions:  perms,
			ApprovedBy:   &actor.UserID,
			ApprovedAt:   &now,
		}
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logFor(ctx).Info("Staff user created",
		zap.String("user_id", user.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("role", string(user.Role)))
	return user, nil
}

// updateUser loads a user the actor may administer, applies change and saves
// it in one transaction.
func (s *ApprovalService) updateUser(ctx context.Context, actor model.Actor, id uuid.UUID, change func(tx repository.Repository, u *model.User) error) (*model.User, error) {
	var user *model.User
	err := s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		var err error
		user, err = tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if err := canAdminister(actor, user); err != nil {
			return err
		}
		if err := change(tx, user); err != nil {
			return err
		}
		user.Tenant = nil
		return tx.UpdateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func canAdminister(actor model.Actor, u *model.User) error {
	if actor.IsSuperAdmin() {
		return nil
	}
	if actor.Role.IsTenantAdmin() && u.TenantID != nil && actor.BelongsTo(*u.TenantID) {
		return nil
	}
	return apperr.Forbidden("cannot administer this user")
}

func toggleDecision(active bool) string {
	if active {
		return "activated"
	}
	return "deactivated"
}
