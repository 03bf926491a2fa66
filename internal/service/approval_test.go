package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
)

const testPassword = "s3cret-pass"

func (f *fixture) registerSupplier(email string) *Registration {
	f.t.Helper()
	reg, err := f.svc.Auth.Register(f.ctx, RegisterInput{
		Email:      email,
		Password:   testPassword,
		FirstName:  "Sam",
		TenantType: model.TenantSupplier,
		TenantName: "Acme Supply",
	})
	require.NoError(f.t, err)
	return reg
}

func TestRejectedSupplierCannotLogIn(t *testing.T) {
	f := newFixture(t)
	reg := f.registerSupplier("owner@acme.test")
	assert.Equal(t, model.StatusPending, reg.Tenant.Status)
	assert.Equal(t, model.RoleSupplierAdmin, reg.User.Role)

	tenant, err := f.svc.Approvals.RejectTenant(f.ctx, f.admin, reg.Tenant.ID, "incomplete documents")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, tenant.Status)
	assert.Equal(t, "incomplete documents", tenant.RejectionReason)
	require.NotNil(t, tenant.RejectedAt)

	user, err := f.repo.GetUser(f.ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, user.Status)

	_, err = f.svc.Auth.Login(f.ctx, "owner@acme.test", testPassword)
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err))

	_, err = f.svc.Approvals.ApproveTenant(f.ctx, f.admin, reg.Tenant.ID)
	assert.Equal(t, apperr.EInvalidStateTransition, apperr.ErrorCode(err))
}

func TestApprovedSupplierLogsIn(t *testing.T) {
	f := newFixture(t)
	reg := f.registerSupplier("owner@acme.test")

	_, err := f.svc.Auth.Login(f.ctx, "owner@acme.test", testPassword)
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err), "pending accounts are refused")

	tenant, err := f.svc.Approvals.ApproveTenant(f.ctx, f.admin, reg.Tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, tenant.Status)
	assert.True(t, tenant.IsActive)

	res, err := f.svc.Auth.Login(f.ctx, "OWNER@acme.test", testPassword)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, res.User.Status)
	require.NotNil(t, res.User.LastLoginAt)

	claims, err := f.jwt.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, string(model.RoleSupplierAdmin), claims.Role)
	assert.Equal(t, string(model.TenantSupplier), claims.TenantType)
	assert.True(t, claims.Permissions[string(model.PermAdmin)])

	_, err = f.svc.Auth.Login(f.ctx, "owner@acme.test", "wrong-password")
	assert.Equal(t, apperr.EUnauthorized, apperr.ErrorCode(err))
	_, err = f.svc.Auth.Login(f.ctx, "nobody@acme.test", testPassword)
	assert.Equal(t, apperr.EUnauthorized, apperr.ErrorCode(err))
}

func TestToggleTenantStatus(t *testing.T) {
	f := newFixture(t)
	reg := f.registerSupplier("owner@acme.test")

	_, err := f.svc.Approvals.ToggleTenantStatus(f.ctx, f.admin, reg.Tenant.ID)
	assert.Equal(t, apperr.EInvalidStateTransition, apperr.ErrorCode(err), "pending tenants cannot be toggled")

	_, err = f.svc.Approvals.ApproveTenant(f.ctx, f.admin, reg.Tenant.ID)
	require.NoError(t, err)

	tenant, err := f.svc.Approvals.ToggleTenantStatus(f.ctx, f.admin, reg.Tenant.ID)
	require.NoError(t, err)
	assert.False(t, tenant.IsActive)
	assert.Equal(t, model.StatusActive, tenant.Status)

	_, err = f.svc.Auth.Login(f.ctx, "owner@acme.test", testPassword)
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err), "inactive tenants cannot log in")

	tenant, err = f.svc.Approvals.ToggleTenantStatus(f.ctx, f.admin, reg.Tenant.ID)
	require.NoError(t, err)
	assert.True(t, tenant.IsActive)

	_, err = f.svc.Auth.Login(f.ctx, "owner@acme.test", testPassword)
	assert.NoError(t, err)
}

func TestTenantDecisionsRequireSuperAdmin(t *testing.T) {
	f := newFixture(t)
	reg := f.registerSupplier("owner@acme.test")
	other := f.adminOf(f.tenant(model.TenantCompany, "BuildCo"))

	_, err := f.svc.Approvals.ApproveTenant(f.ctx, other, reg.Tenant.ID)
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err))
	_, err = f.svc.Approvals.RejectTenant(f.ctx, other, reg.Tenant.ID, "no")
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err))
	_, err = f.svc.Approvals.ListTenants(f.ctx, other, repository.TenantFilter{})
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err))

	_, err = f.svc.Approvals.ApproveTenant(f.ctx, f.admin, uuid.New())
	assert.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   RegisterInput
		code string
	}{
		{"bad email", RegisterInput{Email: "not-an-email", Password: testPassword}, apperr.EInvalid},
		{"short password", RegisterInput{Email: "a@b.test", Password: "short"}, apperr.EInvalid},
		{"unknown tenant type", RegisterInput{Email: "a@b.test", Password: testPassword, TenantType: "bank", TenantName: "X"}, apperr.EInvalid},
		{"missing tenant name", RegisterInput{Email: "a@b.test", Password: testPassword, TenantType: model.TenantCompany}, apperr.EInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Auth.Register(f.ctx, tt.in)
			assert.Equal(t, tt.code, apperr.ErrorCode(err))
		})
	}

	reg, err := f.svc.Auth.Register(f.ctx, RegisterInput{Email: "buyer@home.test", Password: testPassword})
	require.NoError(t, err)
	assert.Nil(t, reg.Tenant)
	assert.Equal(t, model.RoleCustomer, reg.User.Role)
	assert.Equal(t, model.StatusPending, reg.User.Status)

	_, err = f.svc.Auth.Register(f.ctx, RegisterInput{Email: "Buyer@Home.test", Password: testPassword})
	assert.Equal(t, apperr.EConflict, apperr.ErrorCode(err))
}

func TestUserApprovalScope(t *testing.T) {
	f := newFixture(t)
	supplier := f.tenant(model.TenantSupplier, "Acme Supply")
	rival := f.tenant(model.TenantSupplier, "Rival Supply")
	owner := f.adminOf(supplier)

	staff, err := f.svc.Approvals.CreateStaffUser(f.ctx, owner, CreateStaffInput{
		Email:    "staff@acme.test",
		Password: testPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleSupplierStaff, staff.Role)
	assert.Equal(t, supplier.ID, *staff.TenantID)
	assert.Equal(t, model.StatusActive, staff.Status)

	_, err = f.svc.Approvals.ToggleUserStatus(f.ctx, f.adminOf(rival), staff.ID)
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err))

	_, err = f.svc.Approvals.ToggleUserStatus(f.ctx, f.staffOf(supplier), staff.ID)
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err), "staff cannot administer")

	toggled, err := f.svc.Approvals.ToggleUserStatus(f.ctx, owner, staff.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	_, err = f.svc.Auth.Login(f.ctx, "staff@acme.test", testPassword)
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err))

	self := model.Actor{UserID: staff.ID, Role: model.RoleSuperAdmin}
	_, err = f.svc.Approvals.ToggleUserStatus(f.ctx, self, staff.ID)
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err))

	users, err := f.svc.Approvals.ListUsers(f.ctx, f.adminOf(rival), repository.UserFilter{})
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = f.svc.Approvals.ListUsers(f.ctx, owner, repository.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = f.svc.Approvals.CreateStaffUser(f.ctx, owner, CreateStaffInput{Email: "staff@acme.test", Password: testPassword})
	assert.Equal(t, apperr.EConflict, apperr.ErrorCode(err))
}

func TestApproveAndRejectUser(t *testing.T) {
	f := newFixture(t)
	reg := f.registerSupplier("owner@acme.test")

	_, err := f.svc.Approvals.ApproveUser(f.ctx, f.admin, reg.User.ID)
	assert.Equal(t, apperr.EInvalid, apperr.ErrorCode(err), "tenant still pending")

	customer, err := f.svc.Auth.Register(f.ctx, RegisterInput{Email: "buyer@home.test", Password: testPassword})
	require.NoError(t, err)

	approved, err := f.svc.Approvals.ApproveUser(f.ctx, f.admin, customer.User.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, approved.Status)
	assert.True(t, approved.IsActive)

	_, err = f.svc.Approvals.RejectUser(f.ctx, f.admin, customer.User.ID, "duplicate")
	assert.Equal(t, apperr.EInvalidStateTransition, apperr.ErrorCode(err))

	res, err := f.svc.Auth.Login(f.ctx, "buyer@home.test", testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	other, err := f.svc.Auth.Register(f.ctx, RegisterInput{Email: "late@home.test", Password: testPassword})
	require.NoError(t, err)
	rejected, err := f.svc.Approvals.RejectUser(f.ctx, f.admin, other.User.ID, "spam")
	require.NoError(t, err)
	assert.Equal(t, "spam", rejected.RejectionReason)
}

func TestSetUserPermissions(t *testing.T) {
	f := newFixture(t)
	supplier := f.tenant(model.TenantSupplier, "Acme Supply")
	owner := f.adminOf(supplier)
	staff, err := f.svc.Approvals.CreateStaffUser(f.ctx, owner, CreateStaffInput{Email: "staff@acme.test", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"view": true, "create": false, "admin": false}, model.PermissionFlags(staff.Permissions))

	updated, err := f.svc.Approvals.SetUserPermissions(f.ctx, owner, staff.ID, map[string]bool{"admin": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"view": true, "create": true, "admin": true}, model.PermissionFlags(updated.Permissions))

	_, err = f.svc.Approvals.SetUserPermissions(f.ctx, owner, staff.ID, map[string]bool{"delete": true})
	assert.Equal(t, apperr.EInvalid, apperr.ErrorCode(err))
}
