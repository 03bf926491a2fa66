package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/events"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/testutil"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/config"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/jwtutil"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	repo   repository.Repository
	events *events.Recorder
	jwt    *jwtutil.JWTUtil
	svc    *Services
	now    time.Time
	admin  model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		repo:   repository.New(testutil.NewDB(t)),
		events: &events.Recorder{},
		jwt:    jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1}),
		now:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		admin:  model.Actor{UserID: uuid.New(), Role: model.RoleSuperAdmin},
	}
	f.svc = New(f.repo, f.events, f.jwt, zap.NewNop(), WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) tenant(typ model.TenantType, name string) *model.Tenant {
	f.t.Helper()
	t := &model.Tenant{
		Name:     name,
		Type:     typ,
		Email:    uuid.NewString() + "@tenant.test",
		Status:   model.StatusActive,
		IsActive: true,
	}
	require.NoError(f.t, f.repo.CreateTenant(f.ctx, t))
	return t
}

// adminOf returns an actor administering t.
func (f *fixture) adminOf(t *model.Tenant) model.Actor {
	return model.Actor{
		UserID:      uuid.New(),
		Role:        model.AdminRoleFor(t.Type),
		TenantID:    &t.ID,
		TenantType:  t.Type,
		Permissions: model.PermissionFlags(model.FullPermissions()),
	}
}

// staffOf returns a staff actor of t holding only view permission.
func (f *fixture) staffOf(t *model.Tenant) model.Actor {
	return model.Actor{
		UserID:      uuid.New(),
		Role:        model.StaffRoleFor(t.Type),
		TenantID:    &t.ID,
		TenantType:  t.Type,
		Permissions: model.PermissionFlags(model.DefaultStaffPermissions()),
	}
}

// creatorOf returns a staff actor of t granted create permission.
func (f *fixture) creatorOf(t *model.Tenant) model.Actor {
	a := f.staffOf(t)
	perms, err := model.NormalizePermissions(map[string]bool{string(model.PermCreate): true})
	require.NoError(f.t, err)
	a.Permissions = model.PermissionFlags(perms)
	return a
}

func (f *fixture) product(supplier *model.Tenant, sku string) *model.Product {
	f.t.Helper()
	p := &model.Product{
		SupplierID: supplier.ID,
		SKU:        sku,
		Name:       "Product " + sku,
		Type:       model.ProductTypeProduct,
		Unit:       "piece",
		IsActive:   true,
	}
	require.NoError(f.t, f.repo.CreateProduct(f.ctx, p))
	return p
}

func (f *fixture) defaultPrice(p *model.Product, price string, from time.Time, until *time.Time) *model.DefaultPrice {
	f.t.Helper()
	dp := &model.DefaultPrice{
		ProductID:      p.ID,
		Price:          decimal.RequireFromString(price),
		Currency:       "USD",
		EffectiveFrom:  from,
		EffectiveUntil: until,
		IsActive:       true,
	}
	require.NoError(f.t, f.repo.CreateDefaultPrice(f.ctx, dp))
	return dp
}

func (f *fixture) privatePrice(p *model.Product, company *model.Tenant, price string, from time.Time, until *time.Time, active bool) *model.PrivatePrice {
	f.t.Helper()
	pp := &model.PrivatePrice{
		ProductID:      p.ID,
		CompanyID:      company.ID,
		Price:          decimal.RequireFromString(price),
		Currency:       "USD",
		EffectiveFrom:  from,
		EffectiveUntil: until,
		IsActive:       active,
	}
	require.NoError(f.t, f.repo.CreatePrivatePrice(f.ctx, pp))
	return pp
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func timePtr(t time.Time) *time.Time { return &t }

func strPtr(s string) *string { return &s }
