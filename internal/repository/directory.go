package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/prometheus"
)

func (r *gormRepository) CreateTenant(ctx context.Context, t *model.Tenant) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	t.Email = normalizeEmail(t.Email)
	return translate("create tenant", r.conn(ctx).Create(t).Error)
}

func (r *gormRepository) GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var t model.Tenant
	if err := r.forUpdate(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, lookup("tenant", err)
	}
	return &t, nil
}

func (r *gormRepository) UpdateTenant(ctx context.Context, t *model.Tenant) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return translate("update tenant", r.conn(ctx).Omit(clause.Associations).Save(t).Error)
}

func (r *gormRepository) ListTenants(ctx context.Context, f TenantFilter) ([]model.Tenant, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	q := r.conn(ctx).Model(&model.Tenant{})
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	var tenants []model.Tenant
	if err := q.Order("created_at DESC").Find(&tenants).Error; err != nil {
		return nil, translate("list tenants", err)
	}
	return tenants, nil
}

func (r *gormRepository) TenantEmailExists(ctx context.Context, email string) (bool, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var n int64
	err := r.conn(ctx).Model(&model.Tenant{}).Where("email = ?", normalizeEmail(email)).Count(&n).Error
	return n > 0, translate("check tenant email", err)
}

func (r *gormRepository) CreateUser(ctx context.Context, u *model.User) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	u.Email = normalizeEmail(u.Email)
	return translate("create user", r.conn(ctx).Omit(clause.Associations).Create(u).Error)
}

func (r *gormRepository) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var u model.User
	if err := r.forUpdate(ctx).Preload("Tenant").First(&u, "id = ?", id).Error; err != nil {
		return nil, lookup("user", err)
	}
	return &u, nil
}

func (r *gormRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var u model.User
	if err := r.conn(ctx).Preload("Tenant").First(&u, "email = ?", normalizeEmail(email)).Error; err != nil {
		return nil, lookup("user", err)
	}
	return &u, nil
}

func (r *gormRepository) UpdateUser(ctx context.Context, u *model.User) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return translate("update user", r.conn(ctx).Omit(clause.Associations).Save(u).Error)
}

func (r *gormRepository) ListUsers(ctx context.Context, f UserFilter) ([]model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	q := r.conn(ctx).Model(&model.User{})
	if f.TenantID != nil {
		q = q.Where("tenant_id = ?", *f.TenantID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Role != nil {
		q = q.Where("role = ?", *f.Role)
	}
	var users []model.User
	if err := q.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, translate("list users", err)
	}
	return users, nil
}

func (r *gormRepository) UserEmailExists(ctx context.Context, email string) (bool, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var n int64
	err := r.conn(ctx).Model(&model.User{}).Where("email = ?", normalizeEmail(email)).Count(&n).Error
	return n > 0, translate("check user email", err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
