package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/prometheus"
)

func (r *gormRepository) CreateDefaultPrice(ctx context.Context, p *model.DefaultPrice) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate("create default price", r.conn(ctx).Omit(clause.Associations).Create(p).Error)
}

func (r *gormRepository) GetDefaultPrice(ctx context.Context, id uuid.UUID) (*model.DefaultPrice, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var p model.DefaultPrice
	if err := r.conn(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, lookup("default price", err)
	}
	return &p, nil
}

func (r *gormRepository) UpdateDefaultPrice(ctx context.Context, p *model.DefaultPrice) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return translate("update default price", r.conn(ctx).Omit(clause.Associations).Save(p).Error)
}

func (r *gormRepository) ListDefaultPrices(ctx context.Context, productID uuid.UUID) ([]model.DefaultPrice, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var prices []model.DefaultPrice
	err := r.conn(ctx).
		Where("product_id = ?", productID).
		Order("effective_from DESC").Order("created_at DESC").
		Find(&prices).Error
	if err != nil {
		return nil, translate("list default prices", err)
	}
	return prices, nil
}

// ActiveDefaultPrices returns every active default price row of the given
// products. Effective-window filtering is left to the caller.
func (r *gormRepository) ActiveDefaultPrices(ctx context.Context, productIDs []uuid.UUID) ([]model.DefaultPrice, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	defer prometheus.TrackDBOperation("query")(time.Now())
	var prices []model.DefaultPrice
	err := r.conn(ctx).
		Where("product_id IN ? AND is_active = ?", productIDs, true).
		Find(&prices).Error
	if err != nil {
		return nil, translate("load default prices", err)
	}
	return prices, nil
}

func (r *gormRepository) CreatePrivatePrice(ctx context.Context, p *model.PrivatePrice) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate("create private price", r.conn(ctx).Omit(clause.Associations).Create(p).Error)
}

func (r *gormRepository) GetPrivatePrice(ctx context.Context, id uuid.UUID) (*model.PrivatePrice, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var p model.PrivatePrice
	if err := r.conn(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, lookup("private price", err)
	}
	return &p, nil
}

func (r *gormRepository) UpdatePrivatePrice(ctx context.Context, p *model.PrivatePrice) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return translate("update private price", r.conn(ctx).Omit(clause.Associations).Save(p).Error)
}

func (r *gormRepository) ListPrivatePrices(ctx context.Context, f PrivatePriceFilter) ([]model.PrivatePrice, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	q := r.conn(ctx).Where("product_id = ?", f.ProductID)
	if f.CompanyID != nil {
		q = q.Where("company_id = ?", *f.CompanyID)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	var prices []model.PrivatePrice
	if err := q.Order("effective_from DESC").Order("created_at DESC").Find(&prices).Error; err != nil {
		return nil, translate("list private prices", err)
	}
	return prices, nil
}

// ActivePrivatePrices returns the active private price rows a company holds
// on the given products. Effective-window filtering is left to the caller.
func (r *gormRepository) ActivePrivatePrices(ctx context.Context, productIDs []uuid.UUID, companyID uuid.UUID) ([]model.PrivatePrice, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	defer prometheus.TrackDBOperation("query")(time.Now())
	var prices []model.PrivatePrice
	err := r.conn(ctx).
		Where("product_id IN ? AND company_id = ? AND is_active = ?", productIDs, companyID, true).
		Find(&prices).Error
	if err != nil {
		return nil, translate("load private prices", err)
	}
	return prices, nil
}
