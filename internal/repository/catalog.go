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

func (r *gormRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate("create category", r.conn(ctx).Create(c).Error)
}

func (r *gormRepository) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var c model.Category
	if err := r.conn(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, lookup("category", err)
	}
	return &c, nil
}

func (r *gormRepository) UpdateCategory(ctx context.Context, c *model.Category) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return translate("update category", r.conn(ctx).Save(c).Error)
}

func (r *gormRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())
	return translate("delete category", r.conn(ctx).Delete(&model.Category{}, "id = ?", id).Error)
}

func (r *gormRepository) ListCategories(ctx context.Context, f CategoryFilter) ([]model.Category, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	q := r.conn(ctx).Model(&model.Category{})
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	switch {
	case f.ParentID != nil:
		q = q.Where("parent_id = ?", *f.ParentID)
	case f.RootsOnly:
		q = q.Where("parent_id IS NULL")
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	var cats []model.Category
	if err := q.Order("display_order ASC").Order("name ASC").Find(&cats).Error; err != nil {
		return nil, translate("list categories", err)
	}
	return cats, nil
}

// CategoryNameExists checks name uniqueness among siblings. The unique index
// does not cover root categories on every database because NULL parents
// compare as distinct, so the service checks explicitly.
func (r *gormRepository) CategoryNameExists(ctx context.Context, kind model.CategoryKind, parentID *uuid.UUID, name string, excludeID *uuid.UUID) (bool, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	q := r.conn(ctx).Model(&model.Category{}).
		Where("kind = ?", kind).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name)))
	if parentID != nil {
		q = q.Where("parent_id = ?", *parentID)
	} else {
		q = q.Where("parent_id IS NULL")
	}
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, translate("check category name", err)
}

func (r *gormRepository) CountCategoryChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var n int64
	err := r.conn(ctx).Model(&model.Category{}).Where("parent_id = ?", id).Count(&n).Error
	return n, translate("count child categories", err)
}

func (r *gormRepository) CountProductsInCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var n int64
	err := r.conn(ctx).Model(&model.Product{}).
		Where("category_id = ? OR service_category_id = ?", id, id).
		Count(&n).Error
	return n, translate("count category products", err)
}

func (r *gormRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate("create product", r.conn(ctx).Omit(clause.Associations).Create(p).Error)
}

func (r *gormRepository) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var p model.Product
	if err := r.conn(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, lookup("product", err)
	}
	return &p, nil
}

func (r *gormRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return translate("update product", r.conn(ctx).Omit(clause.Associations).Save(p).Error)
}

// DeleteProduct soft-deletes; prices and quotes keep referring to the row.
func (r *gormRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())
	return translate("delete product", r.conn(ctx).Delete(&model.Product{}, "id = ?", id).Error)
}

func (r *gormRepository) ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, int64, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	q := r.conn(ctx).Model(&model.Product{})
	if f.SupplierID != nil {
		q = q.Where("supplier_id = ?", *f.SupplierID)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.ServiceCategoryID != nil {
		q = q.Where("service_category_id = ?", *f.ServiceCategoryID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate("count products", err)
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var products []model.Product
	if err := q.Order("name ASC").Order("id ASC").Find(&products).Error; err != nil {
		return nil, 0, translate("list products", err)
	}
	return products, total, nil
}

func (r *gormRepository) SKUExists(ctx context.Context, supplierID uuid.UUID, sku string, excludeID *uuid.UUID) (bool, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	q := r.conn(ctx).Unscoped().Model(&model.Product{}).
		Where("supplier_id = ? AND sku = ?", supplierID, sku)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, translate("check sku", err)
}
