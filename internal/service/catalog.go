package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/events"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CatalogService manages the products and services sellers list.
type CatalogService struct {
	*deps
	pricing *PricingService
}

type ProductInput struct {
	SKU               string            `json:"sku" validate:"required,max=100"`
	Name              string            `json:"name" validate:"required,max=255"`
	Description       string            `json:"description"`
	Type              model.ProductType `json:"type"`
	CategoryID        *uuid.UUID        `json:"category_id"`
	ServiceCategoryID *uuid.UUID        `json:"service_category_id"`
	Unit              string            `json:"unit" validate:"required,max=32"`
	IsActive          *bool             `json:"is_active"`
	RatePerHour       *decimal.Decimal  `json:"rate_per_hour"`
	RateType          model.RateType    `json:"rate_type"`
}

// UpdateProductInput changes the fields that are set. ClearCategory removes
// both category links before CategoryID or ServiceCategoryID is applied.
type UpdateProductInput struct {
	SKU               *string          `json:"sku"`
	Name              *string          `json:"name"`
	Description       *string          `json:"description"`
	CategoryID        *uuid.UUID       `json:"category_id"`
	ServiceCategoryID *uuid.UUID       `json:"service_category_id"`
	ClearCategory     bool             `json:"clear_category"`
	Unit              *string          `json:"unit"`
	IsActive          *bool            `json:"is_active"`
	RatePerHour       *decimal.Decimal `json:"rate_per_hour"`
	RateType          *model.RateType  `json:"rate_type"`
}

type ProductQuery struct {
	SupplierID        *uuid.UUID
	Type              *model.ProductType
	CategoryID        *uuid.UUID
	ServiceCategoryID *uuid.UUID
	Search            string
	IncludeInactive   bool
	Limit             int
	Offset            int
}

// ProductView is a product together with the price the viewer sees.
type ProductView struct {
	model.Product
	Price          *Resolution `json:"price,omitempty"`
	PriceOnRequest bool        `json:"price_on_request"`
}

type ProductPage struct {
	Items  []ProductView `json:"items"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor model.Actor, in ProductInput) (*model.Product, error) {
	if err := requireSeller(actor); err != nil {
		return nil, err
	}
	if err := requirePermission(actor, model.PermCreate); err != nil {
		return nil, err
	}

	product := &model.Product{
		SupplierID:        *actor.TenantID,
		SKU:               strings.TrimSpace(in.SKU),
		Name:              strings.TrimSpace(in.Name),
		Description:       in.Description,
		Type:              in.Type,
		CategoryID:        in.CategoryID,
		ServiceCategoryID: in.ServiceCategoryID,
		Unit:              strings.TrimSpace(in.Unit),
		IsActive:          in.IsActive == nil || *in.IsActive,
		RatePerHour:       nullDecimal(in.RatePerHour),
		RateType:          in.RateType,
		CreatedBy:         actor.UserID,
	}
	if product.Type == "" {
		product.Type = defaultProductType(actor.TenantType)
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	err := s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		if err := checkCategories(ctx, tx, product); err != nil {
			return err
		}
		taken, err := tx.SKUExists(ctx, product.SupplierID, product.SKU, nil)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("sku %q already exists", product.SKU)
		}
		return tx.CreateProduct(ctx, product)
	})
	if err != nil {
		return nil, err
	}

	s.logFor(ctx).Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
		zap.String("supplier_id", product.SupplierID.String()))
	return product, nil
}

// GetProduct returns a product with the price the actor sees. Inactive
// products are only visible to their owner and super admins.
func (s *CatalogService) GetProduct(ctx context.Context, actor model.Actor, id uuid.UUID) (*ProductView, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive && !actor.IsSuperAdmin() && !actor.BelongsTo(product.SupplierID) {
		return nil, apperr.NotFound("product not found")
	}

	view := &ProductView{Product: *product}
	res, err := s.pricing.Resolve(ctx, product.ID, actor.CompanyID())
	switch {
	case errors.Is(err, apperr.ErrNoPriceAvailable):
		view.PriceOnRequest = true
	case err != nil:
		return nil, err
	default:
		view.Price = res
	}
	return view, nil
}

// ListProducts pages through the catalog with prices resolved for the actor.
func (s *CatalogService) ListProducts(ctx context.Context, actor model.Actor, q ProductQuery) (*ProductPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	ownView := q.SupplierID != nil && actor.BelongsTo(*q.SupplierID)
	filter := repository.ProductFilter{
		SupplierID:        q.SupplierID,
		Type:              q.Type,
		CategoryID:        q.CategoryID,
		ServiceCategoryID: q.ServiceCategoryID,
		Search:            q.Search,
		ActiveOnly:        !(q.IncludeInactive && (ownView || actor.IsSuperAdmin())),
		Limit:             limit,
		Offset:            offset,
	}
	products, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	prices, err := s.pricing.ResolveMany(ctx, ids, actor.CompanyID())
	if err != nil {
		return nil, err
	}

	page := &ProductPage{Items: make([]ProductView, 0, len(products)), Total: total, Limit: limit, Offset: offset}
	for _, p := range products {
		res := prices[p.ID]
		page.Items = append(page.Items, ProductView{Product: p, Price: res, PriceOnRequest: res == nil})
	}
	return page, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, actor model.Actor, id uuid.UUID, in UpdateProductInput) (*model.Product, error) {
	var product *model.Product
	err := s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		var err error
		product, err = tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if err := requireProductOwner(actor, product, model.PermCreate); err != nil {
			return err
		}

		if in.SKU != nil {
			product.SKU = strings.TrimSpace(*in.SKU)
		}
		if in.Name != nil {
			product.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			product.Description = *in.Description
		}
		if in.ClearCategory {
			product.CategoryID, product.ServiceCategoryID = nil, nil
		}
		if in.CategoryID != nil {
			product.CategoryID = in.CategoryID
		}
		if in.ServiceCategoryID != nil {
			product.ServiceCategoryID = in.ServiceCategoryID
		}
		if in.Unit != nil {
			product.Unit = strings.TrimSpace(*in.Unit)
		}
		if in.IsActive != nil {
			product.IsActive = *in.IsActive
		}
		if in.RatePerHour != nil {
			product.RatePerHour = decimal.NewNullDecimal(*in.RatePerHour)
		}
		if in.RateType != nil {
			product.RateType = *in.RateType
		}

		if err := validateProduct(product); err != nil {
			return err
		}
		if err := checkCategories(ctx, tx, product); err != nil {
			return err
		}
		if in.SKU != nil {
			taken, err := tx.SKUExists(ctx, product.SupplierID, product.SKU, &product.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Conflict("sku %q already exists", product.SKU)
			}
		}
		return tx.UpdateProduct(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct soft-deletes a product. Its prices and quotes are kept.
func (s *CatalogService) DeleteProduct(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	err := s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		product, err := tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if err := requireProductOwner(actor, product, model.PermAdmin); err != nil {
			return err
		}
		return tx.DeleteProduct(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logFor(ctx).Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

func defaultProductType(t model.TenantType) model.ProductType {
	if t == model.TenantServiceProvider {
		return model.ProductTypeService
	}
	return model.ProductTypeProduct
}

// validateProduct checks field shape. A product is classified by a product
// category or a service category, never both, matching its type.
func validateProduct(p *model.Product) error {
	var errs error
	if p.SKU == "" {
		errs = multierr.Append(errs, apperr.Invalid("sku is required"))
	}
	if p.Name == "" {
		errs = multierr.Append(errs, apperr.Invalid("name is required"))
	}
	if p.Unit == "" {
		errs = multierr.Append(errs, apperr.Invalid("unit is required"))
	}
	if p.CategoryID != nil && p.ServiceCategoryID != nil {
		errs = multierr.Append(errs, apperr.Invalid("a product cannot have both a category and a service category"))
	}

	switch p.Type {
	case model.ProductTypeProduct:
		if p.ServiceCategoryID != nil {
			errs = multierr.Append(errs, apperr.Invalid("products must use a product category"))
		}
		if p.RatePerHour.Valid || p.RateType != "" {
			errs = multierr.Append(errs, apperr.Invalid("rates only apply to services"))
		}
	case model.ProductTypeService:
		if p.CategoryID != nil {
			errs = multierr.Append(errs, apperr.Invalid("services must use a service category"))
		}
		if p.RateType != "" && !p.RateType.Valid() {
			errs = multierr.Append(errs, apperr.Invalid("unknown rate type %q", p.RateType))
		}
		if p.RatePerHour.Valid {
			errs = multierr.Append(errs, validatePrice("rate per hour", p.RatePerHour.Decimal))
		}
	default:
		errs = multierr.Append(errs, apperr.Invalid("unknown product type %q", p.Type))
	}
	return invalid(errs)
}

// checkCategories verifies that linked categories exist and are of the
// right kind.
func checkCategories(ctx context.Context, tx repository.Repository, p *model.Product) error {
	check := func(id *uuid.UUID, kind model.CategoryKind) error {
		if id == nil {
			return nil
		}
		cat, err := tx.GetCategory(ctx, *id)
		if apperr.Is(err, apperr.ENotFound) {
			return apperr.Invalid("%s category does not exist", kind)
		} else if err != nil {
			return err
		}
		if cat.Kind != kind {
			return apperr.Invalid("category %q is not a %s category", cat.Name, kind)
		}
		return nil
	}
	if err := check(p.CategoryID, model.CategoryProduct); err != nil {
		return err
	}
	return check(p.ServiceCategoryID, model.CategoryService)
}
