package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/events"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/prometheus"
)

// PricingService resolves the price a company sees and manages the price
// rows suppliers maintain.
type PricingService struct {
	*deps
}

// Resolution is the outcome of price resolution for one product.
type Resolution struct {
	ProductID      uuid.UUID       `json:"product_id"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	Type           model.PriceType `json:"price_type"`
	PriceID        uuid.UUID       `json:"price_id"`
	EffectiveFrom  time.Time       `json:"effective_from"`
	EffectiveUntil *time.Time      `json:"effective_until,omitempty"`
}

// Resolve returns the price productID carries for companyID at the current
// time. An effective private price wins over the default price; when neither
// applies the error is apperr.ErrNoPriceAvailable.
func (s *PricingService) Resolve(ctx context.Context, productID uuid.UUID, companyID *uuid.UUID) (*Resolution, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	res, err := s.ResolveMany(ctx, []uuid.UUID{productID}, companyID)
	if err != nil {
		return nil, err
	}
	if r, ok := res[productID]; ok {
		return r, nil
	}
	return nil, apperr.ErrNoPriceAvailable
}

// ResolveMany resolves a batch of products with two queries. Products without
// an applicable price are absent from the result.
func (s *PricingService) ResolveMany(ctx context.Context, productIDs []uuid.UUID, companyID *uuid.UUID) (map[uuid.UUID]*Resolution, error) {
	now := s.clock()
	out := make(map[uuid.UUID]*Resolution, len(productIDs))

	if companyID != nil {
		rows, err := s.repo.ActivePrivatePrices(ctx, productIDs, *companyID)
		if err != nil {
			return nil, err
		}
		for pid, p := range groupPrivate(rows) {
			if best := selectEffectivePrivate(p, now); best != nil {
				out[pid] = &Resolution{
					ProductID:      pid,
					Price:          best.Price,
					Currency:       best.Currency,
					Type:           model.PricePrivate,
					PriceID:        best.ID,
					EffectiveFrom:  best.EffectiveFrom,
					EffectiveUntil: best.EffectiveUntil,
				}
			}
		}
	}

	var remaining []uuid.UUID
	for _, pid := range productIDs {
		if _, ok := out[pid]; !ok {
			remaining = append(remaining, pid)
		}
	}
	rows, err := s.repo.ActiveDefaultPrices(ctx, remaining)
	if err != nil {
		return nil, err
	}
	for pid, p := range groupDefault(rows) {
		if best := selectEffectiveDefault(p, now); best != nil {
			out[pid] = &Resolution{
				ProductID:      pid,
				Price:          best.Price,
				Currency:       best.Currency,
				Type:           model.PriceDefault,
				PriceID:        best.ID,
				EffectiveFrom:  best.EffectiveFrom,
				EffectiveUntil: best.EffectiveUntil,
			}
		}
	}

	for _, pid := range productIDs {
		if r, ok := out[pid]; ok {
			prometheus.RecordPriceResolution(string(r.Type))
		} else {
			prometheus.RecordPriceResolution("none")
		}
	}
	return out, nil
}

// ResolveFor resolves a price on behalf of an actor. Company users always see
// their own private prices. The owning supplier and super admins may ask for
// any company's view; everyone else sees the default price.
func (s *PricingService) ResolveFor(ctx context.Context, actor model.Actor, productID uuid.UUID, companyID *uuid.UUID) (*Resolution, error) {
	if own := actor.CompanyID(); own != nil {
		return s.Resolve(ctx, productID, own)
	}
	if companyID == nil {
		return s.Resolve(ctx, productID, nil)
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() && !actor.BelongsTo(product.SupplierID) {
		return nil, apperr.Forbidden("cannot view another company's prices")
	}
	return s.Resolve(ctx, productID, companyID)
}

// selectEffectivePrivate picks, among rows effective at now, the one with the
// latest EffectiveFrom, breaking ties by the latest CreatedAt.
func selectEffectivePrivate(rows []model.PrivatePrice, now time.Time) *model.PrivatePrice {
	var best *model.PrivatePrice
	for i := range rows {
		p := &rows[i]
		if !p.EffectiveAt(now) {
			continue
		}
		if best == nil || later(p.EffectiveFrom, p.CreatedAt, best.EffectiveFrom, best.CreatedAt) {
			best = p
		}
	}
	return best
}

func selectEffectiveDefault(rows []model.DefaultPrice, now time.Time) *model.DefaultPrice {
	var best *model.DefaultPrice
	for i := range rows {
		p := &rows[i]
		if !p.EffectiveAt(now) {
			continue
		}
		if best == nil || later(p.EffectiveFrom, p.CreatedAt, best.EffectiveFrom, best.CreatedAt) {
			best = p
		}
	}
	return best
}

func later(from, created, bestFrom, bestCreated time.Time) bool {
	if !from.Equal(bestFrom) {
		return from.After(bestFrom)
	}
	return created.After(bestCreated)
}

func groupPrivate(rows []model.PrivatePrice) map[uuid.UUID][]model.PrivatePrice {
	out := make(map[uuid.UUID][]model.PrivatePrice)
	for _, r := range rows {
		out[r.ProductID] = append(out[r.ProductID], r)
	}
	return out
}

func groupDefault(rows []model.DefaultPrice) map[uuid.UUID][]model.DefaultPrice {
	out := make(map[uuid.UUID][]model.DefaultPrice)
	for _, r := range rows {
		out[r.ProductID] = append(out[r.ProductID], r)
	}
	return out
}

// DefaultPriceInput describes a new default price.
type DefaultPriceInput struct {
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency" validate:"required"`
	EffectiveFrom  *time.Time      `json:"effective_from"`
	EffectiveUntil *time.Time      `json:"effective_until"`
}

func (s *PricingService) CreateDefaultPrice(ctx context.Context, actor model.Actor, productID uuid.UUID, in DefaultPriceInput) (*model.DefaultPrice, error) {
	now := s.clock()
	price := &model.DefaultPrice{
		ProductID:      productID,
		Price:          in.Price,
		Currency:       strings.TrimSpace(in.Currency),
		EffectiveFrom:  valueOr(in.EffectiveFrom, now),
		EffectiveUntil: utcPtr(in.EffectiveUntil),
		IsActive:       true,
		CreatedBy:      actor.UserID,
	}
	price.EffectiveFrom = price.EffectiveFrom.UTC()

	var errs error
	errs = multierr.Append(errs, validatePrice("price", price.Price))
	errs = multierr.Append(errs, validateCurrency(price.Currency))
	errs = multierr.Append(errs, validateWindow(price.EffectiveFrom, price.EffectiveUntil))
	if err := invalid(errs); err != nil {
		return nil, err
	}

	err := s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := requireProductOwner(actor, product, model.PermCreate); err != nil {
			return err
		}
		return tx.CreateDefaultPrice(ctx, price)
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordPriceOperation("create_default")
	s.logFor(ctx).Info("Default price created",
		zap.String("product_id", productID.String()),
		zap.String("price", price.Price.StringFixed(2)),
		zap.String("currency", price.Currency))
	return price, nil
}

// UpdateDefaultPriceInput changes the fields that are set.
// ClearEffectiveUntil makes the price open-ended before EffectiveUntil is
// applied.
type UpdateDefaultPriceInput struct {
	Price               *decimal.Decimal `json:"price"`
	Currency            *string          `json:"currency"`
	EffectiveFrom       *time.Time       `json:"effective_from"`
	EffectiveUntil      *time.Time       `json:"effective_until"`
	ClearEffectiveUntil bool             `json:"clear_effective_until"`
	IsActive            *bool            `json:"is_active"`
}

// UpdateDefaultPrice edits a default price. Default price changes are not
// pushed to clients.
func (s *PricingService) UpdateDefaultPrice(ctx context.Context, actor model.Actor, id uuid.UUID, in UpdateDefaultPriceInput) (*model.DefaultPrice, error) {
	var price *model.DefaultPrice
	err := s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		var err error
		price, err = tx.GetDefaultPrice(ctx, id)
		if err != nil {
			return err
		}
		product, err := tx.GetProduct(ctx, price.ProductID)
		if err != nil {
			return err
		}
		if err := requireProductOwner(actor, product, model.PermCreate); err != nil {
			return err
		}

		if in.Price != nil {
			price.Price = *in.Price
		}
		if in.Currency != nil {
			price.Currency = strings.TrimSpace(*in.Currency)
		}
		if in.EffectiveFrom != nil {
			price.EffectiveFrom = in.EffectiveFrom.UTC()
		}
		if in.ClearEffectiveUntil {
			price.EffectiveUntil = nil
		}
		if in.EffectiveUntil != nil {
			price.EffectiveUntil = utcPtr(in.EffectiveUntil)
		}
		if in.IsActive != nil {
			price.IsActive = *in.IsActive
		}

		var errs error
		errs = multierr.Append(errs, validatePrice("price", price.Price))
		errs = multierr.Append(errs, validateCurrency(price.Currency))
		errs = multierr.Append(errs, validateWindow(price.EffectiveFrom, price.EffectiveUntil))
		if err := invalid(errs); err != nil {
			return err
		}
		return tx.UpdateDefaultPrice(ctx, price)
	})
	if err != nil {
		return nil, err
	}
	prometheus.RecordPriceOperation("update_default")
	return price, nil
}

func (s *PricingService) ListDefaultPrices(ctx context.Context, productID uuid.UUID) ([]model.DefaultPrice, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListDefaultPrices(ctx, productID)
}

// PrivatePriceInput describes a private price for one company. Exactly one
// of Price and DiscountPercentage is set; a discount is applied to the
// product's current default price.
type PrivatePriceInput struct {
	CompanyID          uuid.UUID        `json:"company_id" validate:"required"`
	Price              *decimal.Decimal `json:"price"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
	Currency           string           `json:"currency"`
	EffectiveFrom      *time.Time       `json:"effective_from"`
	EffectiveUntil     *time.Time       `json:"effective_until"`
	Notes              string           `json:"notes"`
}

func (s *PricingService) CreatePrivatePrice(ctx context.Context, actor model.Actor, productID uuid.UUID, in PrivatePriceInput) (*model.PrivatePrice, error) {
	if err := validatePrivateInput(in, s.clock()); err != nil {
		return nil, err
	}

	var price *model.PrivatePrice
	err := s.mutate(ctx, func(tx repository.Repository, ob *events.Outbox) error {
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := requireProductOwner(actor, product, model.PermCreate); err != nil {
			return err
		}
		price, err = s.buildPrivatePrice(ctx, tx, actor, product, in)
		if err != nil {
			return err
		}
		if err := tx.CreatePrivatePrice(ctx, price); err != nil {
			return err
		}
		ob.Add(priceUpdated(price, "created"))
		return nil
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordPriceOperation("create_private")
	s.logFor(ctx).Info("Private price created",
		zap.String("product_id", productID.String()),
		zap.String("company_id", price.CompanyID.String()),
		zap.String("price", price.Price.StringFixed(2)))
	return price, nil
}

// BulkSetPrivatePrices replaces the active private prices of several
// companies on one product. Either every entry is applied or none is.
func (s *PricingService) BulkSetPrivatePrices(ctx context.Context, actor model.Actor, productID uuid.UUID, entries []PrivatePriceInput) ([]model.PrivatePrice, error) {
	if len(entries) == 0 {
		return nil, apperr.Invalid("at least one entry is required")
	}
	now := s.clock()
	var errs error
	for i, e := range entries {
		if err := validatePrivateInput(e, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("entry %d: %s", i, apperr.ErrorMessage(err)))
		}
	}
	errs = multierr.Append(errs, validateDistinctCompanies(entries))
	if err := invalid(errs); err != nil {
		return nil, err
	}

	out := make([]model.PrivatePrice, 0, len(entries))
	err := s.mutate(ctx, func(tx repository.Repository, ob *events.Outbox) error {
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := requireProductOwner(actor, product, model.PermCreate); err != nil {
			return err
		}
		for _, e := range entries {
			price, err := s.buildPrivatePrice(ctx, tx, actor, product, e)
			if err != nil {
				return err
			}
			existing, err := tx.ListPrivatePrices(ctx, repository.PrivatePriceFilter{
				ProductID:  productID,
				CompanyID:  &e.CompanyID,
				ActiveOnly: true,
			})
			if err != nil {
				return err
			}
			for i := range existing {
				existing[i].IsActive = false
				if err := tx.UpdatePrivatePrice(ctx, &existing[i]); err != nil {
					return err
				}
			}
			if err := tx.CreatePrivatePrice(ctx, price); err != nil {
				return err
			}
			ob.Add(priceUpdated(price, "updated"))
			out = append(out, *price)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordPriceOperation("bulk_set_private")
	s.logFor(ctx).Info("Private prices set",
		zap.String("product_id", productID.String()),
		zap.Int("count", len(out)))
	return out, nil
}

// UpdatePrivatePriceInput changes the fields that are set. Price and
// DiscountPercentage are mutually exclusive. ClearEffectiveUntil makes the
// price open-ended before EffectiveUntil is applied.
type UpdatePrivatePriceInput struct {
	Price               *decimal.Decimal `json:"price"`
	DiscountPercentage  *decimal.Decimal `json:"discount_percentage"`
	Currency            *string          `json:"currency"`
	EffectiveFrom       *time.Time       `json:"effective_from"`
	EffectiveUntil      *time.Time       `json:"effective_until"`
	ClearEffectiveUntil bool             `json:"clear_effective_until"`
	Notes               *string          `json:"notes"`
	IsActive            *bool            `json:"is_active"`
}

func (s *PricingService) UpdatePrivatePrice(ctx context.Context, actor model.Actor, id uuid.UUID, in UpdatePrivatePriceInput) (*model.PrivatePrice, error) {
	if in.Price != nil && in.DiscountPercentage != nil {
		return nil, apperr.Invalid("price and discount percentage are mutually exclusive")
	}

	var price *model.PrivatePrice
	err := s.mutate(ctx, func(tx repository.Repository, ob *events.Outbox) error {
		var err error
		price, err = tx.GetPrivatePrice(ctx, id)
		if err != nil {
			return err
		}
		product, err := tx.GetProduct(ctx, price.ProductID)
		if err != nil {
			return err
		}
		if err := requireProductOwner(actor, product, model.PermCreate); err != nil {
			return err
		}

		var errs error
		switch {
		case in.Price != nil:
			price.Price = *in.Price
			price.DiscountPercentage = decimal.NullDecimal{}
		case in.DiscountPercentage != nil:
			if err := validateDiscount(*in.DiscountPercentage); err != nil {
				return err
			}
			base, err := s.currentDefault(ctx, tx, product.ID)
			if err != nil {
				return err
			}
			price.Price = discountedPrice(base.Price, *in.DiscountPercentage)
			price.DiscountPercentage = decimal.NewNullDecimal(in.DiscountPercentage.Round(2))
		}
		if in.Currency != nil {
			price.Currency = strings.TrimSpace(*in.Currency)
		}
		if in.EffectiveFrom != nil {
			price.EffectiveFrom = in.EffectiveFrom.UTC()
		}
		if in.ClearEffectiveUntil {
			price.EffectiveUntil = nil
		}
		if in.EffectiveUntil != nil {
			price.EffectiveUntil = utcPtr(in.EffectiveUntil)
		}
		if in.Notes != nil {
			price.Notes = *in.Notes
		}
		if in.IsActive != nil {
			price.IsActive = *in.IsActive
		}

		errs = multierr.Append(errs, validatePrice("price", price.Price))
		errs = multierr.Append(errs, validateCurrency(price.Currency))
		errs = multierr.Append(errs, validateWindow(price.EffectiveFrom, price.EffectiveUntil))
		if err := invalid(errs); err != nil {
			return err
		}
		if err := tx.UpdatePrivatePrice(ctx, price); err != nil {
			return err
		}
		ob.Add(priceUpdated(price, "updated"))
		return nil
	})
	if err != nil {
		return nil, err
	}
	prometheus.RecordPriceOperation("update_private")
	return price, nil
}

// DeactivatePrivatePrice switches a private price off. The row is kept so the
// negotiated history survives.
func (s *PricingService) DeactivatePrivatePrice(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	err := s.mutate(ctx, func(tx repository.Repository, ob *events.Outbox) error {
		price, err := tx.GetPrivatePrice(ctx, id)
		if err != nil {
			return err
		}
		product, err := tx.GetProduct(ctx, price.ProductID)
		if err != nil {
			return err
		}
		if err := requireProductOwner(actor, product, model.PermCreate); err != nil {
			return err
		}
		if !price.IsActive {
			return nil
		}
		price.IsActive = false
		if err := tx.UpdatePrivatePrice(ctx, price); err != nil {
			return err
		}
		ob.Add(priceUpdated(price, "deleted"))
		return nil
	})
	if err != nil {
		return err
	}
	prometheus.RecordPriceOperation("deactivate_private")
	return nil
}

// ListPrivatePrices lists the private prices of a product. The owning
// supplier and super admins see every company; a company sees only its own.
func (s *PricingService) ListPrivatePrices(ctx context.Context, actor model.Actor, productID uuid.UUID) ([]model.PrivatePrice, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	filter := repository.PrivatePriceFilter{ProductID: productID}
	switch {
	case actor.IsSuperAdmin(), actor.BelongsTo(product.SupplierID):
	case actor.CompanyID() != nil:
		filter.CompanyID = actor.CompanyID()
	default:
		return nil, apperr.Forbidden("cannot view private prices of this product")
	}
	return s.repo.ListPrivatePrices(ctx, filter)
}

func validatePrivateInput(in PrivatePriceInput, now time.Time) error {
	var errs error
	if in.CompanyID == uuid.Nil {
		errs = multierr.Append(errs, apperr.Invalid("company id is required"))
	}
	errs = multierr.Append(errs, validatePriceOrDiscount(in.Price, in.DiscountPercentage))
	if c := strings.TrimSpace(in.Currency); c != "" {
		errs = multierr.Append(errs, validateCurrency(c))
	}
	errs = multierr.Append(errs, validateWindow(valueOr(in.EffectiveFrom, now), in.EffectiveUntil))
	return invalid(errs)
}

// buildPrivatePrice turns validated input into a row, resolving the company
// and, for discounts, the default price the discount applies to.
func (s *PricingService) buildPrivatePrice(ctx context.Context, tx repository.Repository, actor model.Actor, product *model.Product, in PrivatePriceInput) (*model.PrivatePrice, error) {
	company, err := tx.GetTenant(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}
	if company.Type != model.TenantCompany {
		return nil, apperr.Invalid("private prices can only be granted to companies")
	}

	now := s.clock()
	price := &model.PrivatePrice{
		ProductID:      product.ID,
		CompanyID:      company.ID,
		Currency:       strings.TrimSpace(in.Currency),
		EffectiveFrom:  valueOr(in.EffectiveFrom, now).UTC(),
		EffectiveUntil: utcPtr(in.EffectiveUntil),
		IsActive:       true,
		Notes:          in.Notes,
		CreatedBy:      actor.UserID,
	}

	if in.Price != nil {
		price.Price = *in.Price
	} else {
		base, err := s.currentDefault(ctx, tx, product.ID)
		if err != nil {
			return nil, err
		}
		price.Price = discountedPrice(base.Price, *in.DiscountPercentage)
		price.DiscountPercentage = decimal.NewNullDecimal(in.DiscountPercentage.Round(2))
		if price.Currency == "" {
			price.Currency = base.Currency
		}
		if err := validatePrice("discounted price", price.Price); err != nil {
			return nil, err
		}
	}
	if price.Currency == "" {
		return nil, apperr.Invalid("currency is required")
	}
	return price, nil
}

func (s *PricingService) currentDefault(ctx context.Context, tx repository.Repository, productID uuid.UUID) (*model.DefaultPrice, error) {
	rows, err := tx.ActiveDefaultPrices(ctx, []uuid.UUID{productID})
	if err != nil {
		return nil, err
	}
	base := selectEffectiveDefault(rows, s.clock())
	if base == nil {
		return nil, apperr.Invalid("product has no default price to apply a discount to")
	}
	return base, nil
}

func priceUpdated(p *model.PrivatePrice, action string) events.Event {
	return events.Event{
		Type:  events.TypePriceUpdated,
		Scope: events.TenantScope(p.CompanyID),
		Payload: map[string]any{
			"action":     action,
			"price_id":   p.ID,
			"product_id": p.ProductID,
			"price":      p.Price.StringFixed(2),
			"currency":   p.Currency,
			"is_active":  p.IsActive,
		},
	}
}

func valueOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil {
		return fallback
	}
	return *t
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
