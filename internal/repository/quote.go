package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/prometheus"
)

var openQuoteStatuses = []model.QuoteStatus{model.QuotePending, model.QuoteResponded, model.QuoteCountered}

func (r *gormRepository) CreateQuote(ctx context.Context, q *model.QuoteRequest) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate("create quote", r.conn(ctx).Omit(clause.Associations).Create(q).Error)
}

func (r *gormRepository) GetQuote(ctx context.Context, id uuid.UUID) (*model.QuoteRequest, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var q model.QuoteRequest
	if err := r.forUpdate(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, lookup("quote", err)
	}
	return &q, nil
}

// UpdateQuote writes the negotiation columns of q provided its stored status
// is still from. A quote moved on by another transaction fails with an
// invalid state transition error and is left untouched.
func (r *gormRepository) UpdateQuote(ctx context.Context, q *model.QuoteRequest, from model.QuoteStatus) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	res := r.conn(ctx).Model(q).
		Where("status = ?", from).
		Select("Status", "QuotedPrice", "ResponseMessage", "LastOfferBy", "RespondedAt", "ClosedAt", "UpdatedAt").
		Updates(q)
	if err := translate("update quote", res.Error); err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return &apperr.Error{
			Code: apperr.EInvalidStateTransition,
			Msg:  fmt.Sprintf("quote is no longer %s", from),
			Op:   "update quote",
		}
	}
	return nil
}

func (r *gormRepository) ListQuotes(ctx context.Context, f QuoteFilter) ([]model.QuoteRequest, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	q := r.conn(ctx).Model(&model.QuoteRequest{})
	if f.CompanyID != nil {
		q = q.Where("company_id = ?", *f.CompanyID)
	}
	if f.SupplierID != nil {
		q = q.Where("supplier_id = ?", *f.SupplierID)
	}
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	var quotes []model.QuoteRequest
	if err := q.Order("created_at DESC").Find(&quotes).Error; err != nil {
		return nil, translate("list quotes", err)
	}
	return quotes, nil
}

// OpenQuotesWithExpiry returns non-terminal quotes that carry an expiry.
func (r *gormRepository) OpenQuotesWithExpiry(ctx context.Context) ([]model.QuoteRequest, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var quotes []model.QuoteRequest
	err := r.conn(ctx).
		Where("status IN ? AND expires_at IS NOT NULL", openQuoteStatuses).
		Find(&quotes).Error
	if err != nil {
		return nil, translate("list open quotes", err)
	}
	return quotes, nil
}

func (r *gormRepository) CreateQuoteActivity(ctx context.Context, a *model.QuoteActivity) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate("record quote activity", r.conn(ctx).Omit(clause.Associations).Create(a).Error)
}

func (r *gormRepository) ListQuoteActivities(ctx context.Context, quoteID uuid.UUID) ([]model.QuoteActivity, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var acts []model.QuoteActivity
	err := r.conn(ctx).
		Where("quote_id = ?", quoteID).
		Order("created_at ASC").
		Find(&acts).Error
	if err != nil {
		return nil, translate("list quote activities", err)
	}
	return acts, nil
}
