package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/events"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/prometheus"
)

// DefaultQuoteCurrency is used when neither the request nor the product's
// current price names a currency.
const DefaultQuoteCurrency = "USD"

// QuoteService runs the quote negotiation between a company and the
// supplier owning the quoted product.
type QuoteService struct {
	*deps
}

type CreateQuoteInput struct {
	ProductID      uuid.UUID        `json:"product_id" validate:"required"`
	Quantity       *decimal.Decimal `json:"quantity"`
	Unit           string           `json:"unit" validate:"required"`
	RequestedPrice *decimal.Decimal `json:"requested_price"`
	Currency       string           `json:"currency"`
	Message        string           `json:"message"`
	ExpiresAt      *time.Time       `json:"expires_at"`
}

// QuoteActionInput carries the optional price and message of an action.
// Respond and Counter require a price.
type QuoteActionInput struct {
	Price   *decimal.Decimal `json:"price"`
	Message string           `json:"message"`
}

type QuoteListFilter struct {
	Status    *model.QuoteStatus
	ProductID *uuid.UUID
}

// Create opens a pending quote request on behalf of a company. The actor
// needs create permission, as for every negotiating action.
func (s *QuoteService) Create(ctx context.Context, actor model.Actor, in CreateQuoteInput) (*model.QuoteRequest, error) {
	if err := requireCompany(actor); err != nil {
		return nil, err
	}
	if err := requirePermission(actor, model.PermCreate); err != nil {
		return nil, err
	}
	now := s.clock()

	var errs error
	if in.ProductID == uuid.Nil {
		errs = multierr.Append(errs, apperr.Invalid("product id is required"))
	}
	if strings.TrimSpace(in.Unit) == "" {
		errs = multierr.Append(errs, apperr.Invalid("unit is required"))
	}
	if in.Quantity != nil && !in.Quantity.IsPositive() {
		errs = multierr.Append(errs, apperr.Invalid("quantity must be greater than zero"))
	}
	if in.RequestedPrice != nil {
		errs = multierr.Append(errs, validatePrice("requested price", *in.RequestedPrice))
	}
	if c := strings.TrimSpace(in.Currency); c != "" {
		errs = multierr.Append(errs, validateCurrency(c))
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		errs = multierr.Append(errs, apperr.Invalid("expiry must be in the future"))
	}
	if err := invalid(errs); err != nil {
		return nil, err
	}

	quote := &model.QuoteRequest{
		ProductID:      in.ProductID,
		CompanyID:      *actor.CompanyID(),
		RequestedBy:    actor.UserID,
		Quantity:       nullDecimal(in.Quantity),
		Unit:           strings.TrimSpace(in.Unit),
		RequestedPrice: nullDecimal(in.RequestedPrice),
		Currency:       strings.TrimSpace(in.Currency),
		Message:        in.Message,
		Status:         model.QuotePending,
		ExpiresAt:      utcPtr(in.ExpiresAt),
	}
	if in.RequestedPrice != nil {
		quote.LastOfferBy = model.SideCompany
	}

	err := s.mutate(ctx, func(tx repository.Repository, ob *events.Outbox) error {
		product, err := tx.GetProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return apperr.Invalid("product is not available")
		}
		quote.SupplierID = product.SupplierID

		if quote.Currency == "" {
			quote.Currency = DefaultQuoteCurrency
			rows, err := tx.ActiveDefaultPrices(ctx, []uuid.UUID{product.ID})
			if err != nil {
				return err
			}
			if base := selectEffectiveDefault(rows, now); base != nil {
				quote.Currency = base.Currency
			}
		}

		if err := tx.CreateQuote(ctx, quote); err != nil {
			return err
		}
		if err := tx.CreateQuoteActivity(ctx, &model.QuoteActivity{
			QuoteID:   quote.ID,
			Action:    model.ActionCreate,
			ToStatus:  model.QuotePending,
			ActorID:   &actor.UserID,
			ActorSide: model.SideCompany,
			Price:     quote.RequestedPrice,
			Message:   quote.Message,
		}); err != nil {
			return err
		}
		ob.Add(events.Event{
			Type:    events.TypeRFQCreated,
			Scope:   events.TenantScope(quote.SupplierID),
			Payload: quote,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordQuoteTransition(string(model.ActionCreate), string(model.QuotePending))
	s.logFor(ctx).Info("Quote requested",
		zap.String("quote_id", quote.ID.String()),
		zap.String("product_id", quote.ProductID.String()),
		zap.String("company_id", quote.CompanyID.String()))
	return quote, nil
}

// Respond records the supplier's first price for a pending quote.
func (s *QuoteService) Respond(ctx context.Context, actor model.Actor, id uuid.UUID, in QuoteActionInput) (*model.QuoteRequest, error) {
	return s.transition(ctx, actor, id, model.ActionRespond, in)
}

// Counter proposes a revised price. The supplier may counter a pending
// quote; once negotiation has started either party may counter.
func (s *QuoteService) Counter(ctx context.Context, actor model.Actor, id uuid.UUID, in QuoteActionInput) (*model.QuoteRequest, error) {
	return s.transition(ctx, actor, id, model.ActionCounter, in)
}

// Accept closes the negotiation at the last offered price. Only the party
// that did not make the last offer may accept it.
func (s *QuoteService) Accept(ctx context.Context, actor model.Actor, id uuid.UUID, in QuoteActionInput) (*model.QuoteRequest, error) {
	return s.transition(ctx, actor, id, model.ActionAccept, in)
}

func (s *QuoteService) Reject(ctx context.Context, actor model.Actor, id uuid.UUID, in QuoteActionInput) (*model.QuoteRequest, error) {
	return s.transition(ctx, actor, id, model.ActionReject, in)
}

// Cancel withdraws a pending quote. Only the requesting company may cancel.
func (s *QuoteService) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID, in QuoteActionInput) (*model.QuoteRequest, error) {
	return s.transition(ctx, actor, id, model.ActionCancel, in)
}

var quoteEventNames = map[model.QuoteAction]string{
	model.ActionRespond: "quote:responded",
	model.ActionCounter: "quote:countered",
	model.ActionAccept:  "quote:accepted",
	model.ActionReject:  "quote:rejected",
	model.ActionCancel:  "quote:cancelled",
}

func (s *QuoteService) transition(ctx context.Context, actor model.Actor, id uuid.UUID, action model.QuoteAction, in QuoteActionInput) (*model.QuoteRequest, error) {
	if in.Price != nil {
		if err := validatePrice("price", *in.Price); err != nil {
			return nil, err
		}
	}

	var (
		quote *model.QuoteRequest
		from  model.QuoteStatus
	)
	err := s.mutate(ctx, func(tx repository.Repository, ob *events.Outbox) error {
		var err error
		quote, err = tx.GetQuote(ctx, id)
		if err != nil {
			return err
		}
		side, ok := quote.SideOf(actor)
		if !ok {
			return apperr.Forbidden("not a party to this quote")
		}
		if err := requirePermission(actor, model.PermCreate); err != nil {
			return err
		}

		now := s.clock()
		stored := quote.Status
		from = model.EffectiveStatus(quote, now)
		to, ok := model.QuoteTransition(action, from)
		if !ok {
			return apperr.InvalidTransition(string(action), string(from))
		}
		if !model.SideMayAct(action, from, side) {
			return apperr.Forbidden("the %s may not %s a %s quote", side, action, from)
		}

		switch action {
		case model.ActionRespond, model.ActionCounter:
			if in.Price == nil {
				return apperr.Invalid("price is required to %s", action)
			}
			quote.QuotedPrice = decimal.NewNullDecimal(*in.Price)
			quote.ResponseMessage = in.Message
			quote.LastOfferBy = side
			if quote.RespondedAt == nil && side == model.SideSupplier {
				quote.RespondedAt = &now
			}
		case model.ActionAccept:
			if quote.LastOfferBy == side {
				return apperr.Forbidden("cannot accept your own offer")
			}
		}
		quote.Status = to
		if to.IsTerminal() {
			quote.ClosedAt = &now
		}

		if err := tx.UpdateQuote(ctx, quote, stored); err != nil {
			return err
		}
		activity := &model.QuoteActivity{
			QuoteID:    quote.ID,
			Action:     action,
			FromStatus: from,
			ToStatus:   to,
			ActorID:    &actor.UserID,
			ActorSide:  side,
			Price:      nullDecimal(in.Price),
			Message:    in.Message,
		}
		if action == model.ActionAccept && quote.QuotedPrice.Valid {
			activity.Metadata = datatypes.JSONMap{
				"accepted_price": quote.QuotedPrice.Decimal.StringFixed(2),
				"currency":       quote.Currency,
				"offered_by":     string(quote.LastOfferBy),
			}
		}
		if err := tx.CreateQuoteActivity(ctx, activity); err != nil {
			return err
		}

		recipient := quote.SupplierID
		if side == model.SideSupplier {
			recipient = quote.CompanyID
		}
		ob.Add(events.Event{
			Type:    events.TypeQuoteUpdated,
			Scope:   events.TenantScope(recipient),
			Payload: events.Envelope{Event: quoteEventNames[action], Data: quote},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordQuoteTransition(string(action), string(quote.Status))
	s.logFor(ctx).Info("Quote transitioned",
		zap.String("quote_id", quote.ID.String()),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(quote.Status)))
	return quote, nil
}

// Get returns a quote as the actor sees it, with lazy expiry applied.
func (s *QuoteService) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.QuoteRequest, error) {
	quote, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, quote); err != nil {
		return nil, err
	}
	quote.Status = model.EffectiveStatus(quote, s.clock())
	return quote, nil
}

// List returns the quotes visible to the actor: a company sees its own
// requests, a seller the requests on its products, a super admin everything.
func (s *QuoteService) List(ctx context.Context, actor model.Actor, f QuoteListFilter) ([]model.QuoteRequest, error) {
	filter := repository.QuoteFilter{ProductID: f.ProductID}
	switch {
	case actor.IsSuperAdmin():
	case actor.CompanyID() != nil:
		filter.CompanyID = actor.CompanyID()
	case actor.TenantID != nil && actor.TenantType.Sells():
		filter.SupplierID = actor.TenantID
	default:
		return nil, apperr.Forbidden("quotes are only available to tenant users")
	}

	quotes, err := s.repo.ListQuotes(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	out := quotes[:0]
	for _, q := range quotes {
		q.Status = model.EffectiveStatus(&q, now)
		if f.Status != nil && q.Status != *f.Status {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// History returns the negotiation log of a quote, oldest first.
func (s *QuoteService) History(ctx context.Context, actor model.Actor, id uuid.UUID) ([]model.QuoteActivity, error) {
	quote, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, quote); err != nil {
		return nil, err
	}
	return s.repo.ListQuoteActivities(ctx, id)
}

// ReconcileExpired persists the expired status of every open quote whose
// expiry has passed and returns how many were updated.
func (s *QuoteService) ReconcileExpired(ctx context.Context) (int, error) {
	now := s.clock()
	var expired int
	err := s.mutate(ctx, func(tx repository.Repository, _ *events.Outbox) error {
		quotes, err := tx.OpenQuotesWithExpiry(ctx)
		if err != nil {
			return err
		}
		for i := range quotes {
			q := &quotes[i]
			if model.EffectiveStatus(q, now) != model.QuoteExpired {
				continue
			}
			from := q.Status
			q.Status = model.QuoteExpired
			q.ClosedAt = &now
			if err := tx.UpdateQuote(ctx, q, from); err != nil {
				return err
			}
			if err := tx.CreateQuoteActivity(ctx, &model.QuoteActivity{
				QuoteID:    q.ID,
				Action:     model.ActionExpire,
				FromStatus: from,
				ToStatus:   model.QuoteExpired,
				Metadata: datatypes.JSONMap{
					"reason":     "expiry passed",
					"expires_at": q.ExpiresAt.UTC().Format(time.RFC3339),
				},
			}); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		prometheus.QuoteTransitionCounter.WithLabelValues(string(model.ActionExpire), string(model.QuoteExpired)).Add(float64(expired))
		s.logFor(ctx).Info("Expired quotes reconciled", zap.Int("count", expired))
	}
	return expired, nil
}

func canView(actor model.Actor, q *model.QuoteRequest) error {
	if actor.IsSuperAdmin() {
		return nil
	}
	if _, ok := q.SideOf(actor); !ok {
		return apperr.Forbidden("not a party to this quote")
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
