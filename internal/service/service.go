// Package service implements the marketplace operations. Every operation
// takes the calling model.Actor explicitly, runs its writes in a single
// transaction and publishes events only after that transaction commits.
package service

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/events"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/jwtutil"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/logger"
)

// Services bundles every service the HTTP layer and the CLI need.
type Services struct {
	Auth       *AuthService
	Directory  *DirectoryService
	Approvals  *ApprovalService
	Categories *CategoryService
	Catalog    *CatalogService
	Pricing    *PricingService
	Quotes     *QuoteService
}

// Option adjusts the shared dependencies of every service.
type Option func(*deps)

// WithClock replaces time.Now. Tests use it to pin "now".
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

func New(repo repository.Repository, publisher events.Publisher, jwt *jwtutil.JWTUtil, log *zap.Logger, opts ...Option) *Services {
	d := &deps{
		repo:      repo,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	for _, opt := range opts {
		opt(d)
	}

	pricing := &PricingService{deps: d}
	return &Services{
		Auth:       &AuthService{deps: d, jwt: jwt},
		Directory:  &DirectoryService{deps: d},
		Approvals:  &ApprovalService{deps: d},
		Categories: &CategoryService{deps: d},
		Catalog:    &CatalogService{deps: d, pricing: pricing},
		Pricing:    pricing,
		Quotes:     &QuoteService{deps: d},
	}
}

type deps struct {
	repo      repository.Repository
	publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

func (d *deps) clock() time.Time {
	return d.now().UTC()
}

func (d *deps) logFor(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, d.log)
}

// mutate runs fn in one transaction. Events fn adds to the outbox are
// published after commit and discarded on rollback.
func (d *deps) mutate(ctx context.Context, fn func(tx repository.Repository, ob *events.Outbox) error) error {
	var ob events.Outbox
	if err := d.repo.WithTx(ctx, func(tx repository.Repository) error {
		return fn(tx, &ob)
	}); err != nil {
		return err
	}
	ob.Flush(ctx, d.publisher, d.logFor(ctx))
	return nil
}

// invalid folds aggregated validation failures into one coded error.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	if errs := multierr.Errors(err); len(errs) == 1 && apperr.ErrorCode(errs[0]) == apperr.EInvalid {
		return errs[0]
	}
	return &apperr.Error{Code: apperr.EInvalid, Msg: err.Error(), Err: err}
}
