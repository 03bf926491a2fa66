package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
)

// Repository is the persistence boundary of the marketplace. Every mutation
// a service performs runs inside WithTx; the Repository handed to fn is bound
// to that transaction and must be used for all work inside it. Inside WithTx
// GetTenant, GetUser and GetQuote lock the row they return until the
// transaction ends.
type Repository interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error

	TenantRepository
	UserRepository
	CategoryRepository
	ProductRepository
	PriceRepository
	QuoteRepository
}

type TenantRepository interface {
	CreateTenant(ctx context.Context, t *model.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	UpdateTenant(ctx context.Context, t *model.Tenant) error
	ListTenants(ctx context.Context, f TenantFilter) ([]model.Tenant, error)
	TenantEmailExists(ctx context.Context, email string) (bool, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	ListUsers(ctx context.Context, f UserFilter) ([]model.User, error)
	UserEmailExists(ctx context.Context, email string) (bool, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error)
	UpdateCategory(ctx context.Context, c *model.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context, f CategoryFilter) ([]model.Category, error)
	CategoryNameExists(ctx context.Context, kind model.CategoryKind, parentID *uuid.UUID, name string, excludeID *uuid.UUID) (bool, error)
	CountCategoryChildren(ctx context.Context, id uuid.UUID) (int64, error)
	CountProductsInCategory(ctx context.Context, id uuid.UUID) (int64, error)
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, int64, error)
	SKUExists(ctx context.Context, supplierID uuid.UUID, sku string, excludeID *uuid.UUID) (bool, error)
}

type PriceRepository interface {
	CreateDefaultPrice(ctx context.Context, p *model.DefaultPrice) error
	GetDefaultPrice(ctx context.Context, id uuid.UUID) (*model.DefaultPrice, error)
	UpdateDefaultPrice(ctx context.Context, p *model.DefaultPrice) error
	ListDefaultPrices(ctx context.Context, productID uuid.UUID) ([]model.DefaultPrice, error)
	ActiveDefaultPrices(ctx context.Context, productIDs []uuid.UUID) ([]model.DefaultPrice, error)

	CreatePrivatePrice(ctx context.Context, p *model.PrivatePrice) error
	GetPrivatePrice(ctx context.Context, id uuid.UUID) (*model.PrivatePrice, error)
	UpdatePrivatePrice(ctx context.Context, p *model.PrivatePrice) error
	ListPrivatePrices(ctx context.Context, f PrivatePriceFilter) ([]model.PrivatePrice, error)
	ActivePrivatePrices(ctx context.Context, productIDs []uuid.UUID, companyID uuid.UUID) ([]model.PrivatePrice, error)
}

type QuoteRepository interface {
	CreateQuote(ctx context.Context, q *model.QuoteRequest) error
	GetQuote(ctx context.Context, id uuid.UUID) (*model.QuoteRequest, error)
	UpdateQuote(ctx context.Context, q *model.QuoteRequest, from model.QuoteStatus) error
	ListQuotes(ctx context.Context, f QuoteFilter) ([]model.QuoteRequest, error)
	OpenQuotesWithExpiry(ctx context.Context) ([]model.QuoteRequest, error)
	CreateQuoteActivity(ctx context.Context, a *model.QuoteActivity) error
	ListQuoteActivities(ctx context.Context, quoteID uuid.UUID) ([]model.QuoteActivity, error)
}

type TenantFilter struct {
	Type     *model.TenantType
	Status   *model.ApprovalStatus
	IsActive *bool
}

type UserFilter struct {
	TenantID *uuid.UUID
	Status   *model.ApprovalStatus
	Role     *model.Role
}

type CategoryFilter struct {
	Kind       model.CategoryKind
	ParentID   *uuid.UUID
	RootsOnly  bool
	ActiveOnly bool
}

type ProductFilter struct {
	SupplierID        *uuid.UUID
	Type              *model.ProductType
	CategoryID        *uuid.UUID
	ServiceCategoryID *uuid.UUID
	Search            string
	ActiveOnly        bool
	Limit             int
	Offset            int
}

type PrivatePriceFilter struct {
	ProductID  uuid.UUID
	CompanyID  *uuid.UUID
	ActiveOnly bool
}

type QuoteFilter struct {
	CompanyID  *uuid.UUID
	SupplierID *uuid.UUID
	ProductID  *uuid.UUID
}

type gormRepository struct {
	db   *gorm.DB
	inTx bool
}

// New returns a Repository backed by db.
func New(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx, inTx: true})
	})
}

func (r *gormRepository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// forUpdate is conn with a row lock when r is bound to a transaction. SQLite
// has no row locks; the gorm driver drops the clause there.
func (r *gormRepository) forUpdate(ctx context.Context) *gorm.DB {
	if !r.inTx {
		return r.conn(ctx)
	}
	return r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&model.Tenant{},
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.DefaultPrice{},
		&model.PrivatePrice{},
		&model.QuoteRequest{},
		&model.QuoteActivity{},
	}
}

// translate maps storage errors onto the application error taxonomy.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &apperr.Error{Code: apperr.ENotFound, Msg: op + ": record not found", Op: op, Err: err}
	case isDuplicateKey(err):
		return &apperr.Error{Code: apperr.EConflict, Msg: op + ": record already exists", Op: op, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Internal(op, err)
	}
	var coded *apperr.Error
	if errors.As(err, &coded) {
		return err
	}
	return apperr.Internal(op, err)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// lookup translates the error of a single-row read, naming what was missing.
func lookup(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s not found", what)
	}
	return translate("get "+what, err)
}
