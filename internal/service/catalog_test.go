package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
)

func (f *fixture) category(kind model.CategoryKind, name string, parent *uuid.UUID) *model.Category {
	f.t.Helper()
	c, err := f.svc.Categories.Create(f.ctx, f.admin, CategoryInput{Kind: kind, Name: name, ParentID: parent})
	require.NoError(f.t, err)
	return c
}

func TestProductWithBothCategoriesIsRejected(t *testing.T) {
	f := newFixture(t)
	supplier := f.tenant(model.TenantSupplier, "Acme Supply")
	cat := f.category(model.CategoryProduct, "Cement", nil)
	svcCat := f.category(model.CategoryService, "Delivery", nil)

	_, err := f.svc.Catalog.CreateProduct(f.ctx, f.adminOf(supplier), ProductInput{
		SKU:               "CEM-01",
		Name:              "Portland cement",
		Unit:              "bag",
		CategoryID:        &cat.ID,
		ServiceCategoryID: &svcCat.ID,
	})
	assert.Equal(t, apperr.EInvalid, apperr.ErrorCode(err))

	_, total, err := f.repo.ListProducts(f.ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	supplier := f.tenant(model.TenantSupplier, "Acme Supply")
	provider := f.tenant(model.TenantServiceProvider, "FixIt")
	cat := f.category(model.CategoryProduct, "Cement", nil)
	svcCat := f.category(model.CategoryService, "Plumbing", nil)

	p, err := f.svc.Catalog.CreateProduct(f.ctx, f.adminOf(supplier), ProductInput{SKU: "CEM-01", Name: "Portland cement", Unit: "bag", CategoryID: &cat.ID})
	require.NoError(t, err)
	assert.Equal(t, model.ProductTypeProduct, p.Type)
	assert.True(t, p.IsActive)

	_, err = f.svc.Catalog.CreateProduct(f.ctx, f.adminOf(supplier), ProductInput{SKU: "CEM-01", Name: "Again", Unit: "bag"})
	assert.Equal(t, apperr.EConflict, apperr.ErrorCode(err))

	_, err = f.svc.Catalog.CreateProduct(f.ctx, f.adminOf(supplier), ProductInput{SKU: "CEM-02", Name: "Wrong kind", Unit: "bag", CategoryID: &svcCat.ID})
	assert.Equal(t, apperr.EInvalid, apperr.ErrorCode(err))

	rate := dec("45.00")
	s, err := f.svc.Catalog.CreateProduct(f.ctx, f.adminOf(provider), ProductInput{
		SKU:               "PLB-01",
		Name:              "Pipe repair",
		Unit:              "hour",
		ServiceCategoryID: &svcCat.ID,
		RatePerHour:       rate,
		RateType:          model.RateHourly,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProductTypeService, s.Type)
	assert.Equal(t, "45.00", s.RatePerHour.Decimal.StringFixed(2))

	_, err = f.svc.Catalog.CreateProduct(f.ctx, f.adminOf(supplier), ProductInput{SKU: "CEM-03", Name: "Rated", Unit: "bag", RatePerHour: rate})
	assert.Equal(t, apperr.EInvalid, apperr.ErrorCode(err), "rates only apply to services")

	_, err = f.svc.Catalog.CreateProduct(f.ctx, f.staffOf(supplier), ProductInput{SKU: "CEM-04", Name: "Staff", Unit: "bag"})
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err))

	_, err = f.svc.Catalog.CreateProduct(f.ctx, f.adminOf(f.tenant(model.TenantCompany, "BuildCo")), ProductInput{SKU: "X", Name: "X", Unit: "bag"})
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err))
}

func TestProductViewCarriesResolvedPrice(t *testing.T) {
	f := newFixture(t)
	supplier := f.tenant(model.TenantSupplier, "Acme Supply")
	company := f.tenant(model.TenantCompany, "BuildCo")
	priced := f.product(supplier, "A")
	unpriced := f.product(supplier, "B")
	f.defaultPrice(priced, "25.99", f.now.AddDate(0, 0, -1), nil)
	f.privatePrice(priced, company, "22.50", f.now.AddDate(0, 0, -1), nil, true)

	view, err := f.svc.Catalog.GetProduct(f.ctx, f.staffOf(company), priced.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Price)
	assert.Equal(t, model.PricePrivate, view.Price.Type)
	assert.False(t, view.PriceOnRequest)

	view, err = f.svc.Catalog.GetProduct(f.ctx, f.staffOf(company), unpriced.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Price)
	assert.True(t, view.PriceOnRequest)

	page, err := f.svc.Catalog.ListProducts(f.ctx, model.Actor{Role: model.RoleCustomer}, ProductQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, defaultPageSize, page.Limit)
	for _, item := range page.Items {
		if item.ID == priced.ID {
			require.NotNil(t, item.Price)
			assert.Equal(t, model.PriceDefault, item.Price.Type)
		} else {
			assert.True(t, item.PriceOnRequest)
		}
	}
}

func TestInactiveProductsAreHidden(t *testing.T) {
	f := newFixture(t)
	supplier := f.tenant(model.TenantSupplier, "Acme Supply")
	owner := f.adminOf(supplier)
	p := f.product(supplier, "A")

	off := false
	_, err := f.svc.Catalog.UpdateProduct(f.ctx, owner, p.ID, UpdateProductInput{IsActive: &off})
	require.NoError(t, err)

	_, err = f.svc.Catalog.GetProduct(f.ctx, model.Actor{Role: model.RoleCustomer}, p.ID)
	assert.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))

	_, err = f.svc.Catalog.GetProduct(f.ctx, owner, p.ID)
	assert.NoError(t, err)

	page, err := f.svc.Catalog.ListProducts(f.ctx, owner, ProductQuery{SupplierID: &supplier.ID, IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	page, err = f.svc.Catalog.ListProducts(f.ctx, model.Actor{Role: model.RoleCustomer}, ProductQuery{SupplierID: &supplier.ID, IncludeInactive: true})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	f := newFixture(t)
	supplier := f.tenant(model.TenantSupplier, "Acme Supply")
	owner := f.adminOf(supplier)
	a := f.product(supplier, "A")
	f.product(supplier, "B")

	sku := "B"
	_, err := f.svc.Catalog.UpdateProduct(f.ctx, owner, a.ID, UpdateProductInput{SKU: &sku})
	assert.Equal(t, apperr.EConflict, apperr.ErrorCode(err))

	name := "Renamed"
	updated, err := f.svc.Catalog.UpdateProduct(f.ctx, owner, a.ID, UpdateProductInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	_, err = f.svc.Catalog.UpdateProduct(f.ctx, f.adminOf(f.tenant(model.TenantSupplier, "Rival")), a.ID, UpdateProductInput{Name: &name})
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err))

	creator := f.staffOf(supplier)
	creator.Permissions[string(model.PermCreate)] = true
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(f.svc.Catalog.DeleteProduct(f.ctx, creator, a.ID)), "delete needs admin")

	require.NoError(t, f.svc.Catalog.DeleteProduct(f.ctx, owner, a.ID))
	_, err = f.svc.Catalog.GetProduct(f.ctx, owner, a.ID)
	assert.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))
}

func TestCategoryRules(t *testing.T) {
	f := newFixture(t)
	root := f.category(model.CategoryProduct, "Building Materials", nil)
	child := f.category(model.CategoryProduct, "Cement", &root.ID)

	_, err := f.svc.Categories.Create(f.ctx, f.admin, CategoryInput{Kind: model.CategoryProduct, Name: "cement", ParentID: &root.ID})
	assert.Equal(t, apperr.EConflict, apperr.ErrorCode(err), "sibling names are unique ignoring case")

	_, err = f.svc.Categories.Create(f.ctx, f.admin, CategoryInput{Kind: model.CategoryService, Name: "Install", ParentID: &root.ID})
	assert.Equal(t, apperr.EInvalid, apperr.ErrorCode(err), "parent must be the same kind")

	_, err = f.svc.Categories.Update(f.ctx, f.admin, root.ID, UpdateCategoryInput{ParentID: &child.ID})
	assert.Equal(t, apperr.EInvalid, apperr.ErrorCode(err), "no cycles")

	_, err = f.svc.Categories.Create(f.ctx, model.Actor{Role: model.RoleCustomer}, CategoryInput{Kind: model.CategoryProduct, Name: "X"})
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(err))

	assert.Equal(t, apperr.EConflict, apperr.ErrorCode(f.svc.Categories.Delete(f.ctx, f.admin, root.ID)), "has children")

	supplier := f.tenant(model.TenantSupplier, "Acme Supply")
	_, err = f.svc.Catalog.CreateProduct(f.ctx, f.adminOf(supplier), ProductInput{SKU: "C1", Name: "Cement", Unit: "bag", CategoryID: &child.ID})
	require.NoError(t, err)
	assert.Equal(t, apperr.EConflict, apperr.ErrorCode(f.svc.Categories.Delete(f.ctx, f.admin, child.ID)), "in use")

	empty := f.category(model.CategoryProduct, "Tiles", &root.ID)
	require.NoError(t, f.svc.Categories.Delete(f.ctx, f.admin, empty.ID))

	tree, err := f.svc.Categories.Tree(f.ctx, model.CategoryProduct, false)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, root.ID, tree[0].ID)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, child.ID, tree[0].Children[0].ID)
}

func TestDirectoryListsOperationalTenants(t *testing.T) {
	f := newFixture(t)
	f.tenant(model.TenantSupplier, "Acme Supply")
	f.tenant(model.TenantCompany, "BuildCo")
	f.registerSupplier("pending@acme.test")

	all, err := f.svc.Directory.ListTenants(f.ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	suppliers := model.TenantSupplier
	only, err := f.svc.Directory.ListTenants(f.ctx, &suppliers)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "Acme Supply", only[0].Name)
}
