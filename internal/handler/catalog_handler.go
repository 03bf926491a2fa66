package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/service"
)

// ListTenants is the directory of operational tenants, optionally ?type=.
func (h *Handler) ListTenants(c echo.Context) error {
	var tenantType *model.TenantType
	if raw := c.QueryParam("type"); raw != "" {
		t := model.TenantType(raw)
		tenantType = &t
	}
	tenants, err := h.svc.Directory.ListTenants(c.Request().Context(), tenantType)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenants)
}

func (h *Handler) GetTenant(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	tenant, err := h.svc.Directory.GetTenant(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenant)
}

// ListCategories returns a flat list, or with ?tree=true the nested tree of
// one ?kind=.
func (h *Handler) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	kind := model.CategoryKind(c.QueryParam("kind"))
	activeOnly, err := queryBool(c, "active_only")
	if err != nil {
		return err
	}

	tree, err := queryBool(c, "tree")
	if err != nil {
		return err
	}
	if tree {
		nodes, err := h.svc.Categories.Tree(ctx, kind, activeOnly)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, nodes)
	}

	parentID, err := queryUUID(c, "parent_id")
	if err != nil {
		return err
	}
	rootsOnly, err := queryBool(c, "roots_only")
	if err != nil {
		return err
	}
	cats, err := h.svc.Categories.List(ctx, repository.CategoryFilter{
		Kind:       kind,
		ParentID:   parentID,
		RootsOnly:  rootsOnly,
		ActiveOnly: activeOnly,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *Handler) GetCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	cat, err := h.svc.Categories.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *Handler) CreateCategory(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req service.CategoryInput
	if err := bind(c, &req); err != nil {
		return err
	}
	cat, err := h.svc.Categories.Create(c.Request().Context(), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *Handler) UpdateCategory(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req service.UpdateCategoryInput
	if err := bind(c, &req); err != nil {
		return err
	}
	cat, err := h.svc.Categories.Update(c.Request().Context(), actor, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *Handler) DeleteCategory(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Categories.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListProducts(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	var q service.ProductQuery
	if q.SupplierID, err = queryUUID(c, "supplier_id"); err != nil {
		return err
	}
	if q.CategoryID, err = queryUUID(c, "category_id"); err != nil {
		return err
	}
	if q.ServiceCategoryID, err = queryUUID(c, "service_category_id"); err != nil {
		return err
	}
	if q.IncludeInactive, err = queryBool(c, "include_inactive"); err != nil {
		return err
	}
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		return err
	}
	if q.Offset, err = queryInt(c, "offset"); err != nil {
		return err
	}
	if raw := c.QueryParam("type"); raw != "" {
		t := model.ProductType(raw)
		q.Type = &t
	}
	q.Search = c.QueryParam("search")

	page, err := h.svc.Catalog.ListProducts(c.Request().Context(), actor, q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) GetProduct(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	view, err := h.svc.Catalog.GetProduct(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) CreateProduct(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req service.ProductInput
	if err := bind(c, &req); err != nil {
		return err
	}
	product, err := h.svc.Catalog.CreateProduct(c.Request().Context(), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req service.UpdateProductInput
	if err := bind(c, &req); err != nil {
		return err
	}
	product, err := h.svc.Catalog.UpdateProduct(c.Request().Context(), actor, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Catalog.DeleteProduct(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
