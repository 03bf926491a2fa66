package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/service"
)

type rejectRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type permissionsRequest struct {
	Permissions map[string]bool `json:"permissions" validate:"required"`
}

func (h *Handler) AdminListTenants(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var f repository.TenantFilter
	if raw := c.QueryParam("type"); raw != "" {
		t := model.TenantType(raw)
		if !t.Valid() {
			return apperr.Invalid("unknown tenant type %q", raw)
		}
		f.Type = &t
	}
	if raw := c.QueryParam("status"); raw != "" {
		s := model.ApprovalStatus(raw)
		if !s.Valid() {
			return apperr.Invalid("unknown approval status %q", raw)
		}
		f.Status = &s
	}
	if raw := c.QueryParam("is_active"); raw != "" {
		active, err := queryBool(c, "is_active")
		if err != nil {
			return err
		}
		f.IsActive = &active
	}
	tenants, err := h.svc.Approvals.ListTenants(c.Request().Context(), actor, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenants)
}

func (h *Handler) ApproveTenant(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	tenant, err := h.svc.Approvals.ApproveTenant(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenant)
}

func (h *Handler) RejectTenant(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req rejectRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tenant, err := h.svc.Approvals.RejectTenant(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenant)
}

func (h *Handler) ToggleTenantStatus(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	tenant, err := h.svc.Approvals.ToggleTenantStatus(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenant)
}

func (h *Handler) AdminListUsers(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var f repository.UserFilter
	if f.TenantID, err = queryUUID(c, "tenant_id"); err != nil {
		return err
	}
	if raw := c.QueryParam("status"); raw != "" {
		s := model.ApprovalStatus(raw)
		if !s.Valid() {
			return apperr.Invalid("unknown approval status %q", raw)
		}
		f.Status = &s
	}
	if raw := c.QueryParam("role"); raw != "" {
		r := model.Role(raw)
		if !r.Valid() {
			return apperr.Invalid("unknown role %q", raw)
		}
		f.Role = &r
	}
	users, err := h.svc.Approvals.ListUsers(c.Request().Context(), actor, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) CreateStaffUser(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req service.CreateStaffInput
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.svc.Approvals.CreateStaffUser(c.Request().Context(), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) ApproveUser(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	user, err := h.svc.Approvals.ApproveUser(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) RejectUser(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req rejectRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.svc.Approvals.RejectUser(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) ToggleUserStatus(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	user, err := h.svc.Approvals.ToggleUserStatus(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) SetUserPermissions(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req permissionsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.svc.Approvals.SetUserPermissions(c.Request().Context(), actor, id, req.Permissions)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
