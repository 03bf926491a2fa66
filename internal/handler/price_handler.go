package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/service"
)

type bulkPrivatePricesRequest struct {
	Prices []service.PrivatePriceInput `json:"prices" validate:"required,min=1,dive"`
}

// ResolvePrice returns the price the caller sees for a product. Sellers and
// super admins may pass ?company_id= to see a company's view. A product with
// no applicable price answers price_on_request rather than an error.
func (h *Handler) ResolvePrice(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	companyID, err := queryUUID(c, "company_id")
	if err != nil {
		return err
	}

	res, err := h.svc.Pricing.ResolveFor(c.Request().Context(), actor, id, companyID)
	if errors.Is(err, apperr.ErrNoPriceAvailable) {
		return c.JSON(http.StatusOK, echo.Map{
			"product_id":       id,
			"price_on_request": true,
		})
	} else if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ListDefaultPrices(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	prices, err := h.svc.Pricing.ListDefaultPrices(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prices)
}

func (h *Handler) CreateDefaultPrice(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req service.DefaultPriceInput
	if err := bind(c, &req); err != nil {
		return err
	}
	price, err := h.svc.Pricing.CreateDefaultPrice(c.Request().Context(), actor, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, price)
}

func (h *Handler) UpdateDefaultPrice(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req service.UpdateDefaultPriceInput
	if err := bind(c, &req); err != nil {
		return err
	}
	price, err := h.svc.Pricing.UpdateDefaultPrice(c.Request().Context(), actor, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, price)
}

func (h *Handler) ListPrivatePrices(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	prices, err := h.svc.Pricing.ListPrivatePrices(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prices)
}

func (h *Handler) CreatePrivatePrice(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req service.PrivatePriceInput
	if err := bind(c, &req); err != nil {
		return err
	}
	price, err := h.svc.Pricing.CreatePrivatePrice(c.Request().Context(), actor, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, price)
}

func (h *Handler) BulkSetPrivatePrices(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req bulkPrivatePricesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	prices, err := h.svc.Pricing.BulkSetPrivatePrices(c.Request().Context(), actor, id, req.Prices)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prices)
}

func (h *Handler) UpdatePrivatePrice(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req service.UpdatePrivatePriceInput
	if err := bind(c, &req); err != nil {
		return err
	}
	price, err := h.svc.Pricing.UpdatePrivatePrice(c.Request().Context(), actor, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, price)
}

func (h *Handler) DeactivatePrivatePrice(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Pricing.DeactivatePrivatePrice(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
