package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/service"
)

type quoteActionFunc func(ctx context.Context, actor model.Actor, id uuid.UUID, in service.QuoteActionInput) (*model.QuoteRequest, error)

func (h *Handler) CreateQuote(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req service.CreateQuoteInput
	if err := bind(c, &req); err != nil {
		return err
	}
	quote, err := h.svc.Quotes.Create(c.Request().Context(), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, quote)
}

func (h *Handler) ListQuotes(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var f service.QuoteListFilter
	if f.ProductID, err = queryUUID(c, "product_id"); err != nil {
		return err
	}
	if raw := c.QueryParam("status"); raw != "" {
		s := model.QuoteStatus(raw)
		if !s.Valid() {
			return apperr.Invalid("unknown quote status %q", raw)
		}
		f.Status = &s
	}
	quotes, err := h.svc.Quotes.List(c.Request().Context(), actor, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, quotes)
}

func (h *Handler) GetQuote(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	quote, err := h.svc.Quotes.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, quote)
}

func (h *Handler) QuoteHistory(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	history, err := h.svc.Quotes.History(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, history)
}

// quoteAction adapts one negotiation step to a POST /quotes/:id/<action>
// route. The body is optional.
func (h *Handler) quoteAction(action quoteActionFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		id, err := pathID(c)
		if err != nil {
			return err
		}
		var req service.QuoteActionInput
		if err := bind(c, &req); err != nil {
			return err
		}
		quote, err := action(c.Request().Context(), actor, id, req)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, quote)
	}
}
