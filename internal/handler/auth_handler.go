package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/service"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles tenant and customer sign-up. The account starts pending.
func (h *Handler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := bind(c, &req); err != nil {
		return err
	}
	reg, err := h.svc.Auth.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "registration received and pending approval",
		"user":    reg.User,
		"tenant":  reg.Tenant,
	})
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Me(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	user, err := h.svc.Auth.Me(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":        user,
		"permissions": actor.Permissions,
	})
}
