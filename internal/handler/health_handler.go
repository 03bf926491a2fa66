package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/config"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/database"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/logger"
)

// HealthCheck handles the health check endpoint. With ?check=db it also
// pings the database.
func (h *Handler) HealthCheck(c echo.Context) error {
	body := echo.Map{
		"status":  "healthy",
		"service": config.ServiceName,
	}

	if c.QueryParam("check") == "db" {
		if h.db == nil {
			body["database"] = "not configured"
		} else if err := database.Ping(h.db); err != nil {
			logger.FromEcho(c).Error("Database health check failed", zap.Error(err))
			body["status"] = "unhealthy"
			body["database"] = "unreachable"
			return c.JSON(http.StatusServiceUnavailable, body)
		} else {
			body["database"] = "ok"
		}
	}

	return c.JSON(http.StatusOK, body)
}
