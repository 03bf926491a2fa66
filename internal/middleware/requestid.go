package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/logger"
)

const RequestIDHeader = echo.HeaderXRequestID

// RequestIDMiddleware tags every request with an ID, echoes it back in the
// response and stores a logger carrying it for the rest of the chain.
func RequestIDMiddleware(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
				c.Request().Header.Set(RequestIDHeader, requestID)
			}

			c.Response().Header().Set(RequestIDHeader, requestID)
			logger.SetEcho(c, base.With(zap.String("request_id", requestID)))

			return next(c)
		}
	}
}
