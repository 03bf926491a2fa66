package logger

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Middleware returns an Echo middleware that logs HTTP requests with the
// request-scoped logger
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Process the request
			err := next(c)

			// Handlers further down may have enriched the logger
			ctxLogger := FromEcho(c)

			fields := []zapcore.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
				zap.String("user_agent", c.Request().UserAgent()),
			}

			switch {
			case err != nil:
				fields = append(fields, zap.Error(err))
				ctxLogger.Error("HTTP request failed", fields...)
			case c.Response().Status >= 500:
				ctxLogger.Error("HTTP request failed", fields...)
			default:
				ctxLogger.Info("HTTP request completed", fields...)
			}

			return err
		}
	}
}
