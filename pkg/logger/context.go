package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type contextKey int

const loggerKey contextKey = iota

// EchoKey is the echo context key holding the request-scoped logger.
const EchoKey = "logger"

// WithLogger returns a copy of the context with the logger included
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves the logger from a Go context
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return GetLogger()
}

// FromEcho retrieves the logger from the Echo context
func FromEcho(c echo.Context) *zap.Logger {
	if l, ok := c.Get(EchoKey).(*zap.Logger); ok {
		return l
	}
	if l, ok := c.Request().Context().Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return GetLogger()
}

// SetEcho stores l as the request-scoped logger, both on the echo context and
// on the request context so services called with c.Request().Context() see it.
func SetEcho(c echo.Context, l *zap.Logger) {
	c.Set(EchoKey, l)
	c.SetRequest(c.Request().WithContext(WithLogger(c.Request().Context(), l)))
}

// FromContextOr retrieves the logger from a Go context, or fallback when the
// context carries none.
func FromContextOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return fallback
}
