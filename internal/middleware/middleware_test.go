package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/config"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/jwtutil"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/logger"
)

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequestIDMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mw := RequestIDMiddleware(zap.New(core))

	t.Run("generated", func(t *testing.T) {
		c, rec := newContext("/")
		err := mw(func(c echo.Context) error {
			logger.FromContext(c.Request().Context()).Info("inside")
			return nil
		})(c)
		require.NoError(t, err)

		id := rec.Header().Get(RequestIDHeader)
		_, parseErr := uuid.Parse(id)
		assert.NoError(t, parseErr)

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, id, entries[0].ContextMap()["request_id"])
	})

	t.Run("propagated", func(t *testing.T) {
		c, rec := newContext("/")
		c.Request().Header.Set(RequestIDHeader, "abc-123")
		require.NoError(t, mw(func(echo.Context) error { return nil })(c))
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})
}

func TestJWTAuthMiddleware(t *testing.T) {
	jwt := jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "middleware-test", ExpirationHours: 1})
	tenantID := uuid.New()
	token, err := jwt.GenerateToken(jwtutil.UserClaims{
		Email:       "buyer@example.com",
		UserID:      uuid.New(),
		Role:        string(model.RoleCompanyStaff),
		TenantID:    &tenantID,
		TenantType:  string(model.TenantCompany),
		Permissions: map[string]bool{"view_prices": true},
	})
	require.NoError(t, err)

	inconsistent, err := jwt.GenerateToken(jwtutil.UserClaims{
		UserID: uuid.New(),
		Role:   string(model.RoleSupplierAdmin),
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		header string
		code   string
	}{
		{name: "bearer header", target: "/", header: "Bearer " + token},
		{name: "query token", target: "/?" + TokenQueryParam + "=" + token},
		{name: "missing", target: "/", code: apperr.EUnauthorized},
		{name: "wrong scheme", target: "/", header: "Basic " + token, code: apperr.EUnauthorized},
		{name: "garbage", target: "/", header: "Bearer not.a.token", code: apperr.EUnauthorized},
		{name: "role without tenant", target: "/", header: "Bearer " + inconsistent, code: apperr.EUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(tt.target)
			if tt.header != "" {
				c.Request().Header.Set(echo.HeaderAuthorization, tt.header)
			}

			var got model.Actor
			err := JWTAuthMiddleware(jwt)(func(c echo.Context) error {
				actor, ok := ActorFrom(c)
				require.True(t, ok)
				got = actor
				return nil
			})(c)

			if tt.code != "" {
				assert.Equal(t, tt.code, apperr.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.RoleCompanyStaff, got.Role)
			assert.Equal(t, &tenantID, got.TenantID)
			assert.Equal(t, model.TenantCompany, got.TenantType)
			assert.True(t, got.Permissions["view_prices"])
		})
	}
}

func TestRequireRoles(t *testing.T) {
	ok := func(echo.Context) error { return nil }
	mw := RequireRoles(model.RoleSuperAdmin)

	c, _ := newContext("/")
	assert.Equal(t, apperr.EUnauthorized, apperr.ErrorCode(mw(ok)(c)))

	c, _ = newContext("/")
	c.Set(actorKey, model.Actor{UserID: uuid.New(), Role: model.RoleCustomer})
	assert.Equal(t, apperr.EForbidden, apperr.ErrorCode(mw(ok)(c)))

	c, _ = newContext("/")
	c.Set(actorKey, model.Actor{UserID: uuid.New(), Role: model.RoleSuperAdmin})
	assert.NoError(t, mw(ok)(c))
}
