package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/jwtutil"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/logger"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/prometheus"
)

const actorKey = "actor"

// TokenQueryParam carries the token for clients that cannot set headers,
// such as browser EventSource connections.
const TokenQueryParam = "access_token"

// JWTAuthMiddleware validates the bearer token and stores the caller as a
// model.Actor in the context.
func JWTAuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			tokenString, err := bearerToken(c)
			if err != nil {
				log.Warn("Rejected request without usable token", zap.String("reason", err.Error()))
				prometheus.RecordAuthError("missing_token")
				return err
			}

			claims, err := jwtUtil.ValidateToken(tokenString)
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return apperr.Unauthorized("invalid or expired token")
			}

			actor, err := actorFromClaims(claims)
			if err != nil {
				log.Warn("Token carries an unusable identity", zap.Error(err))
				prometheus.RecordAuthError("invalid_claims")
				return err
			}
			c.Set(actorKey, actor)

			fields := []zap.Field{
				zap.String("user_id", actor.UserID.String()),
				zap.String("role", string(actor.Role)),
			}
			if actor.TenantID != nil {
				fields = append(fields, zap.String("tenant_id", actor.TenantID.String()))
			}
			logger.SetEcho(c, log.With(fields...))

			return next(c)
		}
	}
}

// ActorFrom returns the authenticated caller stored by JWTAuthMiddleware.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	actor, ok := c.Get(actorKey).(model.Actor)
	return actor, ok
}

// RequireRoles admits only actors holding one of roles.
func RequireRoles(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return apperr.Unauthorized("authentication required")
			}
			for _, r := range roles {
				if actor.Role == r {
					return next(c)
				}
			}
			logger.FromEcho(c).Warn("Role not permitted", zap.String("role", string(actor.Role)))
			return apperr.Forbidden("insufficient role")
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		if token := c.QueryParam(TokenQueryParam); token != "" {
			return token, nil
		}
		return "", apperr.Unauthorized("missing authorization token")
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", apperr.Unauthorized("invalid authorization format, expected Bearer token")
	}
	return parts[1], nil
}

func actorFromClaims(claims *jwtutil.UserClaims) (model.Actor, error) {
	role := model.Role(claims.Role)
	if !role.Valid() {
		return model.Actor{}, apperr.Unauthorized("token carries unknown role")
	}
	actor := model.Actor{
		UserID:      claims.UserID,
		Email:       claims.Email,
		Role:        role,
		TenantID:    claims.TenantID,
		TenantType:  model.TenantType(claims.TenantType),
		Permissions: claims.Permissions,
	}
	var tenantType *model.TenantType
	if actor.TenantID != nil {
		tenantType = &actor.TenantType
	}
	if err := model.RoleMatchesTenant(role, tenantType); err != nil {
		return model.Actor{}, apperr.Unauthorized("token carries an inconsistent tenant")
	}
	return actor, nil
}
