package handler

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/events"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/middleware"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/model"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/service"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/jwtutil"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/prometheus"
)

const defaultHeartbeat = 25 * time.Second

// Handler exposes the marketplace services over HTTP.
type Handler struct {
	svc       *service.Services
	hub       *events.Hub
	db        *gorm.DB
	heartbeat time.Duration
}

func New(svc *service.Services, hub *events.Hub, db *gorm.DB, heartbeat time.Duration) *Handler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &Handler{svc: svc, hub: hub, db: db, heartbeat: heartbeat}
}

// Routes mounts every route on e.
func (h *Handler) Routes(e *echo.Echo, jwtUtil *jwtutil.JWTUtil) {
	e.GET("/health", h.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	auth := e.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)

	api := e.Group("/api")
	api.Use(middleware.JWTAuthMiddleware(jwtUtil))

	api.GET("/me", h.Me)
	api.GET("/events", h.Events)
	api.GET("/tenants", h.ListTenants)
	api.GET("/tenants/:id", h.GetTenant)

	categories := api.Group("/categories")
	categories.GET("", h.ListCategories)
	categories.POST("", h.CreateCategory)
	categories.GET("/:id", h.GetCategory)
	categories.PUT("/:id", h.UpdateCategory)
	categories.DELETE("/:id", h.DeleteCategory)

	products := api.Group("/products")
	products.GET("", h.ListProducts)
	products.POST("", h.CreateProduct)
	products.GET("/:id", h.GetProduct)
	products.PUT("/:id", h.UpdateProduct)
	products.DELETE("/:id", h.DeleteProduct)
	products.GET("/:id/price", h.ResolvePrice)
	products.GET("/:id/default-prices", h.ListDefaultPrices)
	products.POST("/:id/default-prices", h.CreateDefaultPrice)
	products.GET("/:id/private-prices", h.ListPrivatePrices)
	products.POST("/:id/private-prices", h.CreatePrivatePrice)
	products.POST("/:id/private-prices/bulk", h.BulkSetPrivatePrices)

	api.PUT("/default-prices/:id", h.UpdateDefaultPrice)
	api.PUT("/private-prices/:id", h.UpdatePrivatePrice)
	api.DELETE("/private-prices/:id", h.DeactivatePrivatePrice)

	quotes := api.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.POST("", h.CreateQuote)
	quotes.GET("/:id", h.GetQuote)
	quotes.GET("/:id/history", h.QuoteHistory)
	quotes.POST("/:id/respond", h.quoteAction(h.svc.Quotes.Respond))
	quotes.POST("/:id/counter", h.quoteAction(h.svc.Quotes.Counter))
	quotes.POST("/:id/accept", h.quoteAction(h.svc.Quotes.Accept))
	quotes.POST("/:id/reject", h.quoteAction(h.svc.Quotes.Reject))
	quotes.POST("/:id/cancel", h.quoteAction(h.svc.Quotes.Cancel))

	admin := api.Group("/admin")
	tenants := admin.Group("/tenants", middleware.RequireRoles(model.RoleSuperAdmin))
	tenants.GET("", h.AdminListTenants)
	tenants.POST("/:id/approve", h.ApproveTenant)
	tenants.POST("/:id/reject", h.RejectTenant)
	tenants.PUT("/:id/toggle-status", h.ToggleTenantStatus)

	users := admin.Group("/users")
	users.GET("", h.AdminListUsers)
	users.POST("", h.CreateStaffUser)
	users.POST("/:id/approve", h.ApproveUser)
	users.POST("/:id/reject", h.RejectUser)
	users.PUT("/:id/toggle-status", h.ToggleUserStatus)
	users.PUT("/:id/permissions", h.SetUserPermissions)
}

// bind decodes the request into dst and validates it.
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Invalid("malformed request body")
	}
	return c.Validate(dst)
}

func actorOf(c echo.Context) (model.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return model.Actor{}, apperr.Unauthorized("authentication required")
	}
	return actor, nil
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid id %q", c.Param("id"))
	}
	return id, nil
}

func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Invalid("invalid %s %q", name, raw)
	}
	return &id, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Invalid("invalid %s %q", name, raw)
	}
	return n, nil
}

func queryBool(c echo.Context, name string) (bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.Invalid("invalid %s %q", name, raw)
	}
	return b, nil
}
