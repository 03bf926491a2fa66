package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/events"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/middleware"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/seed"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/service"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/testutil"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/config"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/jwtutil"
)

const (
	adminEmail    = "root@marketplace.test"
	adminPassword = "root-password"
	userPassword  = "password123"
)

type testServer struct {
	t          *testing.T
	e          *echo.Echo
	hub        *events.Hub
	adminToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	repo := repository.New(db)
	hub := events.NewHub(8, zap.NewNop())
	jwt := jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "handler-test", ExpirationHours: 1})
	svc := service.New(repo, hub, jwt, zap.NewNop())

	_, err := seed.Run(context.Background(), repo, svc,
		config.SeedConfig{AdminEmail: adminEmail, AdminPassword: adminPassword}, zap.NewNop())
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = NewValidator()
	e.Use(middleware.RequestIDMiddleware(zap.NewNop()))
	New(svc, hub, db, 50*time.Millisecond).Routes(e, jwt)

	s := &testServer{t: t, e: e, hub: hub}
	s.adminToken = s.login(adminEmail, adminPassword)
	return s
}

func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/auth/login", echo.Map{"email": email, "password": password}, "")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var res service.LoginResult
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.Token
}

// onboard registers a tenant, approves it as super admin and logs its
// administrator in.
func (s *testServer) onboard(tenantType, name string) (uuid.UUID, string) {
	s.t.Helper()
	email := strings.ToLower(strings.ReplaceAll(name, " ", "")) + "@example.com"
	rec := s.do(http.MethodPost, "/auth/register", echo.Map{
		"email":       email,
		"password":    userPassword,
		"tenant_type": tenantType,
		"tenant_name": name,
	}, "")
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg service.Registration
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &reg))
	require.NotNil(s.t, reg.Tenant)

	rec = s.do(http.MethodPost, "/api/admin/tenants/"+reg.Tenant.ID.String()+"/approve", nil, s.adminToken)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return reg.Tenant.ID, s.login(email, userPassword)
}

func (s *testServer) createProduct(token, sku string) uuid.UUID {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/products", echo.Map{"sku": sku, "name": "Cement " + sku, "unit": "bag"}, token)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var p struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p.ID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var res ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	assert.Equal(t, res.Code, rec.Header().Get(ErrorCodeHeader))
	return res
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health?check=db", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ok", body["database"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestErrorRendering(t *testing.T) {
	s := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apperr.EUnauthorized, decodeError(t, rec).Code)
	})

	t.Run("validation", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/auth/register", echo.Map{"email": "not-an-email", "password": "short"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		res := decodeError(t, rec)
		assert.Equal(t, apperr.EInvalid, res.Code)
		assert.Contains(t, res.Message, "email")
		assert.Contains(t, res.Message, "password")
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/products/not-a-uuid", nil, s.adminToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/nowhere", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, apperr.ENotFound, decodeError(t, rec).Code)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		body := echo.Map{"email": "dup@example.com", "password": userPassword}
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/auth/register", body, "").Code)
		rec := s.do(http.MethodPost, "/auth/register", echo.Map{"email": "DUP@example.com", "password": userPassword}, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, apperr.EConflict, decodeError(t, rec).Code)
	})
}

func TestPendingTenantCannotLogIn(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/register", echo.Map{
		"email": "pending@example.com", "password": userPassword,
		"tenant_type": "supplier", "tenant_name": "Pending Supplies",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", echo.Map{"email": "pending@example.com", "password": userPassword}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperr.EForbidden, decodeError(t, rec).Code)
}

func TestAdminRoutesRequireSuperAdmin(t *testing.T) {
	s := newTestServer(t)
	_, supplierToken := s.onboard("supplier", "Acme Supplies")

	rec := s.do(http.MethodGet, "/api/admin/tenants", nil, supplierToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/admin/tenants?type=supplier&status=active", nil, s.adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var tenants []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tenants))
	require.Len(t, tenants, 1)
	assert.Equal(t, "Acme Supplies", tenants[0]["name"])

	for _, query := range []string{"type=vendor", "status=approved"} {
		rec = s.do(http.MethodGet, "/api/admin/tenants?"+query, nil, s.adminToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
	rec = s.do(http.MethodGet, "/api/admin/users?role=owner", nil, s.adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPriceResolutionOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, supplierToken := s.onboard("supplier", "Acme Supplies")
	companyID, companyToken := s.onboard("company", "Build Co")
	productID := s.createProduct(supplierToken, "CEM-1")
	pricePath := "/api/products/" + productID.String() + "/price"

	rec := s.do(http.MethodGet, pricePath, nil, companyToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var onRequest map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &onRequest))
	assert.Equal(t, true, onRequest["price_on_request"])

	rec = s.do(http.MethodPost, "/api/products/"+productID.String()+"/default-prices",
		echo.Map{"price": "100.00", "currency": "USD"}, supplierToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resolve := func() service.Resolution {
		t.Helper()
		rec := s.do(http.MethodGet, pricePath, nil, companyToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res service.Resolution
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		return res
	}

	res := resolve()
	assert.True(t, decimal.RequireFromString("100").Equal(res.Price))
	assert.Equal(t, "default", string(res.Type))

	rec = s.do(http.MethodPost, "/api/products/"+productID.String()+"/private-prices",
		echo.Map{"company_id": companyID, "discount_percentage": "15"}, supplierToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	res = resolve()
	assert.True(t, decimal.RequireFromString("85").Equal(res.Price))
	assert.Equal(t, "private", string(res.Type))

	// a company always sees its own view
	rec = s.do(http.MethodGet, pricePath+"?company_id="+uuid.NewString(), nil, companyToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, decimal.RequireFromString("85").Equal(res.Price))

	rec = s.do(http.MethodGet, pricePath+"?company_id="+companyID.String(), nil, supplierToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "private", string(res.Type))

	_, rivalToken := s.onboard("supplier", "Rival Supplies")
	rec = s.do(http.MethodGet, pricePath+"?company_id="+companyID.String(), nil, rivalToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBulkPrivatePricesRejectsDuplicates(t *testing.T) {
	s := newTestServer(t)
	_, supplierToken := s.onboard("supplier", "Acme Supplies")
	companyID, _ := s.onboard("company", "Build Co")
	productID := s.createProduct(supplierToken, "CEM-1")
	path := "/api/products/" + productID.String() + "/private-prices/bulk"

	rec := s.do(http.MethodPost, path, echo.Map{"prices": []echo.Map{
		{"company_id": companyID, "price": "90"},
		{"company_id": companyID, "price": "80"},
	}}, supplierToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, path, echo.Map{"prices": []echo.Map{
		{"company_id": companyID, "price": "90"},
	}}, supplierToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/products/"+productID.String()+"/private-prices", nil, supplierToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var prices []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prices))
	assert.Len(t, prices, 1)
}

func TestQuoteNegotiationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, supplierToken := s.onboard("supplier", "Acme Supplies")
	_, companyToken := s.onboard("company", "Build Co")
	productID := s.createProduct(supplierToken, "CEM-1")

	rec := s.do(http.MethodPost, "/api/quotes", echo.Map{
		"product_id": productID, "quantity": "50", "unit": "bag", "requested_price": "90",
	}, companyToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var quote struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, "pending", quote.Status)
	base := "/api/quotes/" + quote.ID.String()

	rec = s.do(http.MethodPost, base+"/respond", echo.Map{"price": "95", "message": "best we can do"}, supplierToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, base+"/accept", nil, companyToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, "accepted", quote.Status)

	rec = s.do(http.MethodPost, base+"/cancel", nil, companyToken)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperr.EInvalidStateTransition, decodeError(t, rec).Code)

	rec = s.do(http.MethodGet, base+"/history", nil, supplierToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 3)

	rec = s.do(http.MethodGet, "/api/quotes?status=accepted", nil, companyToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var quotes []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quotes))
	assert.Len(t, quotes, 1)

	rec = s.do(http.MethodGet, "/api/quotes?status=acepted", nil, companyToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.EInvalid, decodeError(t, rec).Code)
}

func TestEventStream(t *testing.T) {
	s := newTestServer(t)
	_, supplierToken := s.onboard("supplier", "Acme Supplies")
	companyID, companyToken := s.onboard("company", "Build Co")
	productID := s.createProduct(supplierToken, "CEM-1")

	srv := httptest.NewServer(s.e)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/api/events?"+middleware.TokenQueryParam+"="+companyToken, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get(echo.HeaderContentType))

	require.Eventually(t, func() bool {
		return s.hub.Subscribers(events.TenantScope(companyID)) == 1
	}, time.Second, 10*time.Millisecond)

	rec := s.do(http.MethodPost, "/api/products/"+productID.String()+"/private-prices",
		echo.Map{"company_id": companyID, "price": "70"}, supplierToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	var sawEvent, sawData bool
	timeout := time.After(2 * time.Second)
	for !sawData {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed early")
			if line == "event: "+events.TypePriceUpdated {
				sawEvent = true
			}
			if sawEvent && strings.HasPrefix(line, "data: ") {
				assert.Contains(t, line, productID.String())
				sawData = true
			}
		case <-timeout:
			t.Fatal("no price:updated event received")
		}
	}

	cancel()
	require.Eventually(t, func() bool {
		return s.hub.Subscribers(events.TenantScope(companyID)) == 0
	}, time.Second, 10*time.Millisecond)
}
