package handler

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/yarnshop/internal/docstore"
	"github.com/mmeshcher/yarnshop/internal/middleware"
	"github.com/mmeshcher/yarnshop/internal/model"
	"github.com/mmeshcher/yarnshop/internal/service"
)

type stubService struct {
	Service

	sessions map[string]model.Session

	registerUser model.User
	registerErr  error

	loginResult service.LoginResult
	loginErr    error
	loggedOut   []string

	products     []model.Product
	lastFilter   service.ProductFilter
	productsErr  error
	cart         []model.CartLine
	lastCartLine model.CartLine

	checkoutResult service.CheckoutResult
	checkoutErr    error

	order    model.Order
	orderErr error

	statusChanged bool
}

func (s *stubService) Session(_ context.Context, cookieValue string) (model.Session, bool) {
	sess, ok := s.sessions[cookieValue]
	return sess, ok
}

func (s *stubService) Register(context.Context, service.RegisterInput) (model.User, error) {
	return s.registerUser, s.registerErr
}

func (s *stubService) Login(context.Context, service.LoginInput) (service.LoginResult, error) {
	return s.loginResult, s.loginErr
}

func (s *stubService) Logout(_ context.Context, cookieValue string) error {
	s.loggedOut = append(s.loggedOut, cookieValue)
	return nil
}

func (s *stubService) ListProducts(_ context.Context, f service.ProductFilter) ([]model.Product, error) {
	s.lastFilter = f
	return s.products, s.productsErr
}

func (s *stubService) ViewCart(context.Context, int64) ([]model.CartLine, error) {
	return s.cart, nil
}

func (s *stubService) AddToCart(_ context.Context, _ int64, line model.CartLine) ([]model.CartLine, error) {
	s.lastCartLine = line
	return []model.CartLine{line}, nil
}

func (s *stubService) Checkout(context.Context, int64, service.CheckoutInput) (service.CheckoutResult, error) {
	return s.checkoutResult, s.checkoutErr
}

func (s *stubService) Track(context.Context, int64, int64) (model.Order, error) {
	return s.order, s.orderErr
}

func (s *stubService) UpdateOrderStatus(context.Context, int64, model.OrderStatus) (model.Order, bool, error) {
	return s.order, s.statusChanged, s.orderErr
}

func newStubService() *stubService {
	return &stubService{
		sessions: map[string]model.Session{
			"user.sig":  {UserID: 42, Role: model.RoleUser},
			"admin.sig": {UserID: 1, Role: model.RoleAdmin},
		},
	}
}

func newTestHandler(t *testing.T, svc *stubService) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware(svc, time.Hour)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "yarnshop_orders_created_total 0\n")
	})

	return NewHandler(svc, logger, auth, metrics)
}

func serve(h *Handler, method, target, cookie string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, target, &buf)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRegister_Created(t *testing.T) {
	svc := newStubService()
	svc.registerUser = model.User{ID: 7, Email: "knit@example.com", Name: "Knitter"}
	h := newTestHandler(t, svc)

	rec := serve(h, http.MethodPost, "/api/auth/register", "", registerRequest{
		Email:    "knit@example.com",
		Password: "secret",
		Name:     "Knitter",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp userResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, userResponse{ID: 7, Email: "knit@example.com", Name: "Knitter"}, resp)
}

func TestRegister_ValidationFields(t *testing.T) {
	h := newTestHandler(t, newStubService())

	rec := serve(h, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "nope"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "invalid_input", resp.Kind)
	assert.Equal(t, "must be a valid email", resp.Fields["email"])
	assert.Equal(t, "is required", resp.Fields["password"])
}

func TestRegister_Conflict(t *testing.T) {
	svc := newStubService()
	svc.registerErr = fmt.Errorf("create user: %w", model.ErrConflict)
	h := newTestHandler(t, svc)

	rec := serve(h, http.MethodPost, "/api/auth/register", "", registerRequest{
		Email:    "knit@example.com",
		Password: "secret",
		Name:     "Knitter",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Kind)
}

func TestLogin_SetsCookie(t *testing.T) {
	expires := time.Date(2026, 5, 7, 10, 0, 0, 0, time.UTC)
	svc := newStubService()
	svc.loginResult = service.LoginResult{
		User:    model.User{ID: 42, Email: "knit@example.com", Name: "Knitter", Role: model.RoleUser},
		Cookie:  "token.sig",
		Session: model.Session{UserID: 42, ExpiresAt: expires},
	}
	h := newTestHandler(t, svc)

	rec := serve(h, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "knit@example.com", Password: "secret"})

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token.sig", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	var resp loginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, model.RoleUser, resp.Role)
	assert.True(t, expires.Equal(resp.Session.ExpiresAt))
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{"rate limited", model.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newStubService()
			svc.loginErr = tt.err
			h := newTestHandler(t, svc)

			rec := serve(h, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "a@b.c", Password: "x"})

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantKind, decodeError(t, rec).Kind)
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	svc := newStubService()
	h := newTestHandler(t, svc)

	rec := serve(h, http.MethodPost, "/api/auth/logout", "user.sig", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"user.sig"}, svc.loggedOut)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestRouter_Capabilities(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		cookie     string
		wantStatus int
	}{
		{"guest browses catalog", http.MethodGet, "/api/products", "", http.StatusOK},
		{"guest cart", http.MethodGet, "/api/cart", "", http.StatusUnauthorized},
		{"forged cookie cart", http.MethodGet, "/api/cart", "forged.sig", http.StatusUnauthorized},
		{"user cart", http.MethodGet, "/api/cart", "user.sig", http.StatusOK},
		{"user admin", http.MethodGet, "/api/admin/settings", "user.sig", http.StatusForbidden},
		{"guest admin", http.MethodGet, "/api/admin/settings", "", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/api/nowhere", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, newStubService())

			rec := serve(h, tt.method, tt.target, tt.cookie, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestListProducts_Filters(t *testing.T) {
	svc := newStubService()
	h := newTestHandler(t, svc)

	rec := serve(h, http.MethodGet, "/api/products?q=merino&color=sage&minPrice=5&maxPrice=10.50", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
	assert.Equal(t, "merino", svc.lastFilter.Query)
	assert.Equal(t, "sage", svc.lastFilter.Variant)
	require.NotNil(t, svc.lastFilter.MinPrice)
	require.NotNil(t, svc.lastFilter.MaxPrice)
	assert.Equal(t, "10.5", svc.lastFilter.MaxPrice.String())
}

func TestListProducts_BadPrice(t *testing.T) {
	h := newTestHandler(t, newStubService())

	rec := serve(h, http.MethodGet, "/api/products?minPrice=cheap", "", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must be a number", decodeError(t, rec).Fields["minPrice"])
}

func TestAddToCart_DefaultQty(t *testing.T) {
	svc := newStubService()
	h := newTestHandler(t, svc)

	rec := serve(h, http.MethodPost, "/api/cart", "user.sig", map[string]any{"productId": 3, "variant": "sage"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.CartLine{ProductID: 3, Variant: "sage", Qty: 1}, svc.lastCartLine)
}

func TestGetCart_EmptyArray(t *testing.T) {
	h := newTestHandler(t, newStubService())

	rec := serve(h, http.MethodGet, "/api/cart", "user.sig", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cart":[]}`, rec.Body.String())
}

func TestCheckout_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantError  string
	}{
		{"empty cart", model.ErrEmptyCart, http.StatusBadRequest, "empty_cart", ""},
		{
			"storage failure is masked",
			fmt.Errorf("commit: %w: disk full", docstore.ErrStorage),
			http.StatusInternalServerError,
			"storage_failure",
			http.StatusText(http.StatusInternalServerError),
		},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal", "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newStubService()
			svc.checkoutErr = tt.err
			h := newTestHandler(t, svc)

			rec := serve(h, http.MethodPost, "/api/orders/checkout", "user.sig", nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantKind, resp.Kind)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp.Error)
			}
		})
	}
}

func TestCheckout_Created(t *testing.T) {
	svc := newStubService()
	svc.checkoutResult = service.CheckoutResult{
		OrderID: 5,
		Payment: model.Payment{Method: "mock", Status: model.PaymentStatusPending},
	}
	h := newTestHandler(t, svc)

	rec := serve(h, http.MethodPost, "/api/orders/checkout", "user.sig", checkoutRequest{Coupon: "WELCOME10"})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp checkoutResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(5), resp.OrderID)
	assert.Equal(t, model.PaymentStatusPending, resp.Payment.Status)
}

func TestTrackOrder_ChronologicalTimeline(t *testing.T) {
	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	svc := newStubService()
	svc.order = model.Order{
		ID:     5,
		UserID: 42,
		Status: model.OrderStatusProcessing,
		Timeline: model.NewTimeline(
			model.TimelineEvent{At: base.Add(time.Minute), Type: model.EventPayment, Status: "paid"},
			model.TimelineEvent{At: base, Type: model.EventStatus, Status: "pending"},
		),
	}
	h := newTestHandler(t, svc)

	rec := serve(h, http.MethodGet, "/api/orders/5", "user.sig", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp orderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Timeline, 2)
	assert.Equal(t, "pending", resp.Timeline[0].Status)
	assert.Equal(t, "paid", resp.Timeline[1].Status)
}

func TestTrackOrder_BadID(t *testing.T) {
	h := newTestHandler(t, newStubService())

	rec := serve(h, http.MethodGet, "/api/orders/abc", "user.sig", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrackOrder_NotFound(t *testing.T) {
	svc := newStubService()
	svc.orderErr = fmt.Errorf("order %w", model.ErrNotFound)
	h := newTestHandler(t, svc)

	rec := serve(h, http.MethodGet, "/api/orders/9", "user.sig", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	svc := newStubService()
	svc.statusChanged = true
	h := newTestHandler(t, svc)

	rec := serve(h, http.MethodPut, "/api/admin/orders/5/status", "admin.sig", statusRequest{Status: model.OrderStatusShipped})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"changed":true}`, rec.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	h := newTestHandler(t, newStubService())

	rec := serve(h, http.MethodGet, "/metrics", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "yarnshop_orders_created_total"))
}

func TestMetricsRoute_CompressedOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yarnshop_orders_created_total",
		Help: "Orders created.",
	})
	reg.MustRegister(counter)
	counter.Inc()

	svc := newStubService()
	h := NewHandler(svc, zap.NewNop(), middleware.NewAuthMiddleware(svc, time.Hour),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"gzip"}, rec.Result().Header.Values("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(body), "yarnshop_orders_created_total 1")
}
