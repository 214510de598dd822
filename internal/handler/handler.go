// Package handler содержит HTTP-обработчики API магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/yarnshop/internal/docstore"
	"github.com/mmeshcher/yarnshop/internal/middleware"
	"github.com/mmeshcher/yarnshop/internal/model"
	"github.com/mmeshcher/yarnshop/internal/service"
	"github.com/mmeshcher/yarnshop/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (model.User, error)
	Login(ctx context.Context, in service.LoginInput) (service.LoginResult, error)
	Logout(ctx context.Context, cookieValue string) error
	Session(ctx context.Context, cookieValue string) (model.Session, bool)
	Me(ctx context.Context, userID int64) (model.User, error)
	UpdateProfile(ctx context.Context, userID int64, upd service.ProfileUpdate) (model.User, error)

	ListProducts(ctx context.Context, f service.ProductFilter) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)

	ViewCart(ctx context.Context, userID int64) ([]model.CartLine, error)
	AddToCart(ctx context.Context, userID int64, line model.CartLine) ([]model.CartLine, error)
	ReplaceCart(ctx context.Context, userID int64, cart []model.CartLine) ([]model.CartLine, error)
	AddToWishlist(ctx context.Context, userID, productID int64) ([]int64, error)
	RemoveFromWishlist(ctx context.Context, userID, productID int64) ([]int64, error)

	Checkout(ctx context.Context, userID int64, in service.CheckoutInput) (service.CheckoutResult, error)
	Pay(ctx context.Context, userID, orderID int64) (model.OrderStatus, error)
	ListMine(ctx context.Context, userID int64) ([]model.Order, error)
	Track(ctx context.Context, userID, orderID int64) (model.Order, error)

	Analytics(ctx context.Context) (service.Analytics, error)
	ListUsers(ctx context.Context) ([]service.UserSummary, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) (model.Order, bool, error)
	CreateProduct(ctx context.Context, p model.Product) (model.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch service.ProductPatch) (model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListCoupons(ctx context.Context) ([]model.Coupon, error)
	CreateCoupon(ctx context.Context, in service.CouponInput) (model.Coupon, error)
	GetSettings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, upd model.SettingsUpdate) (model.Settings, error)
}

// Handler реализует HTTP-обработчики API магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	metrics        http.Handler
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// metrics обслуживает /metrics; при nil маршрут не регистрируется.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, metrics http.Handler) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		metrics:        metrics,
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// classify сопоставляет ошибку со статусом ответа и видом ошибки.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrEmptyCart):
		return http.StatusBadRequest, "empty_cart"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, docstore.ErrStorage):
		return http.StatusInternalServerError, "storage_failure"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, kind := classify(err)

	resp := errorResponse{Error: err.Error(), Kind: kind}
	var verr *validation.Error
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" error",
			zap.Error(err),
			zap.String("requestID", middleware.RequestIDFromContext(r.Context())),
		)
		resp.Error = http.StatusText(status)
	}

	writeJSON(w, status, resp)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required", Kind: "unauthorized"})
		return 0, false
	}
	return userID, true
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &validation.Error{Message: "invalid " + name}
	}
	return id, nil
}
