package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/yarnshop/internal/model"
	"github.com/mmeshcher/yarnshop/internal/service"
	"github.com/mmeshcher/yarnshop/internal/validation"
)

type checkoutRequest struct {
	Coupon          string `json:"coupon"`
	Method          string `json:"method"`
	ShippingAddress string `json:"shippingAddress"`
}

type checkoutResponse struct {
	OrderID int64         `json:"orderId"`
	Payment model.Payment `json:"payment"`
	Totals  model.Totals  `json:"totals"`
}

type payResponse struct {
	OK     bool              `json:"ok"`
	Status model.OrderStatus `json:"status"`
}

// orderResponse отдаёт историю заказа в хронологическом порядке.
type orderResponse struct {
	ID              int64                 `json:"id"`
	UserID          int64                 `json:"userId"`
	Items           []model.OrderItem     `json:"items"`
	Totals          model.Totals          `json:"totals"`
	Status          model.OrderStatus     `json:"status"`
	Payment         model.Payment         `json:"payment"`
	Timeline        []model.TimelineEvent `json:"timeline"`
	ShippingAddress string                `json:"shippingAddress"`
	CreatedAt       time.Time             `json:"createdAt"`
}

func newOrderResponse(o model.Order) orderResponse {
	orderItems := o.Items
	if orderItems == nil {
		orderItems = []model.OrderItem{}
	}
	timeline := o.Timeline.Chronological()
	if timeline == nil {
		timeline = []model.TimelineEvent{}
	}
	return orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           orderItems,
		Totals:          o.Totals,
		Status:          o.Status,
		Payment:         o.Payment,
		Timeline:        timeline,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
	}
}

func newOrderList(list []model.Order) []orderResponse {
	out := make([]orderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, newOrderResponse(o))
	}
	return out
}

// Checkout оформляет заказ из корзины текущего пользователя.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, "checkout", err)
		return
	}

	res, err := h.service.Checkout(r.Context(), userID, service.CheckoutInput{
		Coupon:          req.Coupon,
		Method:          req.Method,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		h.writeError(w, r, "checkout", err)
		return
	}

	h.logger.Debug("order created", zap.Int64("orderID", res.OrderID), zap.Int64("userID", userID))
	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID: res.OrderID,
		Payment: res.Payment,
		Totals:  res.Totals,
	})
}

// Pay подтверждает оплату заказа. Повторный вызов не меняет состояние.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	orderID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "pay", err)
		return
	}

	status, err := h.service.Pay(r.Context(), userID, orderID)
	if err != nil {
		h.writeError(w, r, "pay", err)
		return
	}

	writeJSON(w, http.StatusOK, payResponse{OK: true, Status: status})
}

// ListOrders возвращает заказы текущего пользователя.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	list, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "list orders", err)
		return
	}

	writeJSON(w, http.StatusOK, items(newOrderList(list)))
}

// TrackOrder возвращает заказ текущего пользователя вместе с историей.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	orderID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "track order", err)
		return
	}

	o, err := h.service.Track(r.Context(), userID, orderID)
	if err != nil {
		h.writeError(w, r, "track order", err)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(o))
}
