package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/yarnshop/internal/model"
	"github.com/mmeshcher/yarnshop/internal/service"
	"github.com/mmeshcher/yarnshop/internal/validation"
)

type productRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    string          `json:"category"`
	Variants    []string        `json:"variants"`
}

type couponRequest struct {
	Code  string             `json:"code" validate:"required"`
	Type  model.DiscountType `json:"type" validate:"required,oneof=percent amount"`
	Value decimal.Decimal    `json:"value"`
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

type statusResponse struct {
	OK      bool `json:"ok"`
	Changed bool `json:"changed"`
}

// Analytics возвращает сводку продаж и список товаров на исходе.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Analytics(r.Context())
	if err != nil {
		h.writeError(w, r, "analytics", err)
		return
	}
	if a.LowStock == nil {
		a.LowStock = []service.LowStockItem{}
	}

	writeJSON(w, http.StatusOK, a)
}

// AdminCreateProduct добавляет товар в каталог.
func (h *Handler) AdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, "create product", err)
		return
	}

	p, err := h.service.CreateProduct(r.Context(), model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Variants:    req.Variants,
	})
	if err != nil {
		h.writeError(w, r, "create product", err)
		return
	}

	h.logger.Info("product created", zap.Int64("productID", p.ID))
	writeJSON(w, http.StatusCreated, p)
}

// AdminUpdateProduct частично обновляет товар.
func (h *Handler) AdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "update product", err)
		return
	}

	var patch service.ProductPatch
	if err := validation.DecodeJSONBody(r, &patch); err != nil {
		h.writeError(w, r, "update product", err)
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, "update product", err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// AdminDeleteProduct удаляет товар из каталога.
func (h *Handler) AdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "delete product", err)
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, r, "delete product", err)
		return
	}

	h.logger.Info("product deleted", zap.Int64("productID", id))
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// AdminListCoupons возвращает все купоны.
func (h *Handler) AdminListCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCoupons(r.Context())
	if err != nil {
		h.writeError(w, r, "list coupons", err)
		return
	}

	writeJSON(w, http.StatusOK, items(list))
}

// AdminCreateCoupon создаёт активный купон.
func (h *Handler) AdminCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, "create coupon", err)
		return
	}

	c, err := h.service.CreateCoupon(r.Context(), service.CouponInput{
		Code:  req.Code,
		Type:  req.Type,
		Value: req.Value,
	})
	if err != nil {
		h.writeError(w, r, "create coupon", err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// AdminListUsers возвращает пользователей без учётных данных.
func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, "list users", err)
		return
	}

	writeJSON(w, http.StatusOK, items(list))
}

// AdminListOrders возвращает заказы всех пользователей.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, r, "list all orders", err)
		return
	}

	writeJSON(w, http.StatusOK, items(newOrderList(list)))
}

// AdminUpdateOrderStatus выставляет статус заказа и пишет событие в историю.
func (h *Handler) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "update order status", err)
		return
	}

	var req statusRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, "update order status", err)
		return
	}

	_, changed, err := h.service.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeError(w, r, "update order status", err)
		return
	}

	if changed {
		h.logger.Info("order status updated",
			zap.Int64("orderID", id),
			zap.String("status", string(req.Status)),
		)
	}
	writeJSON(w, http.StatusOK, statusResponse{OK: true, Changed: changed})
}

// AdminGetSettings возвращает настройки магазина.
func (h *Handler) AdminGetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.GetSettings(r.Context())
	if err != nil {
		h.writeError(w, r, "get settings", err)
		return
	}

	writeJSON(w, http.StatusOK, s)
}

// AdminUpdateSettings сливает переданные поля с текущими настройками.
func (h *Handler) AdminUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var upd model.SettingsUpdate
	if err := validation.DecodeJSONBody(r, &upd); err != nil {
		h.writeError(w, r, "update settings", err)
		return
	}

	s, err := h.service.UpdateSettings(r.Context(), upd)
	if err != nil {
		h.writeError(w, r, "update settings", err)
		return
	}

	writeJSON(w, http.StatusOK, s)
}
