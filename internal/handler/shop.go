package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/yarnshop/internal/model"
	"github.com/mmeshcher/yarnshop/internal/service"
	"github.com/mmeshcher/yarnshop/internal/validation"
)

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

type cartResponse struct {
	Cart []model.CartLine `json:"cart"`
}

type wishlistResponse struct {
	Wishlist []int64 `json:"wishlist"`
}

type addToCartRequest struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	Variant   string `json:"variant"`
	Qty       *int   `json:"qty"`
}

type replaceCartRequest struct {
	Cart []model.CartLine `json:"cart"`
}

type wishlistRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
}

func items[T any](list []T) itemsResponse[T] {
	if list == nil {
		list = []T{}
	}
	return itemsResponse[T]{Items: list}
}

func cartBody(cart []model.CartLine) cartResponse {
	if cart == nil {
		cart = []model.CartLine{}
	}
	return cartResponse{Cart: cart}
}

func parsePriceParam(q url.Values, name string) (*decimal.Decimal, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &validation.Error{
			Message: "invalid " + name,
			Fields:  map[string]string{name: "must be a number"},
		}
	}
	return &d, nil
}

func productFilter(q url.Values) (service.ProductFilter, error) {
	f := service.ProductFilter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Variant:  q.Get("variant"),
	}
	if f.Variant == "" {
		f.Variant = q.Get("color")
	}

	var err error
	if f.MinPrice, err = parsePriceParam(q, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parsePriceParam(q, "maxPrice"); err != nil {
		return f, err
	}
	return f, nil
}

// ListProducts возвращает активные товары каталога с учётом фильтров.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f, err := productFilter(r.URL.Query())
	if err != nil {
		h.writeError(w, r, "list products", err)
		return
	}

	list, err := h.service.ListProducts(r.Context(), f)
	if err != nil {
		h.writeError(w, r, "list products", err)
		return
	}

	writeJSON(w, http.StatusOK, items(list))
}

// GetProduct возвращает товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "get product", err)
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get product", err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// GetCart возвращает корзину текущего пользователя.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	cart, err := h.service.ViewCart(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "view cart", err)
		return
	}

	writeJSON(w, http.StatusOK, cartBody(cart))
}

// AddToCart добавляет позицию в корзину; qty по умолчанию равно 1.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req addToCartRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, "add to cart", err)
		return
	}

	qty := 1
	if req.Qty != nil {
		qty = *req.Qty
	}

	cart, err := h.service.AddToCart(r.Context(), userID, model.CartLine{
		ProductID: req.ProductID,
		Variant:   req.Variant,
		Qty:       qty,
	})
	if err != nil {
		h.writeError(w, r, "add to cart", err)
		return
	}

	writeJSON(w, http.StatusOK, cartBody(cart))
}

// ReplaceCart полностью заменяет корзину текущего пользователя.
func (h *Handler) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req replaceCartRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, "replace cart", err)
		return
	}

	cart, err := h.service.ReplaceCart(r.Context(), userID, req.Cart)
	if err != nil {
		h.writeError(w, r, "replace cart", err)
		return
	}

	writeJSON(w, http.StatusOK, cartBody(cart))
}

// AddToWishlist добавляет товар в избранное.
func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	h.changeWishlist(w, r, "add to wishlist", h.service.AddToWishlist)
}

// RemoveFromWishlist убирает товар из избранного.
func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	h.changeWishlist(w, r, "remove from wishlist", h.service.RemoveFromWishlist)
}

func (h *Handler) changeWishlist(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	apply func(ctx context.Context, userID, productID int64) ([]int64, error),
) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req wishlistRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, op, err)
		return
	}

	list, err := apply(r.Context(), userID, req.ProductID)
	if err != nil {
		h.writeError(w, r, op, err)
		return
	}
	if list == nil {
		list = []int64{}
	}

	writeJSON(w, http.StatusOK, wishlistResponse{Wishlist: list})
}
