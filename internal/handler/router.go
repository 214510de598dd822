package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/yarnshop/internal/middleware"
	"github.com/mmeshcher/yarnshop/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))

	// promhttp сжимает ответ сам.
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)
		r.Use(h.authMiddleware.Middleware)
		h.apiRoutes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound), Kind: "not_found"})
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
			Error: http.StatusText(http.StatusMethodNotAllowed),
			Kind:  "method_not_allowed",
		})
	})

	return r
}

func (h *Handler) apiRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireCapability(model.CapShop))

			r.Get("/me", h.Me)
			r.Put("/profile", h.UpdateProfile)
		})
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)
	})

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.RequireCapability(model.CapShop))

		r.Get("/api/cart", h.GetCart)
		r.Post("/api/cart", h.AddToCart)
		r.Put("/api/cart", h.ReplaceCart)

		r.Post("/api/wishlist", h.AddToWishlist)
		r.Delete("/api/wishlist", h.RemoveFromWishlist)

		r.Route("/api/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/checkout", h.Checkout)
			r.Get("/{id}", h.TrackOrder)
			r.Post("/{id}/pay", h.Pay)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(custommiddleware.RequireCapability(model.CapManageStore))

		r.Get("/analytics", h.Analytics)

		r.Post("/products", h.AdminCreateProduct)
		r.Put("/products/{id}", h.AdminUpdateProduct)
		r.Delete("/products/{id}", h.AdminDeleteProduct)

		r.Get("/coupons", h.AdminListCoupons)
		r.Post("/coupons", h.AdminCreateCoupon)

		r.Get("/users", h.AdminListUsers)

		r.Get("/orders", h.AdminListOrders)
		r.Put("/orders/{id}/status", h.AdminUpdateOrderStatus)

		r.Get("/settings", h.AdminGetSettings)
		r.Put("/settings", h.AdminUpdateSettings)
	})
}
