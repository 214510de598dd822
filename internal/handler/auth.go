package handler

import (
	"net/http"
	"time"

	"github.com/mmeshcher/yarnshop/internal/middleware"
	"github.com/mmeshcher/yarnshop/internal/model"
	"github.com/mmeshcher/yarnshop/internal/service"
	"github.com/mmeshcher/yarnshop/internal/validation"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
}

type loginRequest struct {
	Email    string           `json:"email" validate:"required"`
	Password string           `json:"password" validate:"required"`
	Cart     []model.CartLine `json:"cart"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type sessionInfo struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

type loginResponse struct {
	ID      int64       `json:"id"`
	Email   string      `json:"email"`
	Name    string      `json:"name"`
	Role    model.Role  `json:"role"`
	Session sessionInfo `json:"session"`
}

type meResponse struct {
	ID        int64         `json:"id"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Role      model.Role    `json:"role"`
	Profile   model.Profile `json:"profile"`
	Wishlist  []int64       `json:"wishlist"`
	CartCount int           `json:"cartCount"`
}

type profileRequest struct {
	Name    *string `json:"name"`
	Profile struct {
		Address *string `json:"address"`
		Phone   *string `json:"phone"`
		Avatar  *string `json:"avatar"`
	} `json:"profile"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, "register", err)
		return
	}

	u, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.writeError(w, r, "register", err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{ID: u.ID, Email: u.Email, Name: u.Name})
}

// Login выполняет аутентификацию пользователя и устанавливает cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	res, err := h.service.Login(r.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		GuestCart: req.Cart,
	})
	if err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	h.authMiddleware.SetSessionCookie(w, res.Cookie)
	writeJSON(w, http.StatusOK, loginResponse{
		ID:      res.User.ID,
		Email:   res.User.Email,
		Name:    res.User.Name,
		Role:    res.User.Role,
		Session: sessionInfo{ExpiresAt: res.Session.ExpiresAt},
	})
}

// Logout отзывает текущую сессию и удаляет cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, ok := middleware.SessionCookieFromContext(r.Context()); ok {
		if err := h.service.Logout(r.Context(), cookie); err != nil {
			h.writeError(w, r, "logout", err)
			return
		}
	}

	h.authMiddleware.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Me возвращает профиль текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	u, err := h.service.Me(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "me", err)
		return
	}

	wishlist := u.Wishlist
	if wishlist == nil {
		wishlist = []int64{}
	}
	writeJSON(w, http.StatusOK, meResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Profile:   u.Profile,
		Wishlist:  wishlist,
		CartCount: u.CartCount(),
	})
}

// UpdateProfile обновляет имя, контакты и пароль текущего пользователя.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, "update profile", err)
		return
	}

	_, err := h.service.UpdateProfile(r.Context(), userID, service.ProfileUpdate{
		Name:     req.Name,
		Address:  req.Profile.Address,
		Phone:    req.Profile.Phone,
		Avatar:   req.Profile.Avatar,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, "update profile", err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
