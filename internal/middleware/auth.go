// Package middleware содержит HTTP middleware магазина.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mmeshcher/yarnshop/internal/model"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	roleKey   contextKey = "role"
	cookieKey contextKey = "sessionCookie"
)

// SessionCookieName задаёт имя cookie с идентификатором сессии.
const SessionCookieName = "sid"

// SessionReader проверяет значение cookie сессии.
type SessionReader interface {
	Session(ctx context.Context, cookieValue string) (model.Session, bool)
}

// AuthMiddleware определяет субъекта запроса по подписанному cookie сессии.
type AuthMiddleware struct {
	sessions SessionReader
	ttl      time.Duration
}

// NewAuthMiddleware создаёт AuthMiddleware. ttl задаёт Max-Age выдаваемого cookie.
func NewAuthMiddleware(sessions SessionReader, ttl time.Duration) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		ttl:      ttl,
	}
}

// Middleware добавляет в контекст пользователя и его роль, если cookie сессии
// действительно. Запрос без действующей сессии выполняется от имени гостя.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), roleKey, model.RoleGuest)

		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			ctx = context.WithValue(ctx, cookieKey, cookie.Value)
			if s, ok := a.sessions.Session(r.Context(), cookie.Value); ok {
				ctx = context.WithValue(ctx, userIDKey, s.UserID)
				ctx = context.WithValue(ctx, roleKey, model.ParseRole(string(s.Role)))
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCapability пропускает запрос, только если роли субъекта разрешено действие c.
// Гость получает 401, пользователь без нужной роли получает 403.
func RequireCapability(c model.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role.Can(c) {
				next.ServeHTTP(w, r)
				return
			}
			if role == model.RoleGuest {
				writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			writeError(w, http.StatusForbidden, "forbidden", "insufficient role")
		})
	}
}

// SetSessionCookie устанавливает cookie сессии.
func (a *AuthMiddleware) SetSessionCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(a.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie удаляет cookie сессии на клиенте.
func (a *AuthMiddleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetUserIDFromContext извлекает идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// RoleFromContext возвращает роль субъекта запроса; по умолчанию гость.
func RoleFromContext(ctx context.Context) model.Role {
	if role, ok := ctx.Value(roleKey).(model.Role); ok {
		return role
	}
	return model.RoleGuest
}

// SessionCookieFromContext возвращает исходное значение cookie сессии.
func SessionCookieFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(cookieKey).(string)
	return v, ok
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": kind})
}
