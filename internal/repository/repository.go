// Package repository содержит доступ к коллекциям магазина поверх docstore.
// Каждая операция изменения выполняется одной транзакцией над нужными коллекциями.
package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mmeshcher/yarnshop/internal/docstore"
	"github.com/mmeshcher/yarnshop/internal/model"
)

var (
	// ErrUserExists возвращается при регистрации уже занятого адреса почты.
	ErrUserExists = fmt.Errorf("user already exists: %w", model.ErrConflict)
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = fmt.Errorf("user %w", model.ErrNotFound)
	// ErrOrderNotFound возвращается, если заказ не найден или принадлежит другому пользователю.
	ErrOrderNotFound = fmt.Errorf("order %w", model.ErrNotFound)
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = fmt.Errorf("product %w", model.ErrNotFound)
	// ErrCouponExists возвращается при создании купона с занятым кодом.
	ErrCouponExists = fmt.Errorf("coupon already exists: %w", model.ErrConflict)
)

var (
	users    = docstore.NewCollection("users", func() []model.User { return []model.User{} })
	sessions = docstore.NewCollection("sessions", func() []model.Session { return []model.Session{} })
	products = docstore.NewCollection("products", func() []model.Product { return []model.Product{} })
	coupons  = docstore.NewCollection("coupons", func() []model.Coupon { return []model.Coupon{} })
	orders   = docstore.NewCollection("orders", func() []model.Order { return []model.Order{} })
	settings = docstore.NewCollection("settings", model.DefaultSettings)

	// catalog отличает отсутствующий документ товаров (nil) от пустого списка.
	catalog = docstore.NewCollection("products", func() *[]model.Product { return nil })
)

// DocumentRepository предоставляет доступ к данным магазина в docstore.
type DocumentRepository struct {
	db *docstore.DB
}

// NewDocumentRepository создаёт репозиторий поверх db.
func NewDocumentRepository(db *docstore.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Close закрывает хранилище.
func (r *DocumentRepository) Close() error {
	return r.db.Close()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser сохраняет нового пользователя, назначая ему идентификатор.
func (r *DocumentRepository) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	u.Email = normalizeEmail(u.Email)

	err := r.db.Update(ctx, func(tx *docstore.Txn) error {
		list, err := users.Load(tx)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(list, func(x model.User) bool { return normalizeEmail(x.Email) == u.Email }) {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		u.ID = docstore.NextID(list)
		return users.Store(tx, append(list, u))
	}, users.Name())
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// EnsureAdmin создаёт администратора u, если в системе нет ни одного администратора.
func (r *DocumentRepository) EnsureAdmin(ctx context.Context, u model.User) (bool, error) {
	created := false
	err := r.db.Update(ctx, func(tx *docstore.Txn) error {
		list, err := users.Load(tx)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(list, func(x model.User) bool { return x.Role == model.RoleAdmin }) {
			return nil
		}
		u.Email = normalizeEmail(u.Email)
		u.Role = model.RoleAdmin
		u.ID = docstore.NextID(list)
		created = true
		return users.Store(tx, append(list, u))
	}, users.Name())
	return created, err
}

// GetUserByEmail возвращает пользователя по адресу почты без учёта регистра.
func (r *DocumentRepository) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	email = normalizeEmail(email)
	for _, u := range users.Read(ctx, r.db) {
		if normalizeEmail(u.Email) == email {
			return u, nil
		}
	}
	return model.User{}, ErrUserNotFound
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *DocumentRepository) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	for _, u := range users.Read(ctx, r.db) {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, ErrUserNotFound
}

// ListUsers возвращает всех пользователей.
func (r *DocumentRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	return users.Read(ctx, r.db), nil
}

// UpdateUser применяет fn к пользователю id и сохраняет результат.
// Если fn возвращает ошибку, изменения не сохраняются.
func (r *DocumentRepository) UpdateUser(ctx context.Context, id int64, fn func(u *model.User) error) (model.User, error) {
	var updated model.User
	err := r.db.Update(ctx, func(tx *docstore.Txn) error {
		list, err := users.Load(tx)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(list, func(u model.User) bool { return u.ID == id })
		if idx == -1 {
			return ErrUserNotFound
		}
		if err := fn(&list[idx]); err != nil {
			return err
		}
		updated = list[idx]
		return users.Store(tx, list)
	}, users.Name())
	if err != nil {
		return model.User{}, err
	}
	return updated, nil
}

// CreateSession сохраняет сессию. Истёкшие записи удаляются в той же записи.
func (r *DocumentRepository) CreateSession(ctx context.Context, s model.Session, now time.Time) error {
	return r.db.Update(ctx, func(tx *docstore.Txn) error {
		list, err := sessions.Load(tx)
		if err != nil {
			return err
		}
		list = slices.DeleteFunc(list, func(x model.Session) bool { return !x.Active(now) })
		return sessions.Store(tx, append(list, s))
	}, sessions.Name())
}

// FindSession возвращает сессию по токену.
func (r *DocumentRepository) FindSession(ctx context.Context, token string) (model.Session, bool) {
	for _, s := range sessions.Read(ctx, r.db) {
		if s.Token == token {
			return s, true
		}
	}
	return model.Session{}, false
}

// DeleteSession удаляет сессию по токену. Отсутствие сессии не считается ошибкой.
func (r *DocumentRepository) DeleteSession(ctx context.Context, token string) error {
	return r.db.Update(ctx, func(tx *docstore.Txn) error {
		list, err := sessions.Load(tx)
		if err != nil {
			return err
		}
		next := slices.DeleteFunc(list, func(x model.Session) bool { return x.Token == token })
		return sessions.Store(tx, next)
	}, sessions.Name())
}
