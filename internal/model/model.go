// Package model содержит доменные сущности магазина пряжи.
package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Profile содержит контактные данные пользователя.
type Profile struct {
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Avatar  string `json:"avatar"`
}

// User представляет зарегистрированного покупателя или администратора.
type User struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Password  string     `json:"password"`
	Role      Role       `json:"role"`
	Profile   Profile    `json:"profile"`
	Wishlist  []int64    `json:"wishlist"`
	Cart      []CartLine `json:"cart"`
	CreatedAt time.Time  `json:"createdAt"`
}

// RecordID возвращает идентификатор записи.
func (u User) RecordID() int64 { return u.ID }

// CartCount возвращает суммарное количество единиц товара в корзине.
func (u User) CartCount() int {
	n := 0
	for _, l := range u.Cart {
		n += l.Qty
	}
	return n
}

// Session описывает серверную запись сессии.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"userId"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Active сообщает, действует ли сессия в момент now.
func (s Session) Active(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// Product описывает товар каталога.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Variants    []string        `json:"variants"`
	Active      bool            `json:"active"`
}

// RecordID возвращает идентификатор записи.
func (p Product) RecordID() int64 { return p.ID }

// HasVariant сообщает, доступен ли у товара указанный вариант исполнения.
func (p Product) HasVariant(v string) bool {
	return slices.Contains(p.Variants, v)
}

// Decrement уменьшает остаток на qty, не опуская его ниже нуля.
func (p *Product) Decrement(qty int) {
	p.Stock = max(0, p.Stock-qty)
}

// Settings содержит изменяемые настройки магазина.
type Settings struct {
	ShippingRate      decimal.Decimal `json:"shippingRate"`
	PaymentMode       string          `json:"paymentMode"`
	LowStockThreshold int             `json:"lowStockThreshold"`
}

// DefaultSettings возвращает настройки, действующие до первого сохранения.
func DefaultSettings() Settings {
	return Settings{
		ShippingRate:      decimal.RequireFromString("6.99"),
		PaymentMode:       "mock",
		LowStockThreshold: 5,
	}
}

// SettingsUpdate содержит частичное обновление настроек; nil-поля не меняются.
type SettingsUpdate struct {
	ShippingRate      *decimal.Decimal `json:"shippingRate,omitempty"`
	PaymentMode       *string          `json:"paymentMode,omitempty"`
	LowStockThreshold *int             `json:"lowStockThreshold,omitempty"`
}

// Apply накладывает обновление на текущие настройки.
func (u SettingsUpdate) Apply(s *Settings) {
	if u.ShippingRate != nil {
		s.ShippingRate = *u.ShippingRate
	}
	if u.PaymentMode != nil {
		s.PaymentMode = *u.PaymentMode
	}
	if u.LowStockThreshold != nil {
		s.LowStockThreshold = *u.LowStockThreshold
	}
}
