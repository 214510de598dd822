// Package service реализует бизнес-логику магазина пряжи: учётные записи,
// корзину и избранное, оформление и оплату заказов, администрирование.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/yarnshop/internal/model"
	"github.com/mmeshcher/yarnshop/internal/ratelimit"
	"github.com/mmeshcher/yarnshop/internal/repository"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, u model.User) (model.User, error)
	EnsureAdmin(ctx context.Context, u model.User) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, id int64) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id int64, fn func(u *model.User) error) (model.User, error)

	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) (model.Product, error)
	UpdateProduct(ctx context.Context, id int64, fn func(p *model.Product) error) (model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	SeedProducts(ctx context.Context, seed []model.Product) (bool, error)

	ListCoupons(ctx context.Context) ([]model.Coupon, error)
	CreateCoupon(ctx context.Context, c model.Coupon) (model.Coupon, error)

	GetSettings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, upd model.SettingsUpdate) (model.Settings, error)

	PlaceOrder(ctx context.Context, userID int64, build func(repository.CheckoutState) (model.Order, error)) (model.Order, error)
	PayOrder(ctx context.Context, userID, orderID int64, apply func(*repository.PaymentState) (bool, error)) (model.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetUserOrder(ctx context.Context, userID, orderID int64) (model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrder(ctx context.Context, orderID int64, fn func(o *model.Order) bool) (model.Order, error)
}

// Sessions описывает выдачу и проверку сессий.
type Sessions interface {
	Create(ctx context.Context, userID int64, role model.Role) (string, model.Session, error)
	Get(ctx context.Context, cookieValue string) (model.Session, bool)
	Destroy(ctx context.Context, cookieValue string) error
}

// Metrics описывает бизнес-метрики, которые обновляет сервис.
type Metrics interface {
	OrderCreated(total decimal.Decimal)
	PaymentConfirmed()
	LoginFailure(reason string)
}

type noopMetrics struct{}

func (noopMetrics) OrderCreated(decimal.Decimal) {}
func (noopMetrics) PaymentConfirmed()            {}
func (noopMetrics) LoginFailure(string)          {}

// Service содержит бизнес-логику магазина.
type Service struct {
	repo     Repository
	sessions Sessions
	limiter  ratelimit.Limiter
	metrics  Metrics
	now      func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithLimiter задаёт ограничитель попыток входа.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithMetrics задаёт получателя бизнес-метрик.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock задаёт источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService создаёт новый сервис с указанным репозиторием и менеджером сессий.
func NewService(repo Repository, sessions Sessions, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		sessions: sessions,
		limiter:  ratelimit.Noop{},
		metrics:  noopMetrics{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}
