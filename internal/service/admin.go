package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/yarnshop/internal/model"
)

// UserSummary содержит сведения о пользователе без учётных данных.
type UserSummary struct {
	ID    int64      `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
}

// ProductPatch содержит изменения товара; nil-поля не меняются.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Category    *string          `json:"category"`
	Variants    *[]string        `json:"variants"`
	Active      *bool            `json:"active"`
}

// CouponInput содержит данные нового купона.
type CouponInput struct {
	Code  string
	Type  model.DiscountType
	Value decimal.Decimal
}

// DayStats описывает продажи за один день.
type DayStats struct {
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

// LowStockItem описывает товар с остатком не выше порога.
type LowStockItem struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// Analytics содержит сводку продаж по оплаченным заказам.
type Analytics struct {
	Revenue  decimal.Decimal     `json:"revenue"`
	Sales    int                 `json:"sales"`
	ByDay    map[string]DayStats `json:"byDay"`
	LowStock []LowStockItem      `json:"lowStock"`
}

// ListUsers возвращает пользователей без учётных данных.
func (s *Service) ListUsers(ctx context.Context) ([]UserSummary, error) {
	list, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(list))
	for _, u := range list {
		out = append(out, UserSummary{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role})
	}
	return out, nil
}

// ListOrders возвращает все заказы магазина.
func (s *Service) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.repo.ListOrders(ctx)
}

// UpdateOrderStatus меняет статус заказа и добавляет событие в историю.
// Если статус пуст или совпадает с текущим, история не меняется.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) (model.Order, bool, error) {
	now := s.now()
	next := model.OrderStatus(strings.TrimSpace(string(status)))
	changed := false

	o, err := s.repo.UpdateOrder(ctx, orderID, func(o *model.Order) bool {
		if next == "" || next == o.Status {
			return false
		}
		o.Status = next
		o.Timeline.Append(model.TimelineEvent{
			At:     now,
			Type:   model.EventStatus,
			Status: string(next),
			Note:   noteAdminStatus,
		})
		changed = true
		return true
	})
	if err != nil {
		return model.Order{}, false, err
	}
	return o, changed, nil
}

// CreateProduct добавляет товар в каталог. Новый товар активен.
func (s *Service) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	if strings.TrimSpace(p.Name) == "" {
		return model.Product{}, fmt.Errorf("product name is required: %w", model.ErrInvalidInput)
	}
	if err := validateProduct(p); err != nil {
		return model.Product{}, err
	}
	p.ID = 0
	p.Active = true
	if p.Variants == nil {
		p.Variants = []string{}
	}
	return s.repo.CreateProduct(ctx, p)
}

// UpdateProduct накладывает изменения на товар.
func (s *Service) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (model.Product, error) {
	return s.repo.UpdateProduct(ctx, id, func(p *model.Product) error {
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		if patch.Stock != nil {
			p.Stock = *patch.Stock
		}
		if patch.Category != nil {
			p.Category = *patch.Category
		}
		if patch.Variants != nil {
			p.Variants = *patch.Variants
		}
		if patch.Active != nil {
			p.Active = *patch.Active
		}
		return validateProduct(*p)
	})
}

// DeleteProduct удаляет товар из каталога.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

func validateProduct(p model.Product) error {
	if p.Price.IsNegative() {
		return fmt.Errorf("price must not be negative: %w", model.ErrInvalidInput)
	}
	if p.Stock < 0 {
		return fmt.Errorf("stock must not be negative: %w", model.ErrInvalidInput)
	}
	return nil
}

// ListCoupons возвращает все купоны.
func (s *Service) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	return s.repo.ListCoupons(ctx)
}

// CreateCoupon создаёт активный купон.
func (s *Service) CreateCoupon(ctx context.Context, in CouponInput) (model.Coupon, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return model.Coupon{}, fmt.Errorf("coupon code is required: %w", model.ErrInvalidInput)
	}
	switch in.Type {
	case model.DiscountPercent, model.DiscountAmount:
	default:
		return model.Coupon{}, fmt.Errorf("unknown discount type %q: %w", in.Type, model.ErrInvalidInput)
	}
	if in.Value.IsNegative() {
		return model.Coupon{}, fmt.Errorf("coupon value must not be negative: %w", model.ErrInvalidInput)
	}

	return s.repo.CreateCoupon(ctx, model.Coupon{
		Code:   code,
		Type:   in.Type,
		Value:  in.Value,
		Active: true,
	})
}

// GetSettings возвращает настройки магазина.
func (s *Service) GetSettings(ctx context.Context) (model.Settings, error) {
	return s.repo.GetSettings(ctx)
}

// UpdateSettings частично обновляет настройки магазина.
func (s *Service) UpdateSettings(ctx context.Context, upd model.SettingsUpdate) (model.Settings, error) {
	if upd.ShippingRate != nil && upd.ShippingRate.IsNegative() {
		return model.Settings{}, fmt.Errorf("shipping rate must not be negative: %w", model.ErrInvalidInput)
	}
	if upd.LowStockThreshold != nil && *upd.LowStockThreshold < 0 {
		return model.Settings{}, fmt.Errorf("low stock threshold must not be negative: %w", model.ErrInvalidInput)
	}
	return s.repo.UpdateSettings(ctx, upd)
}

// Analytics считает выручку и число продаж по оплаченным заказам, продажи по дням
// (UTC) и товары с остатком не выше порога из настроек.
func (s *Service) Analytics(ctx context.Context) (Analytics, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return Analytics{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return Analytics{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return Analytics{}, err
	}

	res := Analytics{
		Revenue:  decimal.Zero,
		ByDay:    make(map[string]DayStats),
		LowStock: []LowStockItem{},
	}
	for _, o := range orders {
		day := o.CreatedAt.UTC().Format("2006-01-02")
		stats, ok := res.ByDay[day]
		if !ok {
			stats.Revenue = decimal.Zero
		}
		if o.Paid() {
			res.Sales++
			res.Revenue = res.Revenue.Add(o.Totals.Total)
			stats.Sales++
			stats.Revenue = stats.Revenue.Add(o.Totals.Total)
		}
		res.ByDay[day] = stats
	}
	for _, p := range products {
		if p.Stock <= settings.LowStockThreshold {
			res.LowStock = append(res.LowStock, LowStockItem{ID: p.ID, Name: p.Name, Stock: p.Stock})
		}
	}

	return res, nil
}
