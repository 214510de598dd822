package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/yarnshop/internal/model"
	"github.com/mmeshcher/yarnshop/internal/repository"
)

// ProductFilter задаёт отбор товаров каталога. Пустые поля не применяются.
type ProductFilter struct {
	Query    string
	Category string
	Variant  string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

func (f ProductFilter) match(p model.Product) bool {
	if !p.Active {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Variant != "" && !p.HasVariant(f.Variant) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// ListProducts возвращает активные товары, подходящие под фильтр.
func (s *Service) ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	all, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(all))
	for _, p := range all {
		if f.match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetProduct возвращает товар по идентификатору. Неактивный товар тоже доступен:
// на него могут ссылаться корзины и заказы.
func (s *Service) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return model.Product{}, repository.ErrProductNotFound
		}
		return model.Product{}, err
	}
	return p, nil
}
