package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/mmeshcher/yarnshop/internal/docstore"
	"github.com/mmeshcher/yarnshop/internal/model"
)

// ListProducts возвращает все товары, включая неактивные.
func (r *DocumentRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	return products.Read(ctx, r.db), nil
}

// GetProduct возвращает товар по идентификатору.
func (r *DocumentRepository) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	for _, p := range products.Read(ctx, r.db) {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Product{}, ErrProductNotFound
}

// CreateProduct сохраняет новый товар, назначая ему идентификатор.
func (r *DocumentRepository) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	err := r.db.Update(ctx, func(tx *docstore.Txn) error {
		list, err := products.Load(tx)
		if err != nil {
			return err
		}
		p.ID = docstore.NextID(list)
		return products.Store(tx, append(list, p))
	}, products.Name())
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// UpdateProduct применяет fn к товару id и сохраняет результат.
func (r *DocumentRepository) UpdateProduct(ctx context.Context, id int64, fn func(p *model.Product) error) (model.Product, error) {
	var updated model.Product
	err := r.db.Update(ctx, func(tx *docstore.Txn) error {
		list, err := products.Load(tx)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(list, func(p model.Product) bool { return p.ID == id })
		if idx == -1 {
			return ErrProductNotFound
		}
		if err := fn(&list[idx]); err != nil {
			return err
		}
		list[idx].ID = id
		updated = list[idx]
		return products.Store(tx, list)
	}, products.Name())
	if err != nil {
		return model.Product{}, err
	}
	return updated, nil
}

// DeleteProduct удаляет товар. Заказы и корзины со ссылкой на него не меняются.
func (r *DocumentRepository) DeleteProduct(ctx context.Context, id int64) error {
	return r.db.Update(ctx, func(tx *docstore.Txn) error {
		list, err := products.Load(tx)
		if err != nil {
			return err
		}
		next := slices.DeleteFunc(list, func(p model.Product) bool { return p.ID == id })
		if len(next) == len(list) {
			return ErrProductNotFound
		}
		return products.Store(tx, next)
	}, products.Name())
}

// SeedProducts записывает seed, только если документа товаров ещё нет.
func (r *DocumentRepository) SeedProducts(ctx context.Context, seed []model.Product) (bool, error) {
	seeded := false
	err := r.db.Update(ctx, func(tx *docstore.Txn) error {
		existing, err := catalog.Load(tx)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		list := make([]model.Product, 0, len(seed))
		for _, p := range seed {
			p.ID = docstore.NextID(list)
			list = append(list, p)
		}
		seeded = true
		return catalog.Store(tx, &list)
	}, catalog.Name())
	return seeded, err
}

// ListCoupons возвращает все купоны.
func (r *DocumentRepository) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	return coupons.Read(ctx, r.db), nil
}

// CreateCoupon сохраняет новый купон. Код купона уникален без учёта регистра.
func (r *DocumentRepository) CreateCoupon(ctx context.Context, c model.Coupon) (model.Coupon, error) {
	err := r.db.Update(ctx, func(tx *docstore.Txn) error {
		list, err := coupons.Load(tx)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(list, func(x model.Coupon) bool { return x.Matches(c.Code) }) {
			return fmt.Errorf("%w: %s", ErrCouponExists, c.Code)
		}
		c.ID = docstore.NextID(list)
		return coupons.Store(tx, append(list, c))
	}, coupons.Name())
	if err != nil {
		return model.Coupon{}, err
	}
	return c, nil
}

// GetSettings возвращает настройки магазина.
func (r *DocumentRepository) GetSettings(ctx context.Context) (model.Settings, error) {
	return settings.Read(ctx, r.db), nil
}

// UpdateSettings применяет частичное обновление настроек.
func (r *DocumentRepository) UpdateSettings(ctx context.Context, upd model.SettingsUpdate) (model.Settings, error) {
	var updated model.Settings
	err := r.db.Update(ctx, func(tx *docstore.Txn) error {
		s, err := settings.Load(tx)
		if err != nil {
			return err
		}
		upd.Apply(&s)
		updated = s
		return settings.Store(tx, s)
	}, settings.Name())
	if err != nil {
		return model.Settings{}, err
	}
	return updated, nil
}
