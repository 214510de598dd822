package repository

import (
	"context"
	"slices"

	"github.com/mmeshcher/yarnshop/internal/docstore"
	"github.com/mmeshcher/yarnshop/internal/model"
)

// CheckoutState содержит данные, по которым строится заказ. Читаются в той же
// транзакции, в которой заказ сохраняется.
type CheckoutState struct {
	User     model.User
	Products map[int64]model.Product
	Coupons  []model.Coupon
	Settings model.Settings
}

// PaymentState содержит изменяемые при оплате записи. User равен nil, если
// владелец заказа не найден.
type PaymentState struct {
	Order    *model.Order
	Products map[int64]*model.Product
	User     *model.User
}

// PlaceOrder строит заказ функцией build и сохраняет его с новым идентификатором.
// Ошибка build отменяет транзакцию, заказ при этом не создаётся.
func (r *DocumentRepository) PlaceOrder(ctx context.Context, userID int64, build func(CheckoutState) (model.Order, error)) (model.Order, error) {
	var placed model.Order
	err := r.db.Update(ctx, func(tx *docstore.Txn) error {
		userList, err := users.Load(tx)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(userList, func(u model.User) bool { return u.ID == userID })
		if idx == -1 {
			return ErrUserNotFound
		}

		productList, err := products.Load(tx)
		if err != nil {
			return err
		}
		couponList, err := coupons.Load(tx)
		if err != nil {
			return err
		}
		s, err := settings.Load(tx)
		if err != nil {
			return err
		}
		orderList, err := orders.Load(tx)
		if err != nil {
			return err
		}

		byID := make(map[int64]model.Product, len(productList))
		for _, p := range productList {
			byID[p.ID] = p
		}

		o, err := build(CheckoutState{
			User:     userList[idx],
			Products: byID,
			Coupons:  couponList,
			Settings: s,
		})
		if err != nil {
			return err
		}
		o.ID = docstore.NextID(orderList)
		o.UserID = userID
		placed = o
		return orders.Store(tx, append(orderList, o))
	}, users.Name(), products.Name(), coupons.Name(), settings.Name(), orders.Name())
	if err != nil {
		return model.Order{}, err
	}
	return placed, nil
}

// PayOrder применяет apply к заказу orderID пользователя userID вместе с товарами
// и владельцем. Если apply сообщает, что ничего не изменилось, запись не выполняется.
// Иначе заказ, товары и пользователь сохраняются одной транзакцией.
func (r *DocumentRepository) PayOrder(ctx context.Context, userID, orderID int64, apply func(*PaymentState) (bool, error)) (model.Order, error) {
	var paid model.Order
	err := r.db.Update(ctx, func(tx *docstore.Txn) error {
		orderList, err := orders.Load(tx)
		if err != nil {
			return err
		}
		oi := slices.IndexFunc(orderList, func(o model.Order) bool { return o.ID == orderID && o.UserID == userID })
		if oi == -1 {
			return ErrOrderNotFound
		}
		productList, err := products.Load(tx)
		if err != nil {
			return err
		}
		userList, err := users.Load(tx)
		if err != nil {
			return err
		}

		state := &PaymentState{
			Order:    &orderList[oi],
			Products: make(map[int64]*model.Product, len(productList)),
		}
		for i := range productList {
			state.Products[productList[i].ID] = &productList[i]
		}
		if ui := slices.IndexFunc(userList, func(u model.User) bool { return u.ID == userID }); ui != -1 {
			state.User = &userList[ui]
		}

		changed, err := apply(state)
		if err != nil {
			return err
		}
		paid = orderList[oi]
		if !changed {
			return nil
		}

		if err := orders.Store(tx, orderList); err != nil {
			return err
		}
		if err := products.Store(tx, productList); err != nil {
			return err
		}
		return users.Store(tx, userList)
	}, orders.Name(), products.Name(), users.Name())
	if err != nil {
		return model.Order{}, err
	}
	return paid, nil
}

// ListOrdersByUser возвращает все заказы пользователя в порядке создания.
func (r *DocumentRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	all := orders.Read(ctx, r.db)
	out := make([]model.Order, 0)
	for _, o := range all {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

// GetUserOrder возвращает заказ, только если он принадлежит пользователю.
func (r *DocumentRepository) GetUserOrder(ctx context.Context, userID, orderID int64) (model.Order, error) {
	for _, o := range orders.Read(ctx, r.db) {
		if o.ID == orderID && o.UserID == userID {
			return o, nil
		}
	}
	return model.Order{}, ErrOrderNotFound
}

// ListOrders возвращает все заказы магазина.
func (r *DocumentRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	return orders.Read(ctx, r.db), nil
}

// UpdateOrder применяет fn к заказу orderID. Если fn возвращает false,
// запись не выполняется.
func (r *DocumentRepository) UpdateOrder(ctx context.Context, orderID int64, fn func(o *model.Order) bool) (model.Order, error) {
	var updated model.Order
	err := r.db.Update(ctx, func(tx *docstore.Txn) error {
		list, err := orders.Load(tx)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(list, func(o model.Order) bool { return o.ID == orderID })
		if idx == -1 {
			return ErrOrderNotFound
		}
		changed := fn(&list[idx])
		updated = list[idx]
		if !changed {
			return nil
		}
		return orders.Store(tx, list)
	}, orders.Name())
	if err != nil {
		return model.Order{}, err
	}
	return updated, nil
}
