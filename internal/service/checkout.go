package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/yarnshop/internal/model"
	"github.com/mmeshcher/yarnshop/internal/repository"
)

const (
	noteOrderCreated     = "Order created"
	notePaymentConfirmed = "Payment confirmed"
	noteOrderPreparing   = "Order is being prepared"
	noteAdminStatus      = "Status updated by admin"
)

var hundred = decimal.NewFromInt(100)

// CheckoutInput содержит параметры оформления заказа. Все поля необязательны.
type CheckoutInput struct {
	Coupon          string
	Method          string
	ShippingAddress string
}

// CheckoutResult описывает созданный заказ.
type CheckoutResult struct {
	OrderID int64
	Payment model.Payment
	Totals  model.Totals
}

// ComputeTotals считает итоги корзины. Позиции без товара в каталоге в сумму
// не входят. Скидка ограничена промежутком [0, subtotal].
func ComputeTotals(cart []model.CartLine, products map[int64]model.Product, coupon *model.Coupon, shipping decimal.Decimal) model.Totals {
	subtotal := decimal.Zero
	for _, l := range cart {
		p, ok := products[l.ProductID]
		if !ok {
			continue
		}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(l.Qty))))
	}

	discount := decimal.Zero
	if coupon != nil {
		switch coupon.Type {
		case model.DiscountPercent:
			discount = subtotal.Mul(coupon.Value).Div(hundred).Round(2)
		case model.DiscountAmount:
			discount = coupon.Value
		}
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	return model.Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Total:    subtotal.Sub(discount).Add(shipping),
	}
}

func findCoupon(list []model.Coupon, code string) *model.Coupon {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	for i := range list {
		if list[i].Active && list[i].Matches(code) {
			return &list[i]
		}
	}
	return nil
}

// Checkout оформляет заказ из корзины пользователя. Неизвестный или неактивный
// купон игнорируется. Корзина при оформлении не очищается.
func (s *Service) Checkout(ctx context.Context, userID int64, in CheckoutInput) (CheckoutResult, error) {
	now := s.now()

	order, err := s.repo.PlaceOrder(ctx, userID, func(st repository.CheckoutState) (model.Order, error) {
		cart := st.User.Cart
		if len(cart) == 0 {
			return model.Order{}, model.ErrEmptyCart
		}

		totals := ComputeTotals(cart, st.Products, findCoupon(st.Coupons, in.Coupon), st.Settings.ShippingRate)

		items := make([]model.OrderItem, 0, len(cart))
		for _, l := range cart {
			item := model.OrderItem{CartLine: l}
			if p, ok := st.Products[l.ProductID]; ok {
				item.Name = p.Name
				item.UnitPrice = p.Price
			}
			items = append(items, item)
		}

		method := strings.TrimSpace(in.Method)
		if method == "" {
			method = model.DefaultPaymentMethod
		}
		address := strings.TrimSpace(in.ShippingAddress)
		if address == "" {
			address = st.User.Profile.Address
		}

		return model.Order{
			Items:   items,
			Totals:  totals,
			Status:  model.OrderStatusPending,
			Payment: model.Payment{Method: method, Status: model.PaymentStatusPending},
			Timeline: model.NewTimeline(model.TimelineEvent{
				At:     now,
				Type:   model.EventStatus,
				Status: string(model.OrderStatusPending),
				Note:   noteOrderCreated,
			}),
			ShippingAddress: address,
			CreatedAt:       now,
		}, nil
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	s.metrics.OrderCreated(order.Totals.Total)

	return CheckoutResult{
		OrderID: order.ID,
		Payment: order.Payment,
		Totals:  order.Totals,
	}, nil
}

// Pay подтверждает оплату заказа: отмечает оплату, переводит заказ в processing,
// списывает остатки и очищает корзину одной транзакцией. Для уже оплаченного
// заказа ничего не меняется и возвращается его текущий статус.
func (s *Service) Pay(ctx context.Context, userID, orderID int64) (model.OrderStatus, error) {
	now := s.now()
	confirmed := false

	order, err := s.repo.PayOrder(ctx, userID, orderID, func(st *repository.PaymentState) (bool, error) {
		o := st.Order
		if o.Paid() {
			return false, nil
		}

		o.Payment.Status = model.PaymentStatusPaid
		o.Timeline.Append(model.TimelineEvent{
			At:     now,
			Type:   model.EventPayment,
			Status: string(model.PaymentStatusPaid),
			Note:   notePaymentConfirmed,
		})
		o.Status = model.OrderStatusProcessing
		o.Timeline.Append(model.TimelineEvent{
			At:     now,
			Type:   model.EventStatus,
			Status: string(model.OrderStatusProcessing),
			Note:   noteOrderPreparing,
		})

		for _, item := range o.Items {
			if p, ok := st.Products[item.ProductID]; ok {
				p.Decrement(item.Qty)
			}
		}
		if st.User != nil {
			st.User.Cart = []model.CartLine{}
		}

		confirmed = true
		return true, nil
	})
	if err != nil {
		return "", err
	}

	if confirmed {
		s.metrics.PaymentConfirmed()
	}
	return order.Status, nil
}

// ListMine возвращает все заказы пользователя.
func (s *Service) ListMine(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

// Track возвращает заказ пользователя.
func (s *Service) Track(ctx context.Context, userID, orderID int64) (model.Order, error) {
	return s.repo.GetUserOrder(ctx, userID, orderID)
}
