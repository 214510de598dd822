package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает статус выполнения заказа. Кроме pending и processing
// администратор может выставить произвольный статус.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus описывает статус оплаты заказа. Переход только pending → paid.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// DefaultPaymentMethod используется, если клиент не указал способ оплаты.
const DefaultPaymentMethod = "mock"

// Payment содержит данные об оплате заказа.
type Payment struct {
	Method string        `json:"method"`
	Status PaymentStatus `json:"status"`
}

// Totals содержит денежные итоги заказа.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// OrderItem описывает позицию корзины, скопированная в заказ, с названием и ценой товара
// на момент оформления.
type OrderItem struct {
	CartLine
	Name      string          `json:"name,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Order описывает оформленный заказ. Items и Totals после создания не меняются.
type Order struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"userId"`
	Items           []OrderItem `json:"items"`
	Totals          Totals      `json:"totals"`
	Status          OrderStatus `json:"status"`
	Payment         Payment     `json:"payment"`
	Timeline        Timeline    `json:"timeline"`
	ShippingAddress string      `json:"shippingAddress"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// RecordID возвращает идентификатор записи.
func (o Order) RecordID() int64 { return o.ID }

// Paid сообщает, оплачен ли заказ.
func (o Order) Paid() bool {
	return o.Payment.Status == PaymentStatusPaid
}

// DiscountType описывает тип скидки купона.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountAmount  DiscountType = "amount"
)

// Coupon описывает купон на скидку.
type Coupon struct {
	ID     int64           `json:"id"`
	Code   string          `json:"code"`
	Type   DiscountType    `json:"type"`
	Value  decimal.Decimal `json:"value"`
	Active bool            `json:"active"`
}

// RecordID возвращает идентификатор записи.
func (c Coupon) RecordID() int64 { return c.ID }

// Matches сравнивает код купона без учёта регистра.
func (c Coupon) Matches(code string) bool {
	return strings.EqualFold(strings.TrimSpace(c.Code), strings.TrimSpace(code))
}
