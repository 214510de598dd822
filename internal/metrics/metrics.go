// Package metrics содержит метрики Prometheus магазина.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// ShopMetrics собирает счётчики заказов, оплат, входов и сбоев хранилища.
// Нулевой и nil-указатель безопасны: вызовы методов ничего не делают.
type ShopMetrics struct {
	ordersCreated     prometheus.Counter
	paymentsConfirmed prometheus.Counter
	orderTotal        prometheus.Histogram
	loginFailures     *prometheus.CounterVec
	storageFailures   *prometheus.CounterVec
}

// NewShopMetrics регистрирует метрики в reg. При nil reg метрики не собираются.
func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	if reg == nil {
		return &ShopMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yarnshop_orders_created_total",
		Help: "Orders placed at checkout.",
	})
	paymentsConfirmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yarnshop_payments_confirmed_total",
		Help: "Orders moved to paid.",
	})
	orderTotal := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "yarnshop_order_total",
		Help:    "Order totals at checkout.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000},
	})
	loginFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yarnshop_login_failures_total",
		Help: "Rejected login attempts.",
	}, []string{"reason"})
	storageFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yarnshop_storage_failures_total",
		Help: "Document store operations that failed to persist.",
	}, []string{"op"})
	reg.MustRegister(ordersCreated, paymentsConfirmed, orderTotal, loginFailures, storageFailures)
	return &ShopMetrics{
		ordersCreated:     ordersCreated,
		paymentsConfirmed: paymentsConfirmed,
		orderTotal:        orderTotal,
		loginFailures:     loginFailures,
		storageFailures:   storageFailures,
	}
}

// OrderCreated учитывает новый заказ с итоговой суммой total.
func (m *ShopMetrics) OrderCreated(total decimal.Decimal) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
	m.orderTotal.Observe(total.InexactFloat64())
}

// PaymentConfirmed учитывает подтверждённую оплату.
func (m *ShopMetrics) PaymentConfirmed() {
	if m == nil || m.paymentsConfirmed == nil {
		return
	}
	m.paymentsConfirmed.Inc()
}

// LoginFailure учитывает отклонённую попытку входа.
func (m *ShopMetrics) LoginFailure(reason string) {
	if m == nil || m.loginFailures == nil {
		return
	}
	m.loginFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// StorageFailure учитывает сбой записи в хранилище.
func (m *ShopMetrics) StorageFailure(op string) {
	if m == nil || m.storageFailures == nil {
		return
	}
	m.storageFailures.WithLabelValues(normalizeLabel(op)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
