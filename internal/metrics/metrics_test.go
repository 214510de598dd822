package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

func TestShopMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewShopMetrics(reg)

	m.OrderCreated(decimal.RequireFromString("26.97"))
	m.PaymentConfirmed()
	m.LoginFailure("bad_credentials")
	m.LoginFailure("bad_credentials")
	m.StorageFailure("update")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := fetchPlainCounter(t, mfs, "yarnshop_orders_created_total"); got != 1 {
		t.Fatalf("expected orders=1, got %f", got)
	}
	if got := fetchPlainCounter(t, mfs, "yarnshop_payments_confirmed_total"); got != 1 {
		t.Fatalf("expected payments=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "yarnshop_login_failures_total", "reason", "bad_credentials"); err != nil {
		t.Fatalf("fetch login failures: %v", err)
	} else if got != 2 {
		t.Fatalf("expected login failures=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "yarnshop_storage_failures_total", "op", "update"); err != nil {
		t.Fatalf("fetch storage failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected storage failures=1, got %f", got)
	}

	mf := findMetricFamily(mfs, "yarnshop_order_total")
	if mf == nil {
		t.Fatalf("order total histogram not found")
	}
	if sum := mf.GetMetric()[0].GetHistogram().GetSampleSum(); sum != 26.97 {
		t.Fatalf("expected histogram sum 26.97, got %f", sum)
	}
}

func TestShopMetricsNilSafe(t *testing.T) {
	var m *ShopMetrics
	m.OrderCreated(decimal.NewFromInt(1))
	m.PaymentConfirmed()
	m.LoginFailure("")
	m.StorageFailure("")

	NewShopMetrics(nil).StorageFailure("update")
}

func fetchPlainCounter(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil || len(mf.GetMetric()) == 0 {
		t.Fatalf("metric %q not found", name)
	}
	return mf.GetMetric()[0].GetCounter().GetValue()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		for _, l := range metric.GetLabel() {
			if l.GetName() == label && l.GetValue() == value {
				return metric.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
