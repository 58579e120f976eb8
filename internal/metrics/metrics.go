package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Purchase outcomes.
const (
	ResultOK                = "ok"
	ResultInvalid           = "invalid"
	ResultForbidden         = "forbidden"
	ResultNotVerified       = "not_verified"
	ResultUnavailable       = "unavailable"
	ResultInsufficientStock = "insufficient_stock"
	ResultError             = "error"
)

// Metrics owns a private registry so tests can build as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	purchases     *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmmarket",
			Name:      "purchases_total",
			Help:      "Purchase attempts by outcome.",
		}, []string{"result"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmmarket",
			Name:      "status_changes_total",
			Help:      "Transaction status changes by target status.",
		}, []string{"status"}),
	}
	reg.MustRegister(
		m.purchases,
		m.statusChanges,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Purchase(result string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(result).Inc()
}

func (m *Metrics) StatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// PurchaseCount returns the current counter value for result.
func (m *Metrics) PurchaseCount(result string) float64 {
	if m == nil {
		return 0
	}
	mfs, err := m.registry.Gather()
	if err != nil {
		return 0
	}
	for _, mf := range mfs {
		if mf.GetName() != "farmmarket_purchases_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "result" && lp.GetValue() == result {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
