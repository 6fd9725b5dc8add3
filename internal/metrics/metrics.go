package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service counters. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	admissions      *prometheus.CounterVec
	checkoutLinks   *prometheus.CounterVec
	stockDecrements *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admissions_total",
				Help: "Total admission attempts by outcome.",
			},
			[]string{"outcome"},
		),
		checkoutLinks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_links_total",
				Help: "Total checkout link creations by outcome.",
			},
			[]string{"outcome"},
		),
		stockDecrements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_decrements_total",
				Help: "Total per-product stock decrements by outcome.",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.admissions, m.checkoutLinks, m.stockDecrements)
	return m
}

func (m *Metrics) Admission(outcome string) {
	if m != nil {
		m.admissions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) CheckoutLink(outcome string) {
	if m != nil {
		m.checkoutLinks.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) StockDecrement(outcome string) {
	if m != nil {
		m.stockDecrements.WithLabelValues(outcome).Inc()
	}
}
