package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records express-checkout flow outcomes.
type CheckoutMetrics struct {
	begun     prometheus.Counter
	completed prometheus.Counter
	rejected  *prometheus.CounterVec
	canceled  prometheus.Counter
	refunded  prometheus.Counter
}

// NewCheckoutMetrics registers the checkout counters on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	begun := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "express_checkout_begun_total",
		Help: "Express checkouts redirected to the hosted page.",
	})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "express_checkout_completed_total",
		Help: "Express checkouts captured and driven to completion.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "express_checkout_rejected_total",
		Help: "Express checkout legs the processor rejected.",
	}, []string{"leg"})
	canceled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "express_checkout_canceled_total",
		Help: "Express checkouts abandoned on the hosted page.",
	})
	refunded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "express_checkout_refunded_total",
		Help: "Captured transactions credited back.",
	})
	reg.MustRegister(begun, completed, rejected, canceled, refunded)
	return &CheckoutMetrics{
		begun:     begun,
		completed: completed,
		rejected:  rejected,
		canceled:  canceled,
		refunded:  refunded,
	}
}

// IncBegun counts a shopper redirected to the hosted page.
func (m *CheckoutMetrics) IncBegun() {
	if m == nil || m.begun == nil {
		return
	}
	m.begun.Inc()
}

// IncCompleted counts an order driven to completion.
func (m *CheckoutMetrics) IncCompleted() {
	if m == nil || m.completed == nil {
		return
	}
	m.completed.Inc()
}

// IncRejected counts a processor rejection on the named leg.
func (m *CheckoutMetrics) IncRejected(leg string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(leg)).Inc()
}

// IncCanceled counts an abandoned hosted-page session.
func (m *CheckoutMetrics) IncCanceled() {
	if m == nil || m.canceled == nil {
		return
	}
	m.canceled.Inc()
}

// IncRefunded counts a credited transaction.
func (m *CheckoutMetrics) IncRefunded() {
	if m == nil || m.refunded == nil {
		return
	}
	m.refunded.Inc()
}

func normalizeLabel(value string) string {
	label := strings.TrimSpace(strings.ToLower(value))
	if label == "" {
		return "unknown"
	}
	return label
}
