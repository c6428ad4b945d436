package vanstock

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts adjustment lifecycle events.
type Metrics struct {
	created         prometheus.Counter
	completed       prometheus.Counter
	failed          prometheus.Counter
	confirmRejected prometheus.Counter
}

// NewMetrics registers the vanstock counters on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_vanstock_requests_created_total",
			Help: "Adjustment requests created.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_vanstock_requests_completed_total",
			Help: "Adjustment requests completed and applied to the ledger.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_vanstock_requests_failed_total",
			Help: "Adjustment requests that reached both confirmations but could not be applied.",
		}),
		confirmRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_vanstock_confirm_rejected_total",
			Help: "Confirmation attempts rejected as invalid or expired.",
		}),
	}
	reg.MustRegister(m.created, m.completed, m.failed, m.confirmRejected)
	return m
}

func (m *Metrics) requestCreated() {
	if m != nil {
		m.created.Inc()
	}
}

func (m *Metrics) requestCompleted() {
	if m != nil {
		m.completed.Inc()
	}
}

func (m *Metrics) requestFailed() {
	if m != nil {
		m.failed.Inc()
	}
}

func (m *Metrics) confirmRejectedInc() {
	if m != nil {
		m.confirmRejected.Inc()
	}
}
