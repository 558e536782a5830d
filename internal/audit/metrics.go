package audit

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts audit outcomes.
type Metrics struct {
	records *prometheus.CounterVec
}

// NewMetrics registers the audit collectors against registerer, falling back
// to the default registerer when nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "desk_audit_records_total",
		Help: "Audit records by outcome.",
	}, []string{"result"})
	registerer.MustRegister(records)
	return &Metrics{records: records}
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(result).Inc()
}
