package clinical

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts vitals upserts by outcome: created, updated or failed.
type Metrics struct {
	upserts *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Name:      "vitals_upserts_total",
			Help:      "Vital signs upserts by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.upserts)
	return m
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.upserts.WithLabelValues(result).Inc()
}
