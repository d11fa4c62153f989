package pharmacy

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts quantity changes refused because stock would go negative.
type Metrics struct {
	rejections prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Name:      "medicine_quantity_rejections_total",
			Help:      "Medicine quantity updates rejected for going below zero.",
		}),
	}
	reg.MustRegister(m.rejections)
	return m
}

func (m *Metrics) rejected() {
	if m != nil {
		m.rejections.Inc()
	}
}
