package intake

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts intake outcomes per pipeline result.
type Metrics struct {
	uploads *prometheus.CounterVec
}

const (
	outcomeAccepted           = "accepted"
	outcomeThreatRejected     = "threat_rejected"
	outcomeValidationRejected = "validation_rejected"
	outcomeFailed             = "failed"
)

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_uploads_total",
				Help: "Total upload submissions by outcome.",
			},
			[]string{"outcome"},
		),
	}
	if err := reg.Register(m.uploads); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}
