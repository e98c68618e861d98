package testrequest

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsSubsystem = "test_request"

// Metrics counts workflow outcomes. A nil *Metrics records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
}

// NewMetrics creates the workflow counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "upstac",
				Subsystem: metricsSubsystem,
				Name:      "transitions_total",
				Help:      "Counter of accepted test request status transitions.",
			},
			[]string{"from", "to"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "upstac",
				Subsystem: metricsSubsystem,
				Name:      "rejections_total",
				Help:      "Counter of rejected workflow operations broken out by error kind.",
			},
			[]string{"operation", "kind"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.rejections)
	}
	return m
}

func (m *Metrics) observeTransition(from, to Status) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) observeRejection(op string, err error) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(op, ErrorKind(err)).Inc()
}

// ErrorKind names the category of a workflow error.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrValidation):
		return "validation"
	}
	return "internal"
}
