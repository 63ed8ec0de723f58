package transport

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts stream lifecycle events the factory produces, mirroring
// pkg/protocol's Metrics shape.
type Metrics struct {
	StreamsOpenedTotal    prometheus.Counter
	StreamsOpenErrorsTotal prometheus.Counter
	StreamsInFlight       prometheus.Gauge
}

// NewMetrics registers the factory's counters against reg, or leaves them
// unregistered (but still usable) when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StreamsOpenedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mongowire", Subsystem: "transport", Name: "streams_opened_total",
			Help: "Streams successfully opened by this factory.",
		}),
		StreamsOpenErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mongowire", Subsystem: "transport", Name: "streams_open_errors_total",
			Help: "Stream open attempts that failed.",
		}),
		StreamsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mongowire", Subsystem: "transport", Name: "streams_open_in_flight",
			Help: "Stream opens currently holding the factory's concurrency slot.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.StreamsOpenedTotal, m.StreamsOpenErrorsTotal, m.StreamsInFlight)
	}
	return m
}
