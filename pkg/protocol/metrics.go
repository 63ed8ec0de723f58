// Package protocol implements the protocol engine (C6): pairs the wire
// codec's encode/decode with the stream's send/receive, combines bulk-write
// batches, drives the acknowledged-write get-last-error follow-up, and
// classifies server replies into the typed error taxonomy.
package protocol

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the engine's exported counter surface. Metrics built by
// NewMetrics with no registerer are still safe to touch; their counters are
// simply orphaned from any scrape.
type Metrics struct {
	CommandsTotal      *prometheus.CounterVec
	CommandErrorsTotal *prometheus.CounterVec
	BatchesSplitTotal  prometheus.Counter
}

// NewMetrics constructs the counter vectors and, if reg is non-nil,
// registers them. Passing a fresh prometheus.NewRegistry() per test keeps
// counters isolated across parallel test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mongowire",
			Subsystem: "protocol",
			Name:      "commands_total",
			Help:      "Commands executed by the protocol engine, labeled by op code.",
		}, []string{"op"}),
		CommandErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mongowire",
			Subsystem: "protocol",
			Name:      "command_errors_total",
			Help:      "Commands that failed, labeled by error code.",
		}, []string{"code"}),
		BatchesSplitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mongowire",
			Subsystem: "protocol",
			Name:      "batches_split_total",
			Help:      "Bulk-write batches that overflowed into a continuation message.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.CommandsTotal, m.CommandErrorsTotal, m.BatchesSplitTotal)
	}
	return m
}
