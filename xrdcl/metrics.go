package xrdcl

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the Prometheus wiring for a population of connections: a
// handful of process-wide collectors shared across connections rather
// than one set per connection. Pass the same *Metrics to every
// Connection's Options to share it.
type Metrics struct {
	phase             *prometheus.GaugeVec
	faultsTotal       *prometheus.CounterVec
	handshakeDuration prometheus.Histogram

	streamName string // set per-Connection via forStream, read-only after
}

// NewMetrics builds and registers a fresh set of collectors against reg.
// Pass prometheus.DefaultRegisterer for the common case.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "phase",
			Help:      "Current socket handler phase (1 if active) labeled by stream and phase name.",
		}, []string{"stream", "phase"}),
		faultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "faults_total",
			Help:      "Total number of connection faults, labeled by status kind.",
		}, []string{"kind"}),
		handshakeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "handshake_duration_seconds",
			Help:      "Time from Connect to OnHandshakeDone.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.phase, m.faultsTotal, m.handshakeDuration)
	return m
}

// forStream returns a shallow copy of m scoped to a stream name, so each
// Connection can report its own phase gauge without colliding with
// others sharing the same *Metrics.
func (m *Metrics) forStream(streamName string) *Metrics {
	if m == nil {
		return nil
	}
	cp := *m
	cp.streamName = streamName
	return &cp
}

func (c *Connection) metricsSetPhase() {
	if c.metrics == nil {
		return
	}
	scoped := c.metrics.forStream(c.streamName)
	for p := PhaseIdle; p <= PhaseClosed; p++ {
		val := 0.0
		if p == c.phase {
			val = 1
		}
		scoped.phase.WithLabelValues(scoped.streamName, p.String()).Set(val)
	}
}

func (c *Connection) metricsRecordFault(code StatusCode) {
	if c.metrics == nil {
		return
	}
	c.metrics.faultsTotal.WithLabelValues(code.String()).Inc()
}

func (c *Connection) metricsRecordHandshakeDone() {
	if c.metrics == nil {
		return
	}
	c.metrics.handshakeDuration.Observe(time.Since(c.connectionStarted).Seconds())
}
