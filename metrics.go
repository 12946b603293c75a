package gatesched

import (
	"errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"time"
)

// Metrics counts what scheduling runs do.  A nil *Metrics records nothing, so
// the scheduler calls its methods unconditionally.
type Metrics struct {
	registry prometheus.Registerer

	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	OffsetIterations prometheus.Histogram
	WindowsCommitted prometheus.Counter
	StreamsScheduled prometheus.Gauge
}

// CreateMetrics registers the scheduler's collectors with reg
func CreateMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{registry: reg}

	m.RunsTotal = promauto.With(m.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatesched_runs_total",
			Help: "Total number of scheduling runs by outcome",
		},
		[]string{"status"},
	)

	m.RunDuration = promauto.With(m.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gatesched_run_duration_seconds",
			Help:    "Wall clock duration of scheduling runs",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	m.OffsetIterations = promauto.With(m.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gatesched_offset_iterations",
			Help:    "Number of walks taken to resolve a stream's start offset",
			Buckets: []float64{1, 2, 4, 8, 16, 64, 256, 1024},
		},
	)

	m.WindowsCommitted = promauto.With(m.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "gatesched_windows_committed_total",
			Help: "Total number of transmission windows committed",
		},
	)

	m.StreamsScheduled = promauto.With(m.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gatesched_streams_scheduled",
			Help: "Number of stream reservations in the last successful run",
		},
	)

	return m
}

// runStatus maps the outcome of a run onto the status label
func runStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyTopology):
		return "empty_topology"
	case errors.Is(err, ErrUnresolvable):
		return "unresolvable"
	case errors.Is(err, ErrInconsistent):
		return "inconsistent"
	case errors.Is(err, ErrCapacity):
		return "capacity"
	case errors.Is(err, ErrNotConverged):
		return "not_converged"
	}
	return "error"
}

func (m *Metrics) runFinished(err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(runStatus(err)).Inc()
	m.RunDuration.Observe(duration.Seconds())
}

func (m *Metrics) observeIterations(iterations int) {
	if m == nil {
		return
	}
	m.OffsetIterations.Observe(float64(iterations))
}

func (m *Metrics) windowCommitted() {
	if m == nil {
		return
	}
	m.WindowsCommitted.Inc()
}

func (m *Metrics) streamsScheduled(count int) {
	if m == nil {
		return
	}
	m.StreamsScheduled.Set(float64(count))
}
