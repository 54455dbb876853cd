package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects request and storage counters for Prometheus.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	written  prometheus.Histogram
	swept    prometheus.Counter
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "netbolt",
				Name:      "requests_total",
				Help:      "Total number of API requests by action and status code.",
			},
			[]string{"action", "code"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "netbolt",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"action"},
		),
		written: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "netbolt",
				Name:      "written_bytes",
				Help:      "Size of stored payloads in bytes.",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
			},
		),
		swept: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "netbolt",
				Name:      "swept_total",
				Help:      "Expired pairs removed by the sweeper.",
			},
		),
	}
}

func (m *Metrics) observeRequest(action string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(action, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (m *Metrics) observeWrite(size int) {
	m.written.Observe(float64(size))
}

// ObserveSweep records the outcome of one sweep.
func (m *Metrics) ObserveSweep(removed int) {
	m.swept.Add(float64(removed))
}
