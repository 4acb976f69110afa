package loader

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects per-dataset loader statistics.
type Metrics struct {
	batchesTotal  *prometheus.CounterVec
	examplesTotal *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
}

// NewMetrics registers the loader collectors on reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		batchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "loader",
				Name:      "batches_total",
				Help:      "Total number of batches produced",
			},
			[]string{"dataset"},
		),
		examplesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "loader",
				Name:      "examples_total",
				Help:      "Total number of examples loaded into batches",
			},
			[]string{"dataset"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "loader",
				Name:      "errors_total",
				Help:      "Total number of batches that failed to load",
			},
			[]string{"dataset"},
		),
		batchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "loader",
				Name:      "batch_duration_seconds",
				Help:      "Time to read, transform and collate one batch",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"dataset"},
		),
	}
}

func (m *Metrics) observe(dataset string, examples int, d time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.errorsTotal.WithLabelValues(dataset).Inc()
		return
	}
	m.batchesTotal.WithLabelValues(dataset).Inc()
	m.examplesTotal.WithLabelValues(dataset).Add(float64(examples))
	m.batchDuration.WithLabelValues(dataset).Observe(d.Seconds())
}
