// Package metrics exposes Prometheus instrumentation for the schedule
// engine.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	GenerationsTotal   *prometheus.CounterVec
	RemoteSyncsTotal   *prometheus.CounterVec
	SchedulesGauge     *prometheus.GaugeVec
	GenerationDuration *prometheus.HistogramVec
}

// New creates and registers the engine metrics on the given registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		GenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labsheet_generations_total",
				Help: "Total sheet generation attempts by module code and status.",
			},
			[]string{"module_code", "status"},
		),
		RemoteSyncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labsheet_remote_syncs_total",
				Help: "Total remote store uploads by status.",
			},
			[]string{"status"},
		),
		SchedulesGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "labsheet_schedules",
				Help: "Number of schedules by status.",
			},
			[]string{"status"},
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "labsheet_generation_duration_seconds",
				Help:    "Duration of sheet generation by module code.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"module_code"},
		),
	}

	collectors := []prometheus.Collector{
		m.GenerationsTotal,
		m.RemoteSyncsTotal,
		m.SchedulesGauge,
		m.GenerationDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return m, nil
}

// ObserveGeneration records one generation attempt.
func (m *Metrics) ObserveGeneration(moduleCode, status string, seconds float64) {
	m.GenerationsTotal.WithLabelValues(moduleCode, status).Inc()
	m.GenerationDuration.WithLabelValues(moduleCode).Observe(seconds)
}

// ObserveRemoteSync records one remote upload outcome.
func (m *Metrics) ObserveRemoteSync(status string) {
	m.RemoteSyncsTotal.WithLabelValues(status).Inc()
}

// SetScheduleCounts updates the per-status schedule gauges.
func (m *Metrics) SetScheduleCounts(counts map[string]int) {
	m.SchedulesGauge.Reset()
	for status, n := range counts {
		m.SchedulesGauge.WithLabelValues(status).Set(float64(n))
	}
}
