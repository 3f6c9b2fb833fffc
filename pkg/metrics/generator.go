package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GeneratorMetrics contains Prometheus metrics for the scan generator service.
type GeneratorMetrics struct {
	ScansGenerated     *prometheus.CounterVec
	GenerationFailures *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	ActiveGenerators   prometheus.Gauge
	DevicesSimulated   prometheus.Counter
	SamplesProduced    prometheus.Counter
}

// NewGeneratorMetrics creates and registers generator metrics.
func NewGeneratorMetrics(namespace string) *GeneratorMetrics {
	m := &GeneratorMetrics{
		ScansGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generator",
				Name:      "scans_generated_total",
				Help:      "Total number of scan elements generated",
			},
			[]string{"modality"},
		),
		GenerationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generator",
				Name:      "generation_failures_total",
				Help:      "Total number of scan generation failures",
			},
			[]string{"modality", "reason"},
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generator",
				Name:      "generation_duration_seconds",
				Help:      "Duration of scan generation operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"modality"},
		),
		ActiveGenerators: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "generator",
				Name:      "active_generators",
				Help:      "Number of currently active generators",
			},
		),
		DevicesSimulated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generator",
				Name:      "devices_simulated_total",
				Help:      "Total number of simulated devices",
			},
		),
		SamplesProduced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generator",
				Name:      "samples_produced_total",
				Help:      "Total number of scan samples produced",
			},
		),
	}

	MustRegister(
		m.ScansGenerated,
		m.GenerationFailures,
		m.GenerationDuration,
		m.ActiveGenerators,
		m.DevicesSimulated,
		m.SamplesProduced,
	)

	return m
}
