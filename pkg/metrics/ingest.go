package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics contains Prometheus metrics for the scan ingest pipeline.
// The pipeline runs inside the API, the worker and the importer; the source
// label tells the entry points apart.
type IngestMetrics struct {
	ElementsProcessed *prometheus.CounterVec
	ProcessDuration   *prometheus.HistogramVec
	DevicesCreated    prometheus.Counter
	ResultsStored     prometheus.Counter
}

// NewIngestMetrics creates and registers ingest pipeline metrics.
func NewIngestMetrics(namespace string) *IngestMetrics {
	m := &IngestMetrics{
		ElementsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "elements_processed_total",
				Help:      "Total number of scan elements processed",
			},
			[]string{"source", "status"}, // status: success, error
		),
		ProcessDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "process_duration_seconds",
				Help:      "Duration of scan element processing",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		DevicesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "devices_created_total",
				Help:      "Total number of devices registered on first sight",
			},
		),
		ResultsStored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "results_stored_total",
				Help:      "Total number of processing results stored",
			},
		),
	}

	MustRegister(
		m.ElementsProcessed,
		m.ProcessDuration,
		m.DevicesCreated,
		m.ResultsStored,
	)

	return m
}
