package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics contains Prometheus metrics for the queue worker.
type WorkerMetrics struct {
	MessagesConsumed *prometheus.CounterVec
	MessagesRejected *prometheus.CounterVec
	HandleDuration   *prometheus.HistogramVec
	ActiveConsumers  prometheus.Gauge
	DatabaseErrors   prometheus.Counter
	ValidationErrors prometheus.Counter
}

// NewWorkerMetrics creates and registers worker metrics.
func NewWorkerMetrics(namespace string) *WorkerMetrics {
	m := &WorkerMetrics{
		MessagesConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "messages_consumed_total",
				Help:      "Total number of messages consumed from the queue",
			},
			[]string{"queue", "status"}, // status: success, error
		),
		MessagesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "messages_rejected_total",
				Help:      "Total number of messages rejected without requeue",
			},
			[]string{"queue", "reason"},
		),
		HandleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "handle_duration_seconds",
				Help:      "Duration of message handling",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"queue"},
		),
		ActiveConsumers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "active_consumers",
				Help:      "Number of active queue consumers",
			},
		),
		DatabaseErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "database_errors_total",
				Help:      "Total number of database errors while storing results",
			},
		),
		ValidationErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "validation_errors_total",
				Help:      "Total number of messages dropped due to invalid payloads",
			},
		),
	}

	MustRegister(
		m.MessagesConsumed,
		m.MessagesRejected,
		m.HandleDuration,
		m.ActiveConsumers,
		m.DatabaseErrors,
		m.ValidationErrors,
	)

	return m
}
