// Package metrics holds the Prometheus collectors of the ordering pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "ordering"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailure  = "failure"
)

// Metrics owns a private registry so that several instances can coexist in
// one process.
type Metrics struct {
	Registry *prometheus.Registry

	ordersSubmitted *prometheus.CounterVec
	ordersCompleted *prometheus.CounterVec
	ordersProcessed prometheus.Counter
	tablesCleaned   prometheus.Counter
	notifications   *prometheus.CounterVec
	saves           *prometheus.CounterVec
	backups         *prometheus.CounterVec
	skippedRecords  *prometheus.CounterVec
	processingTime  prometheus.Histogram
	queueDepth      *prometheus.GaugeVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ordersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Count of order submissions by outcome.",
		}, []string{"outcome"}),
		ordersCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_completed_total",
			Help:      "Count of staff completion requests by outcome.",
		}, []string{"outcome"}),
		ordersProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_processed_total",
			Help:      "Count of orders that finished the processing delay.",
		}),
		tablesCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tables_cleaned_total",
			Help:      "Count of tables freed by staff.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Count of notification deliveries per target and outcome.",
		}, []string{"target", "outcome"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_saves_total",
			Help:      "Count of snapshot saves per registry and outcome.",
		}, []string{"kind", "outcome"}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Count of backup cycles by outcome.",
		}, []string{"outcome"}),
		skippedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_records_skipped_total",
			Help:      "Count of persisted lines skipped while loading.",
		}, []string{"kind"}),
		processingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_processing_seconds",
			Help:      "Time from dequeue to processed notification.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Items waiting in each in-process queue.",
		}, []string{"queue"}),
	}

	m.Registry.MustRegister(
		m.ordersSubmitted,
		m.ordersCompleted,
		m.ordersProcessed,
		m.tablesCleaned,
		m.notifications,
		m.saves,
		m.backups,
		m.skippedRecords,
		m.processingTime,
		m.queueDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordSubmission counts an order submission.
func (m *Metrics) RecordSubmission(outcome string) {
	m.ordersSubmitted.WithLabelValues(outcome).Inc()
}

// RecordCompletion counts a completion request.
func (m *Metrics) RecordCompletion(outcome string) {
	m.ordersCompleted.WithLabelValues(outcome).Inc()
}

// RecordProcessed counts an order that left the processor.
func (m *Metrics) RecordProcessed(seconds float64) {
	m.ordersProcessed.Inc()
	m.processingTime.Observe(seconds)
}

func (m *Metrics) RecordTablesCleaned(n int) {
	m.tablesCleaned.Add(float64(n))
}

// RecordNotification counts a delivery to a display callback or sink.
func (m *Metrics) RecordNotification(target, outcome string) {
	m.notifications.WithLabelValues(target, outcome).Inc()
}

// RecordSave counts a snapshot save of kind.
func (m *Metrics) RecordSave(kind, outcome string) {
	m.saves.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordBackup(outcome string) {
	m.backups.WithLabelValues(outcome).Inc()
}

// RecordSkipped counts malformed lines dropped while loading kind.
func (m *Metrics) RecordSkipped(kind string, n int) {
	m.skippedRecords.WithLabelValues(kind).Add(float64(n))
}

// SetQueueDepth publishes the current length of a queue.
func (m *Metrics) SetQueueDepth(queue string, n int) {
	m.queueDepth.WithLabelValues(queue).Set(float64(n))
}
