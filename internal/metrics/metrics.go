// Package metrics counts run outcomes with Prometheus collectors. A batch tool
// has no scrape endpoint, so the registry is written to a node_exporter
// textfile at the end of a run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "notion_migrator"

// Metrics holds the collectors for one run. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry
	command  string

	items     *prometheus.CounterVec
	failures  *prometheus.CounterVec
	bytes     prometheus.Counter
	folders   prometheus.Counter
	duration  prometheus.Histogram
	lastRun   prometheus.Gauge
	anomalies prometheus.Counter
}

// New creates Metrics on a private registry. command labels every item.
func New(command string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		command:  command,
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Pages processed, by command and outcome.",
		}, []string{"command", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Per-page failures, by stage.",
		}, []string{"command", "stage"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes uploaded to the destination.",
		}),
		folders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folders_created_total",
			Help:      "Destination folders created.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "item_duration_seconds",
			Help:      "Time spent on one page.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_run_timestamp_seconds",
			Help:        "Unix time the run finished.",
			ConstLabels: prometheus.Labels{"command": command},
		}),
		anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_parse_anomalies_total",
			Help:      "Success lines whose page id could not be derived.",
		}),
	}

	reg.MustRegister(m.items, m.failures, m.bytes, m.folders, m.duration, m.lastRun, m.anomalies)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordOutcome counts one item with the given outcome.
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(m.command, outcome).Inc()
}

// RecordFailure counts a failure at stage.
func (m *Metrics) RecordFailure(stage string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(m.command, stage).Inc()
}

// AddUploadedBytes adds n uploaded bytes.
func (m *Metrics) AddUploadedBytes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytes.Add(float64(n))
}

// AddFoldersCreated adds n created folders.
func (m *Metrics) AddFoldersCreated(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.folders.Add(float64(n))
}

// AddAnomalies adds n log parse anomalies.
func (m *Metrics) AddAnomalies(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.anomalies.Add(float64(n))
}

// ObserveDuration records how long one item took.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

// WriteTextfile stamps the run finish time and writes every collector to path
// in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string, now time.Time) error {
	if m == nil || path == "" {
		return nil
	}
	m.lastRun.Set(float64(now.Unix()))
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
