// Package metric exports store operation metrics to Prometheus.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every exported metric.
const Namespace = "annostore"

// PrometheusCollector implements annostore.MetricsCollector on top of
// client_golang counters and histograms.
type PrometheusCollector struct {
	opLatency  *prometheus.HistogramVec
	ops        *prometheus.CounterVec
	serialized prometheus.Histogram
	restored   *prometheus.CounterVec
}

// NewPrometheusCollector creates a collector and registers it with reg. A
// nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of store operations",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total store operations",
		}, []string{"op", "status"}),
		serialized: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "serialized_bytes",
			Help:      "Size of rebuilt annotation buffers",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 12),
		}),
		restored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "restored_entries_total",
			Help:      "Persisted entries processed by restore",
		}, []string{"result"}),
	}
	for _, col := range []prometheus.Collector{c.opLatency, c.ops, c.serialized, c.restored} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *PrometheusCollector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordAdd implements annostore.MetricsCollector.
func (c *PrometheusCollector) RecordAdd(d time.Duration, err error) { c.observe("add", d, err) }

// RecordUpdate implements annostore.MetricsCollector.
func (c *PrometheusCollector) RecordUpdate(d time.Duration, err error) { c.observe("update", d, err) }

// RecordDelete implements annostore.MetricsCollector.
func (c *PrometheusCollector) RecordDelete(d time.Duration, err error) { c.observe("delete", d, err) }

// RecordSerialize implements annostore.MetricsCollector.
func (c *PrometheusCollector) RecordSerialize(count, bytes int, d time.Duration) {
	c.observe("serialize", d, nil)
	c.serialized.Observe(float64(bytes))
}

// RecordRestore implements annostore.MetricsCollector.
func (c *PrometheusCollector) RecordRestore(restored, skipped int, d time.Duration, err error) {
	c.observe("restore", d, err)
	c.restored.WithLabelValues("restored").Add(float64(restored))
	c.restored.WithLabelValues("skipped").Add(float64(skipped))
}
