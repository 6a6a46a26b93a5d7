package annostore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems;
// metric.PrometheusCollector is a ready-made Prometheus implementation.
type MetricsCollector interface {
	// RecordAdd is called after each add operation.
	// duration is the total time taken, err is nil if successful.
	RecordAdd(duration time.Duration, err error)

	// RecordUpdate is called after each update operation.
	RecordUpdate(duration time.Duration, err error)

	// RecordDelete is called after each delete operation.
	RecordDelete(duration time.Duration, err error)

	// RecordSerialize is called after each buffer rebuild with the number of
	// packed annotations and bytes.
	RecordSerialize(count, bytes int, duration time.Duration)

	// RecordRestore is called after each restore from persisted data.
	RecordRestore(restored, skipped int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)               {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error)            {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)            {}
func (NoopMetricsCollector) RecordSerialize(int, int, time.Duration)      {}
func (NoopMetricsCollector) RecordRestore(int, int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount            atomic.Int64
	AddErrors           atomic.Int64
	AddTotalNanos       atomic.Int64
	UpdateCount         atomic.Int64
	UpdateErrors        atomic.Int64
	DeleteCount         atomic.Int64
	DeleteErrors        atomic.Int64
	SerializeCount      atomic.Int64
	SerializeBytes      atomic.Int64
	SerializeTotalNanos atomic.Int64
	RestoreCount        atomic.Int64
	RestoreErrors       atomic.Int64
	RestoredEntries     atomic.Int64
	SkippedEntries      atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordSerialize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSerialize(count, bytes int, duration time.Duration) {
	b.SerializeCount.Add(1)
	b.SerializeBytes.Add(int64(bytes))
	b.SerializeTotalNanos.Add(duration.Nanoseconds())
}

// RecordRestore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRestore(restored, skipped int, duration time.Duration, err error) {
	b.RestoreCount.Add(1)
	if err != nil {
		b.RestoreErrors.Add(1)
		return
	}
	b.RestoredEntries.Add(int64(restored))
	b.SkippedEntries.Add(int64(skipped))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:          b.AddCount.Load(),
		AddErrors:         b.AddErrors.Load(),
		AddAvgNanos:       avg(b.AddTotalNanos.Load(), b.AddCount.Load()),
		UpdateCount:       b.UpdateCount.Load(),
		UpdateErrors:      b.UpdateErrors.Load(),
		DeleteCount:       b.DeleteCount.Load(),
		DeleteErrors:      b.DeleteErrors.Load(),
		SerializeCount:    b.SerializeCount.Load(),
		SerializeBytes:    b.SerializeBytes.Load(),
		SerializeAvgNanos: avg(b.SerializeTotalNanos.Load(), b.SerializeCount.Load()),
		RestoreCount:      b.RestoreCount.Load(),
		RestoreErrors:     b.RestoreErrors.Load(),
		RestoredEntries:   b.RestoredEntries.Load(),
		SkippedEntries:    b.SkippedEntries.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount          int64
	AddErrors         int64
	AddAvgNanos       int64
	UpdateCount       int64
	UpdateErrors      int64
	DeleteCount       int64
	DeleteErrors      int64
	SerializeCount    int64
	SerializeBytes    int64
	SerializeAvgNanos int64
	RestoreCount      int64
	RestoreErrors     int64
	RestoredEntries   int64
	SkippedEntries    int64
}
