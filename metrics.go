package bitmat

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordQuantize is called after each quantization.
	// elems is the number of source elements, err is nil if successful.
	RecordQuantize(elems int, duration time.Duration, err error)

	// RecordMultiply is called after each multiply with the output shape.
	RecordMultiply(rows, cols int, duration time.Duration, err error)

	// RecordSave is called after each save.
	RecordSave(duration time.Duration, err error)

	// RecordLoad is called after each load.
	RecordLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordQuantize(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordMultiply(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSave(time.Duration, error)               {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)               {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	QuantizeCount      atomic.Int64
	QuantizeErrors     atomic.Int64
	QuantizeElems      atomic.Int64
	QuantizeTotalNanos atomic.Int64
	MultiplyCount      atomic.Int64
	MultiplyErrors     atomic.Int64
	MultiplyOutputs    atomic.Int64
	MultiplyTotalNanos atomic.Int64
	SaveCount          atomic.Int64
	SaveErrors         atomic.Int64
	LoadCount          atomic.Int64
	LoadErrors         atomic.Int64
}

// RecordQuantize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuantize(elems int, duration time.Duration, err error) {
	b.QuantizeCount.Add(1)
	b.QuantizeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QuantizeErrors.Add(1)
		return
	}
	b.QuantizeElems.Add(int64(elems))
}

// RecordMultiply implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMultiply(rows, cols int, duration time.Duration, err error) {
	b.MultiplyCount.Add(1)
	b.MultiplyTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MultiplyErrors.Add(1)
		return
	}
	b.MultiplyOutputs.Add(int64(rows) * int64(cols))
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(_ time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		QuantizeCount:    b.QuantizeCount.Load(),
		QuantizeErrors:   b.QuantizeErrors.Load(),
		QuantizeElems:    b.QuantizeElems.Load(),
		QuantizeAvgNanos: avg(b.QuantizeTotalNanos.Load(), b.QuantizeCount.Load()),
		MultiplyCount:    b.MultiplyCount.Load(),
		MultiplyErrors:   b.MultiplyErrors.Load(),
		MultiplyOutputs:  b.MultiplyOutputs.Load(),
		MultiplyAvgNanos: avg(b.MultiplyTotalNanos.Load(), b.MultiplyCount.Load()),
		SaveCount:        b.SaveCount.Load(),
		SaveErrors:       b.SaveErrors.Load(),
		LoadCount:        b.LoadCount.Load(),
		LoadErrors:       b.LoadErrors.Load(),
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
	QuantizeCount    int64
	QuantizeErrors   int64
	QuantizeElems    int64
	QuantizeAvgNanos int64
	MultiplyCount    int64
	MultiplyErrors   int64
	MultiplyOutputs  int64
	MultiplyAvgNanos int64
	SaveCount        int64
	SaveErrors       int64
	LoadCount        int64
	LoadErrors       int64
}
