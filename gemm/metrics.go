package gemm

import "time"

// MetricsObserver receives multiply events.
type MetricsObserver interface {
	// OnMultiply is called when a multiply completes.
	OnMultiply(duration time.Duration, rows, cols, words int, err error)

	// OnChunk is called when a worker finishes its row range.
	OnChunk(duration time.Duration, rows int)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnMultiply(duration time.Duration, rows, cols, words int, err error) {}
func (NoopMetricsObserver) OnChunk(duration time.Duration, rows int)                            {}
