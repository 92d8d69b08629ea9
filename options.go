package bitmat

import (
	"github.com/hupe1980/bitmat/blobstore"
	"github.com/hupe1980/bitmat/packed"
	"github.com/hupe1980/bitmat/persistence"
	"github.com/hupe1980/bitmat/resource"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	workers          int
	overflow         packed.OverflowPolicy
	resource         resource.Config
	controller       *resource.Controller
	blobs            blobstore.BlobStore
	compression      persistence.Compression
	cacheBytes       int64
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger. Default: NoopLogger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics sink. Default: NoopMetricsCollector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithWorkers sets the multiply parallelism. 0 uses GOMAXPROCS, 1 (the
// default) runs synchronously.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithOverflow sets how quantization treats values outside [0, 1].
// Default: packed.OverflowClamp.
func WithOverflow(p packed.OverflowPolicy) Option {
	return func(o *options) {
		o.overflow = p
	}
}

// WithMemoryLimit caps the bytes held by packed matrices and caches.
// Allocations beyond the limit fail with ErrOutOfMemory.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.resource.MemoryLimitBytes = bytes
	}
}

// WithIOLimit caps persistence throughput in bytes per second.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.resource.IOLimitBytesPerSec = bytesPerSec
	}
}

// WithMaxBackgroundWorkers caps concurrently running multiply workers
// across all calls on the engine. Default: GOMAXPROCS.
func WithMaxBackgroundWorkers(n int64) Option {
	return func(o *options) {
		o.resource.MaxBackgroundWorkers = n
	}
}

// WithResourceController shares an existing controller. It takes precedence
// over WithMemoryLimit, WithIOLimit and WithMaxBackgroundWorkers.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithBlobStore enables Save, Load, Delete and List.
func WithBlobStore(s blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobs = s
	}
}

// WithCompression sets the envelope compression for Save.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCache keeps up to bytes of saved matrices in memory.
func WithCache(bytes int64) Option {
	return func(o *options) {
		o.cacheBytes = bytes
	}
}
