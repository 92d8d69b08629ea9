package persistence

import (
	"log/slog"

	"github.com/hupe1980/bitmat/resource"
)

type options struct {
	compression Compression
	controller  *resource.Controller
	logger      *slog.Logger
	cacheBytes  int64
}

// Option configures a Store.
type Option func(*options)

// WithCompression sets the payload codec for Save. Default: CompressionNone.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithController rate-limits blob IO and charges loaded matrices and cache
// entries against the controller's memory budget.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithLogger enables debug logging of saves and loads.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCache keeps up to capacity bytes of encoded blobs in memory.
func WithCache(capacity int64) Option {
	return func(o *options) {
		o.cacheBytes = capacity
	}
}
