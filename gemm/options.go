package gemm

import (
	"log/slog"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/bitmat/resource"
)

// Option configures Multiply.
type Option func(*options)

type options struct {
	workers    int
	controller *resource.Controller
	rowFilter  *roaring.Bitmap
	logger     *slog.Logger
	observer   MetricsObserver
}

func applyOptions(opts []Option) options {
	o := options{
		workers:  1,
		observer: NoopMetricsObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.controller != nil {
		o.workers = min(o.workers, o.controller.MaxWorkers())
	}
	if o.observer == nil {
		o.observer = NoopMetricsObserver{}
	}
	return o
}

// WithWorkers sets the number of concurrent row workers.
// 1 (the default) computes synchronously; 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithController makes every worker hold a background slot of rc while it
// runs. The worker count is capped at rc's slot count.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithRowFilter restricts the computation to the listed rows of A.
// Other output rows are zero. Indexes beyond A's rows are ignored.
func WithRowFilter(rows *roaring.Bitmap) Option {
	return func(o *options) {
		o.rowFilter = rows
	}
}

// WithLogger sets the logger for multiply diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver sets the metrics observer.
func WithObserver(obs MetricsObserver) Option {
	return func(o *options) {
		o.observer = obs
	}
}
