package bitmat

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/hupe1980/bitmat/gemm"
	"github.com/hupe1980/bitmat/packed"
	"github.com/hupe1980/bitmat/persistence"
	"github.com/hupe1980/bitmat/resource"
	"gonum.org/v1/gonum/mat"
)

// Engine bundles quantization, multiplication and persistence under one
// configuration. It is safe for concurrent use; the matrices it returns are
// not.
type Engine struct {
	logger  *Logger
	metrics MetricsCollector
	workers int
	policy  packed.OverflowPolicy
	rc      *resource.Controller
	store   *persistence.Store
	closed  atomic.Bool
}

// New creates an Engine.
func New(optFns ...Option) (*Engine, error) {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		workers:          1,
		overflow:         packed.OverflowClamp,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	if o.workers < 0 {
		return nil, fmt.Errorf("%w: workers must be >= 0, got %d", ErrContractViolation, o.workers)
	}

	rc := o.controller
	if rc == nil && o.resource != (resource.Config{}) {
		if o.resource.MaxBackgroundWorkers <= 0 {
			o.resource.MaxBackgroundWorkers = int64(runtime.GOMAXPROCS(0))
		}
		rc = resource.NewController(o.resource)
	}

	e := &Engine{
		logger:  o.logger,
		metrics: o.metricsCollector,
		workers: o.workers,
		policy:  o.overflow,
		rc:      rc,
	}

	o.logger.Debug("engine created",
		"workers", o.workers,
		"overflow", o.overflow.String(),
		"memory_limit", rc.MemoryLimit(),
		"max_workers", rc.MaxWorkers(),
		"store", o.blobs != nil,
	)

	if o.blobs != nil {
		e.store = persistence.NewStore(o.blobs,
			persistence.WithCompression(o.compression),
			persistence.WithController(rc),
			persistence.WithCache(o.cacheBytes),
		)
	}
	return e, nil
}

// Controller returns the engine's resource controller, or nil when no
// limits are configured.
func (e *Engine) Controller() *resource.Controller { return e.rc }

// Quantize packs src, with values in [0, 1], at quantBits per element into
// alignBits-wide lanes.
func (e *Engine) Quantize(ctx context.Context, src mat.Matrix, quantBits, alignBits int) (*packed.Matrix, error) {
	return e.quantize(ctx, src, quantBits, func() (*packed.Matrix, error) {
		return packed.Quantize(src, quantBits, alignBits, e.packedOptions()...)
	})
}

// QuantizeSign packs the signs of src (x >= 0 → +1) into alignBits-wide lanes.
func (e *Engine) QuantizeSign(ctx context.Context, src mat.Matrix, alignBits int) (*packed.Matrix, error) {
	return e.quantize(ctx, src, 1, func() (*packed.Matrix, error) {
		return packed.QuantizeSign(src, alignBits, e.packedOptions()...)
	})
}

func (e *Engine) quantize(ctx context.Context, src mat.Matrix, quantBits int, fn func() (*packed.Matrix, error)) (*packed.Matrix, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows, cols int
	if src != nil {
		rows, cols = src.Dims()
	}

	start := time.Now()
	m, err := fn()
	err = translateError(err)
	elapsed := time.Since(start)

	e.metrics.RecordQuantize(rows*cols, elapsed, err)
	e.logger.LogQuantize(ctx, rows, cols, quantBits, elapsed, err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (e *Engine) packedOptions() []packed.Option {
	return []packed.Option{packed.WithOverflow(e.policy), packed.WithController(e.rc)}
}

// Multiply returns a·bᵀ for a magnitude matrix a and a sign matrix b.
// Extra options override the engine defaults.
func (e *Engine) Multiply(ctx context.Context, a, b *packed.Matrix, opts ...gemm.Option) (*mat.Dense, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	gopts := append([]gemm.Option{
		gemm.WithWorkers(e.workers),
		gemm.WithController(e.rc),
	}, opts...)

	start := time.Now()
	out, err := gemm.Multiply(ctx, a, b, gopts...)
	err = translateError(err)
	elapsed := time.Since(start)

	e.metrics.RecordMultiply(a.Rows(), b.Rows(), elapsed, err)
	e.logger.LogMultiply(ctx, a.Rows(), b.Rows(), a.Cols(), elapsed, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MultiplyDense quantizes x at 8 bits and w to signs, both in 8-bit lanes,
// and returns the approximation of x·sign(w)ᵀ. The packed operands are
// released before returning.
func (e *Engine) MultiplyDense(ctx context.Context, x, w mat.Matrix) (*mat.Dense, error) {
	a, err := e.Quantize(ctx, x, 8, 8)
	if err != nil {
		return nil, err
	}
	defer a.Release()

	b, err := e.QuantizeSign(ctx, w, 8)
	if err != nil {
		return nil, err
	}
	defer b.Release()

	return e.Multiply(ctx, a, b)
}

// Save stores m under name in the configured blob store.
func (e *Engine) Save(ctx context.Context, name string, m *packed.Matrix) error {
	if err := e.checkStore(); err != nil {
		return err
	}

	start := time.Now()
	err := translateError(e.store.Save(ctx, name, m))

	e.metrics.RecordSave(time.Since(start), err)
	e.logger.LogSave(ctx, name, err)
	return err
}

// Load reads the matrix stored under name.
func (e *Engine) Load(ctx context.Context, name string) (*packed.Matrix, error) {
	if err := e.checkStore(); err != nil {
		return nil, err
	}

	start := time.Now()
	m, err := e.store.Load(ctx, name)
	err = translateError(err)

	e.metrics.RecordLoad(time.Since(start), err)
	e.logger.LogLoad(ctx, name, err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes the matrix stored under name.
func (e *Engine) Delete(ctx context.Context, name string) error {
	if err := e.checkStore(); err != nil {
		return err
	}
	return translateError(e.store.Delete(ctx, name))
}

// List returns the stored names starting with prefix.
func (e *Engine) List(ctx context.Context, prefix string) ([]string, error) {
	if err := e.checkStore(); err != nil {
		return nil, err
	}
	names, err := e.store.List(ctx, prefix)
	return names, translateError(err)
}

func (e *Engine) checkStore() error {
	if e.closed.Load() {
		return ErrClosed
	}
	if e.store == nil {
		return ErrNoStore
	}
	return nil
}

// Close marks the engine closed. Matrices created by the engine stay valid
// and must be released by their owners. Close is idempotent.
func (e *Engine) Close() error {
	e.closed.Store(true)
	return nil
}
