package bitmat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hupe1980/bitmat/blobstore"
	"github.com/hupe1980/bitmat/gemm"
	"github.com/hupe1980/bitmat/packed"
	"github.com/hupe1980/bitmat/persistence"
	"github.com/hupe1980/bitmat/resource"
	"github.com/hupe1980/bitmat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestEngine_Multiply(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(12)
	x := rng.UniformDense(6, 128)
	w := rng.SignDense(9, 128)

	eng, err := New(WithWorkers(0))
	require.NoError(t, err)
	defer eng.Close()

	a, err := eng.Quantize(ctx, x, 8, 8)
	require.NoError(t, err)
	b, err := eng.QuantizeSign(ctx, w, 8)
	require.NoError(t, err)

	got, err := eng.Multiply(ctx, a, b)
	require.NoError(t, err)

	want, err := gemm.Multiply(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))

	dense, err := eng.MultiplyDense(ctx, x, w)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, dense))

	var exact mat.Dense
	exact.Mul(x, w.T())
	assert.True(t, mat.EqualApprox(&exact, dense, testutil.ProductTolerance(128, 8, 1)))
}

func TestEngine_Errors(t *testing.T) {
	ctx := context.Background()
	eng, err := New(WithOverflow(packed.OverflowError))
	require.NoError(t, err)

	t.Run("out of domain", func(t *testing.T) {
		_, err := eng.Quantize(ctx, mat.NewDense(1, 8, []float64{0, 0, 2, 0, 0, 0, 0, 0}), 8, 8)
		require.ErrorIs(t, err, ErrOutOfDomain)
		require.ErrorIs(t, err, packed.ErrOutOfDomain)

		var de *packed.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 2, de.Col)
	})

	t.Run("contract", func(t *testing.T) {
		_, err := eng.Quantize(ctx, mat.NewDense(1, 6, nil), 8, 8)
		require.ErrorIs(t, err, ErrContractViolation)

		_, err = eng.Quantize(ctx, nil, 8, 8)
		require.ErrorIs(t, err, ErrContractViolation)
	})

	t.Run("unsupported", func(t *testing.T) {
		a, err := eng.Quantize(ctx, mat.NewDense(1, 8, nil), 8, 8)
		require.NoError(t, err)
		_, err = eng.Multiply(ctx, a, a)
		require.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		a, err := eng.Quantize(ctx, mat.NewDense(1, 16, nil), 8, 8)
		require.NoError(t, err)
		b, err := eng.QuantizeSign(ctx, mat.NewDense(1, 8, nil), 8)
		require.NoError(t, err)

		_, err = eng.Multiply(ctx, a, b)
		require.ErrorIs(t, err, ErrContractViolation)
		require.ErrorIs(t, err, packed.ErrContractViolation)

		var dm *ErrDimensionMismatch
		require.True(t, errors.As(err, &dm))
		assert.Equal(t, 2, dm.ACols)
		assert.Equal(t, 1, dm.BCols)

		var gdm *gemm.DimensionMismatchError
		assert.True(t, errors.As(err, &gdm))
	})

	t.Run("canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := eng.QuantizeSign(cctx, mat.NewDense(1, 8, nil), 8)
		require.ErrorIs(t, err, context.Canceled)
	})

	_, err = New(WithWorkers(-1))
	require.ErrorIs(t, err, ErrContractViolation)
}

func TestEngine_MemoryLimit(t *testing.T) {
	ctx := context.Background()
	eng, err := New(WithMemoryLimit(64))
	require.NoError(t, err)
	require.NotNil(t, eng.Controller())

	_, err = eng.Quantize(ctx, mat.NewDense(4, 16, nil), 8, 8)
	require.ErrorIs(t, err, ErrOutOfMemory)

	m, err := eng.Quantize(ctx, mat.NewDense(1, 16, nil), 8, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(64), eng.Controller().MemoryUsage())
	m.Release()
	assert.Zero(t, eng.Controller().MemoryUsage())

	plain, err := New()
	require.NoError(t, err)
	assert.Nil(t, plain.Controller())

	rc := resource.NewController(resource.Config{})
	shared, err := New(WithResourceController(rc), WithMemoryLimit(1))
	require.NoError(t, err)
	assert.Same(t, rc, shared.Controller())
}

func TestEngine_Persistence(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()

	eng, err := New(
		WithBlobStore(blobs),
		WithCompression(persistence.CompressionLZ4),
		WithCache(1<<20),
	)
	require.NoError(t, err)

	m, err := eng.QuantizeSign(ctx, testutil.NewRNG(5).SignDense(16, 64), 8)
	require.NoError(t, err)

	require.NoError(t, eng.Save(ctx, "layer0/w", m))

	got, err := eng.Load(ctx, "layer0/w")
	require.NoError(t, err)
	assert.True(t, m.Equal(got))

	names, err := eng.List(ctx, "layer0/")
	require.NoError(t, err)
	assert.Equal(t, []string{"layer0/w"}, names)

	_, err = eng.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, blobs.Put(ctx, "junk", []byte("BMX1 but not really an envelope")))
	_, err = eng.Load(ctx, "junk")
	require.ErrorIs(t, err, ErrMalformed)

	require.NoError(t, eng.Delete(ctx, "layer0/w"))
	_, err = eng.Load(ctx, "layer0/w")
	require.ErrorIs(t, err, ErrNotFound)

	noStore, err := New()
	require.NoError(t, err)
	require.ErrorIs(t, noStore.Save(ctx, "x", m), ErrNoStore)
	_, err = noStore.List(ctx, "")
	require.ErrorIs(t, err, ErrNoStore)
}

func TestEngine_Closed(t *testing.T) {
	ctx := context.Background()
	eng, err := New(WithBlobStore(blobstore.NewMemoryStore()))
	require.NoError(t, err)

	m, err := eng.Quantize(ctx, mat.NewDense(1, 8, nil), 8, 8)
	require.NoError(t, err)

	require.NoError(t, eng.Close())
	require.NoError(t, eng.Close())

	_, err = eng.Quantize(ctx, mat.NewDense(1, 8, nil), 8, 8)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = eng.Multiply(ctx, m, m)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, eng.Save(ctx, "m", m), ErrClosed)
	_, err = eng.Load(ctx, "m")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, eng.Delete(ctx, "m"), ErrClosed)

	// Matrices outlive the engine.
	assert.True(t, m.Row(0).Valid())
}

func TestEngine_Metrics(t *testing.T) {
	ctx := context.Background()
	mc := &BasicMetricsCollector{}

	eng, err := New(WithMetricsCollector(mc), WithBlobStore(blobstore.NewMemoryStore()))
	require.NoError(t, err)

	rng := testutil.NewRNG(1)
	out, err := eng.MultiplyDense(ctx, rng.UniformDense(3, 16), rng.SignDense(4, 16))
	require.NoError(t, err)
	r, c := out.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 4, c)

	_, err = eng.Quantize(ctx, mat.NewDense(1, 3, nil), 8, 8)
	require.Error(t, err)

	m, err := eng.QuantizeSign(ctx, rng.SignDense(1, 8), 8)
	require.NoError(t, err)
	require.NoError(t, eng.Save(ctx, "m", m))
	_, err = eng.Load(ctx, "m")
	require.NoError(t, err)
	_, err = eng.Load(ctx, "nope")
	require.Error(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(4), stats.QuantizeCount)
	assert.Equal(t, int64(1), stats.QuantizeErrors)
	assert.Equal(t, int64(3*16+4*16+8), stats.QuantizeElems)
	assert.Equal(t, int64(1), stats.MultiplyCount)
	assert.Equal(t, int64(12), stats.MultiplyOutputs)
	assert.Zero(t, stats.MultiplyErrors)
	assert.Equal(t, int64(1), stats.SaveCount)
	assert.Equal(t, int64(2), stats.LoadCount)
	assert.Equal(t, int64(1), stats.LoadErrors)

	// nil falls back to the no-op collector.
	_, err = New(WithMetricsCollector(nil))
	require.NoError(t, err)
}

func TestEngine_Logger(t *testing.T) {
	ctx := context.Background()
	var sb strings.Builder
	logger := NewLogger(slog.NewTextHandler(&sb, &slog.HandlerOptions{Level: slog.LevelDebug}))

	eng, err := New(WithLogger(logger), WithBlobStore(blobstore.NewMemoryStore()), WithMemoryLimit(1<<20), WithMaxBackgroundWorkers(3))
	require.NoError(t, err)

	rng := testutil.NewRNG(1)
	_, err = eng.MultiplyDense(ctx, rng.UniformDense(1, 8), rng.SignDense(1, 8))
	require.NoError(t, err)
	_, err = eng.Load(ctx, "missing")
	require.Error(t, err)

	logs := sb.String()
	assert.Contains(t, logs, "engine created")
	assert.Contains(t, logs, "memory_limit=1048576")
	assert.Contains(t, logs, "max_workers=3")
	assert.Contains(t, logs, "quantize completed")
	assert.Contains(t, logs, "multiply completed")
	assert.Contains(t, logs, "load failed")
	assert.Contains(t, logs, "name=missing")
}
