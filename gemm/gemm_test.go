package gemm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/bitmat/kernel"
	"github.com/hupe1980/bitmat/packed"
	"github.com/hupe1980/bitmat/resource"
	"github.com/hupe1980/bitmat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type operands struct {
	a, b   *mat.Dense
	qa, qb *packed.Matrix
}

func newOperands(t testing.TB, seed int64, m, k, n int) operands {
	t.Helper()
	rng := testutil.NewRNG(seed)

	a := rng.UniformDense(m, k)
	b := rng.SignDense(n, k)

	qa, err := packed.Quantize(a, 8, 8)
	require.NoError(t, err)
	qb, err := packed.QuantizeSign(b, 8)
	require.NoError(t, err)

	return operands{a: a, b: b, qa: qa, qb: qb}
}

func TestMultiply_MatchesDequantizedDense(t *testing.T) {
	op := newOperands(t, 4711, 7, 96, 5)

	got, err := Multiply(context.Background(), op.qa, op.qb)
	require.NoError(t, err)

	r, c := got.Dims()
	require.Equal(t, 7, r)
	require.Equal(t, 5, c)

	da, err := packed.Dequantize(op.qa)
	require.NoError(t, err)
	db, err := packed.Dequantize(op.qb)
	require.NoError(t, err)

	var want mat.Dense
	want.Mul(da, db.T())
	assert.True(t, mat.EqualApprox(&want, got, 1e-4))
}

func TestMultiply_ApproximatesDenseProduct(t *testing.T) {
	const k = 256
	op := newOperands(t, 17, 9, k, 11)

	got, err := Multiply(context.Background(), op.qa, op.qb)
	require.NoError(t, err)

	var want mat.Dense
	want.Mul(op.a, op.b.T())

	tol := testutil.ProductTolerance(k, 8, 1)
	r, c := want.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			require.InDelta(t, want.At(i, j), got.At(i, j), tol, "(%d, %d)", i, j)
		}
	}

	// Signs are exact, so only A contributes half a step per term.
	tight := float64(k) * 0.5 * float64(packed.ScaleFor(8)) * 1.01
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			require.InDelta(t, want.At(i, j), got.At(i, j), tight, "(%d, %d)", i, j)
		}
	}
}

func TestMultiply_Scenario(t *testing.T) {
	qa, err := packed.Quantize(mat.NewDense(1, 8, []float64{3.0 / 255, 0, 1, 1.0 / 255, 0, 0, 0, 0}), 8, 8)
	require.NoError(t, err)
	qb, err := packed.QuantizeSign(mat.NewDense(1, 8, []float64{1, -1, 1, -1, 1, 1, 1, 1}), 8)
	require.NoError(t, err)

	got, err := Multiply(context.Background(), qa, qb)
	require.NoError(t, err)
	assert.InDelta(t, 257*float64(packed.ScaleFor(8)), got.At(0, 0), 1e-6)
}

func TestMultiply_Parallel(t *testing.T) {
	op := newOperands(t, 99, 37, 128, 13)
	ctx := context.Background()

	seq, err := Multiply(ctx, op.qa, op.qb)
	require.NoError(t, err)

	for _, workers := range []int{0, 2, 3, 8, 64} {
		par, err := Multiply(ctx, op.qa, op.qb, WithWorkers(workers))
		require.NoError(t, err)
		assert.True(t, mat.Equal(seq, par), "workers=%d", workers)
	}

	rc := resource.NewController(resource.Config{MaxBackgroundWorkers: 2})
	par, err := Multiply(ctx, op.qa, op.qb, WithWorkers(6), WithController(rc))
	require.NoError(t, err)
	assert.True(t, mat.Equal(seq, par))
}

func TestMultiply_RowFilter(t *testing.T) {
	op := newOperands(t, 5, 6, 64, 4)
	ctx := context.Background()

	full, err := Multiply(ctx, op.qa, op.qb)
	require.NoError(t, err)

	filter := roaring.BitmapOf(0, 2, 5, 1000)
	for _, workers := range []int{1, 3} {
		got, err := Multiply(ctx, op.qa, op.qb, WithRowFilter(filter), WithWorkers(workers))
		require.NoError(t, err)

		for r := 0; r < 6; r++ {
			if filter.Contains(uint32(r)) {
				assert.Equal(t, full.RawRowView(r), got.RawRowView(r), "row %d", r)
			} else {
				assert.Equal(t, make([]float64, 4), got.RawRowView(r), "row %d", r)
			}
		}
	}

	// Stale values in a reused output are cleared.
	dst := mat.NewDense(6, 4, nil)
	for r := 0; r < 6; r++ {
		for c := 0; c < 4; c++ {
			dst.Set(r, c, 42)
		}
	}
	require.NoError(t, MultiplyInto(ctx, dst, op.qa, op.qb, WithRowFilter(roaring.BitmapOf(1))))
	assert.Zero(t, dst.At(0, 0))
	assert.Equal(t, full.RawRowView(1), dst.RawRowView(1))
}

func TestMultiply_Empty(t *testing.T) {
	empty, err := packed.Quantize(&mat.Dense{}, 8, 8)
	require.NoError(t, err)

	// Both operands have a layout without a kernel; empty inputs never reach it.
	got, err := Multiply(context.Background(), empty, empty)
	require.NoError(t, err)
	r, c := got.Dims()
	assert.Zero(t, r)
	assert.Zero(t, c)

	err = MultiplyInto(context.Background(), mat.NewDense(1, 1, nil), empty, empty)
	assert.ErrorIs(t, err, packed.ErrContractViolation)

	// One empty side is a width mismatch, not an empty product.
	op := newOperands(t, 1, 1, 16, 2)
	for _, pair := range [][2]*packed.Matrix{{op.qa, empty}, {empty, op.qb}} {
		got, err = Multiply(context.Background(), pair[0], pair[1])
		require.ErrorIs(t, err, packed.ErrContractViolation)
		assert.Nil(t, got)

		var dm *DimensionMismatchError
		require.True(t, errors.As(err, &dm))
		assert.Equal(t, pair[0].Cols(), dm.ACols)
		assert.Equal(t, pair[1].Cols(), dm.BCols)
	}
}

func TestMultiply_DimensionMismatch(t *testing.T) {
	a := newOperands(t, 1, 2, 16, 2)
	b := newOperands(t, 1, 2, 24, 2)

	_, err := Multiply(context.Background(), a.qa, b.qb)
	require.ErrorIs(t, err, packed.ErrContractViolation)

	var dm *DimensionMismatchError
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 2, dm.ACols)
	assert.Equal(t, 3, dm.BCols)
}

func TestMultiply_Unsupported(t *testing.T) {
	rng := testutil.NewRNG(3)
	qa, err := packed.Quantize(rng.UniformDense(2, 8), 8, 8)
	require.NoError(t, err)
	qb, err := packed.Quantize(rng.UniformDense(2, 8), 8, 8)
	require.NoError(t, err)

	_, err = Multiply(context.Background(), qa, qb)
	require.ErrorIs(t, err, kernel.ErrUnsupported)
}

func TestMultiplyInto(t *testing.T) {
	op := newOperands(t, 8, 3, 32, 2)
	ctx := context.Background()

	want, err := Multiply(ctx, op.qa, op.qb)
	require.NoError(t, err)

	var dst mat.Dense
	require.NoError(t, MultiplyInto(ctx, &dst, op.qa, op.qb))
	assert.True(t, mat.Equal(want, &dst))

	err = MultiplyInto(ctx, mat.NewDense(2, 2, nil), op.qa, op.qb)
	require.ErrorIs(t, err, packed.ErrContractViolation)
}

func TestMultiply_Canceled(t *testing.T) {
	op := newOperands(t, 8, 16, 32, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Multiply(ctx, op.qa, op.qb)
	require.ErrorIs(t, err, context.Canceled)

	_, err = Multiply(ctx, op.qa, op.qb, WithWorkers(4))
	require.ErrorIs(t, err, context.Canceled)
}

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) OnMultiply(duration time.Duration, rows, cols, words int, err error) {
	m.Called(duration, rows, cols, words, err)
}

func (m *mockObserver) OnChunk(duration time.Duration, rows int) {
	m.Called(duration, rows)
}

func TestMultiply_Observer(t *testing.T) {
	op := newOperands(t, 2, 4, 16, 3)
	noErr := mock.MatchedBy(func(err error) bool { return err == nil })

	obs := new(mockObserver)
	obs.On("OnMultiply", mock.AnythingOfType("time.Duration"), 4, 3, 2, noErr).Once()
	obs.On("OnChunk", mock.AnythingOfType("time.Duration"), 2).Twice()

	_, err := Multiply(context.Background(), op.qa, op.qb, WithWorkers(2), WithObserver(obs))
	require.NoError(t, err)
	obs.AssertExpectations(t)
}

func TestMultiply_WorkersCappedByController(t *testing.T) {
	op := newOperands(t, 3, 8, 16, 2)
	rc := resource.NewController(resource.Config{MaxBackgroundWorkers: 2})

	obs := new(mockObserver)
	obs.On("OnMultiply", mock.Anything, 8, 2, 2, mock.Anything).Once()
	obs.On("OnChunk", mock.AnythingOfType("time.Duration"), 4).Twice()

	_, err := Multiply(context.Background(), op.qa, op.qb, WithWorkers(8), WithController(rc), WithObserver(obs))
	require.NoError(t, err)
	obs.AssertExpectations(t)
}

func TestMultiply_Logger(t *testing.T) {
	op := newOperands(t, 2, 2, 8, 2)

	var sb strings.Builder
	logger := slog.New(slog.NewTextHandler(&sb, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Multiply(context.Background(), op.qa, op.qb, WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, sb.String(), "multiply completed")
	assert.Contains(t, sb.String(), "kernel="+kernel.ActiveImpl().String())
}

func BenchmarkMultiply(b *testing.B) {
	op := newOperands(b, 1, 64, 1024, 256)
	ctx := context.Background()

	b.Run("sequential", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = Multiply(ctx, op.qa, op.qb)
		}
	})

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = Multiply(ctx, op.qa, op.qb, WithWorkers(0))
		}
	})

	b.Run("dense", func(b *testing.B) {
		var out mat.Dense
		for i := 0; i < b.N; i++ {
			out.Reset()
			out.Mul(op.a, op.b.T())
		}
	})
}
