package integration_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/hupe1980/bitmat/gemm"
	"github.com/hupe1980/bitmat/packed"
	"github.com/hupe1980/bitmat/testutil"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// Values already on the 8-bit grid multiply exactly.
func TestAccuracy_GridIsExact(t *testing.T) {
	rng := testutil.NewRNG(11)
	x := rng.GridDense(16, 256, 8)
	w := rng.SignDense(24, 256)

	got := multiply(t, x, w, 1)

	var want mat.Dense
	want.Mul(x, w.T())
	require.True(t, mat.EqualApprox(&want, got, 1e-3))
}

// The error stays within half a step per term.
func TestAccuracy_Bound(t *testing.T) {
	for _, k := range []int{64, 512, 4096} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			rng := testutil.NewRNG(int64(k))
			x := rng.UniformDense(8, k)
			w := rng.SignDense(8, k)

			got := multiply(t, x, w, 4)

			var want mat.Dense
			want.Mul(x, w.T())

			bound := testutil.ProductTolerance(k, 8, 1)
			var maxErr float64
			for i := 0; i < 8; i++ {
				for j := 0; j < 8; j++ {
					maxErr = math.Max(maxErr, math.Abs(want.At(i, j)-got.At(i, j)))
				}
			}
			require.LessOrEqual(t, maxErr, bound)
		})
	}
}

func multiply(t *testing.T, x, w *mat.Dense, workers int) *mat.Dense {
	t.Helper()

	qa, err := packed.Quantize(x, 8, 8)
	require.NoError(t, err)
	qb, err := packed.QuantizeSign(w, 8)
	require.NoError(t, err)

	out, err := gemm.Multiply(context.Background(), qa, qb, gemm.WithWorkers(workers))
	require.NoError(t, err)
	return out
}
