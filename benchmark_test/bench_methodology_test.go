package benchmark_test

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/hupe1980/bitmat/packed"
	"github.com/hupe1980/bitmat/testutil"
	"gonum.org/v1/gonum/mat"
)

// WarmupIterations is the number of untimed runs before measurement.
const WarmupIterations = 3

// BenchLoop runs fn b.N times after a warmup phase and a GC, so setup
// allocations do not leak into the measurement.
func BenchLoop(b *testing.B, fn func()) {
	b.Helper()

	for i := 0; i < WarmupIterations; i++ {
		fn()
	}
	runtime.GC()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fn()
	}
}

// shape is one m×k · (n×k)ᵀ workload.
type shape struct {
	m, k, n int
}

func (s shape) String() string { return fmt.Sprintf("%dx%dx%d", s.m, s.k, s.n) }

var shapes = []shape{
	{16, 256, 16},
	{64, 1024, 256},
	{256, 4096, 256},
}

type operands struct {
	x, w   *mat.Dense
	qa, qb *packed.Matrix
}

func setupOperands(b *testing.B, s shape) operands {
	b.Helper()
	rng := testutil.NewRNG(1)

	x := rng.UniformDense(s.m, s.k)
	w := rng.SignDense(s.n, s.k)

	qa, err := packed.Quantize(x, 8, 8)
	if err != nil {
		b.Fatal(err)
	}
	qb, err := packed.QuantizeSign(w, 8)
	if err != nil {
		b.Fatal(err)
	}
	return operands{x: x, w: w, qa: qa, qb: qb}
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%dMiB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%dKiB", n>>10)
	}
	return fmt.Sprintf("%dB", n)
}
