package testutil

import (
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniform fills dst with values in [0, 1).
func (r *RNG) FillUniform(dst []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float64()
	}
}

// UniformDense generates a rows×cols matrix with values in [0, 1).
// Zero-sized shapes yield an empty matrix.
func (r *RNG) UniformDense(rows, cols int) *mat.Dense {
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}

	data := make([]float64, rows*cols)
	r.FillUniform(data)
	return mat.NewDense(rows, cols, data)
}

// SignDense generates a rows×cols matrix with values in {-1, +1}.
func (r *RNG) SignDense(rows, cols int) *mat.Dense {
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, rows*cols)
	for i := range data {
		if r.rand.Intn(2) == 0 {
			data[i] = -1
		} else {
			data[i] = 1
		}
	}
	return mat.NewDense(rows, cols, data)
}

// GridDense generates a rows×cols matrix whose values lie exactly on the
// quantization grid of width quantBits, so quantizing it is lossless.
func (r *RNG) GridDense(rows, cols, quantBits int) *mat.Dense {
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	levels := 1<<quantBits - 1
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = float64(r.rand.Intn(levels+1)) / float64(levels)
	}
	return mat.NewDense(rows, cols, data)
}

// ProductTolerance bounds the absolute error of one entry of a product of
// quantized operands with inner dimension k. Each operand contributes at
// most half a quantization step per element.
func ProductTolerance(k, quantBitsA, quantBitsB int) float64 {
	stepA := 1 / (math.Exp2(float64(quantBitsA)) - 1)
	stepB := 1 / (math.Exp2(float64(quantBitsB)) - 1)
	// |a|,|b| <= 1, so |ab - qa*qb| <= |a-qa| + |b-qb| + |a-qa||b-qb|.
	perTerm := stepA/2 + stepB/2 + stepA*stepB/4
	// float32 scale factors add a relative error on top.
	return float64(k)*perTerm + 1e-4*float64(k)
}
