// Package kernel provides the population-count dot product used by bit-packed
// matrix multiplication.
//
// # Representation
//
// A 64-bit word holds 8 lanes of 8 bits. The magnitude operand stores an
// unsigned value in [0, 255] per lane; the sign operand stores a single flag in
// the lowest bit of each lane (1 = +1, 0 = -1). The first logical element lives
// in the most significant lane.
//
// # Algorithm
//
// For every bit-plane b in [0, 8) the kernel counts, across all lanes at once,
// the lanes whose magnitude has bit b set and whose sign is positive, and the
// same for negative signs:
//
//	pos_b = popcount(x & (y << b))
//	neg_b = popcount(x & (^y & Mask8x1) << b)
//	dot   = Σ_b (pos_b - neg_b) << b
//
// which equals Σ_i x_i * (2*s_i - 1), computed with 16 popcounts per word
// instead of 8 scalar multiply-adds.
//
// # Dispatch
//
// Two implementations exist, a plane loop (generic) and a fully unrolled one.
// The unrolled kernel is selected when the CPU has a hardware population count.
// Set BITMAT_KERNEL=generic or BITMAT_KERNEL=unrolled to override the choice.
//
// # Configurations
//
// Only the (8-bit magnitude, 1-bit sign, 8 lanes) combination is implemented.
// Lookup returns ErrUnsupported for every other Config instead of silently
// producing zero.
package kernel
