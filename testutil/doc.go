// Package testutil provides testing utilities for bitmat.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random source and helpers for generating dense
// operands in the ranges the quantizers accept.
//
// # Random Operands
//
//	rng := testutil.NewRNG(seed)
//	a := rng.UniformDense(64, 256)  // values in [0, 1)
//	b := rng.SignDense(256, 32)     // values in {-1, +1}
//
// # Tolerances
//
//	tol := testutil.ProductTolerance(k, 8, 1)
package testutil
