// Package gemm multiplies bit-packed matrices.
//
// Multiply combines a magnitude matrix A (one quantized row per sample) with a
// sign matrix B stored "weights as rows": both operands have the same number
// of words per row and the result is A·Bᵗ,
//
//	out(r, c) = A.Scale() * B.Scale() * Σ_k kernel(A.row(r)[k], B.row(c)[k])
//
// Every output cell is independent. WithWorkers splits the rows of A into
// contiguous ranges computed concurrently; results are bit-identical to the
// sequential path.
package gemm
