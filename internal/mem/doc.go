// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Provides 64-byte aligned allocation for packed word buffers (AVX-512 friendly),
// together with the row padding rule used by packed matrices.
package mem
