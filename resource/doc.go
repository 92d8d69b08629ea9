// Package resource bounds the memory, concurrency and IO used by bitmat.
//
// Packed matrices reserve their word buffers from a Controller's memory budget,
// multiply workers hold background slots, and persistence throttles its
// reads and writes through the IO limiter.
package resource
