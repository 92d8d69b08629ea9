// Package mem provides memory allocation utilities.
package mem

import (
	"errors"
	"fmt"
	"math"
	"unsafe"
)

// Alignment is the byte alignment required for AVX-512 (64 bytes).
const Alignment = 64

// WordsPerAlignment is the number of uint64 words in one alignment block.
const WordsPerAlignment = Alignment / 8

// ErrAllocTooLarge is returned when a requested allocation cannot be represented
// or the runtime refuses to create it.
var ErrAllocTooLarge = errors.New("allocation too large")

// PaddedStride returns the row stride, in words, for rows of cols words padded
// up to the next alignment boundary:
//
//	stride = cols + (WordsPerAlignment - cols%WordsPerAlignment) % WordsPerAlignment
func PaddedStride(cols int) int {
	if cols <= 0 {
		return 0
	}
	pad := (WordsPerAlignment - cols%WordsPerAlignment) % WordsPerAlignment
	return cols + pad
}

// AllocAligned allocates a byte slice of the given size with 64-byte alignment.
// The returned slice is guaranteed to start at a memory address divisible by 64.
//
// Note: This function allocates slightly more memory than requested to ensure alignment.
// The underlying array is kept alive by the returned slice.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	// Allocate size + alignment to ensure we can find an aligned offset
	totalSize := size + Alignment
	buf := make([]byte, totalSize)

	ptr := unsafe.Pointer(&buf[0]) //nolint:gosec // unsafe is required for memory alignment
	addr := uintptr(ptr)
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	return buf[offset : offset+uintptr(size)]
}

// AllocAlignedUint64 allocates a zeroed uint64 slice of n words with 64-byte alignment.
//
// Unlike AllocAligned it reports failures instead of panicking: sizes that overflow
// the address computation and runtime refusals to allocate (e.g. "len out of range")
// are returned as errors wrapping ErrAllocTooLarge.
func AllocAlignedUint64(n int) (words []uint64, err error) {
	if n <= 0 {
		return nil, nil
	}
	if n > (math.MaxInt-Alignment)/8 {
		return nil, fmt.Errorf("%w: %d words", ErrAllocTooLarge, n)
	}

	defer func() {
		if r := recover(); r != nil {
			words = nil
			err = fmt.Errorf("%w: %d words: %v", ErrAllocTooLarge, n, r)
		}
	}()

	byteSlice := AllocAligned(n * 8)
	ptr := unsafe.Pointer(&byteSlice[0])     //nolint:gosec // unsafe is required for memory alignment
	return unsafe.Slice((*uint64)(ptr), n), nil //nolint:gosec // unsafe is required for memory alignment
}
