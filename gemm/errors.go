package gemm

import (
	"fmt"

	"github.com/hupe1980/bitmat/packed"
)

// DimensionMismatchError reports operands whose rows hold different numbers
// of words.
type DimensionMismatchError struct {
	ACols int
	BCols int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: a has %d words per row, b has %d", e.ACols, e.BCols)
}

// Unwrap returns packed.ErrContractViolation.
func (e *DimensionMismatchError) Unwrap() error { return packed.ErrContractViolation }
