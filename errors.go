package bitmat

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bitmat/blobstore"
	"github.com/hupe1980/bitmat/gemm"
	"github.com/hupe1980/bitmat/kernel"
	"github.com/hupe1980/bitmat/packed"
)

var (
	// ErrContractViolation is returned when arguments violate an operation's preconditions.
	ErrContractViolation = errors.New("contract violation")
	// ErrOutOfMemory is returned when a matrix cannot be allocated.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrMalformed is returned for corrupt or unparsable serialized data.
	ErrMalformed = errors.New("malformed data")
	// ErrUnsupported is returned for layout combinations without a kernel.
	ErrUnsupported = errors.New("unsupported combination")
	// ErrOutOfDomain is returned when a value cannot be quantized under OverflowError.
	ErrOutOfDomain = errors.New("value out of quantization domain")
	// ErrNotFound is returned when a named matrix does not exist.
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("engine closed")
	// ErrNoStore is returned by persistence operations without a blob store.
	ErrNoStore = errors.New("no blob store configured")
)

// ErrDimensionMismatch indicates operands with different words per row.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	ACols int
	BCols int
	cause error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: a has %d words per row, b has %d", e.ACols, e.BCols)
}

func (e *ErrDimensionMismatch) Unwrap() []error {
	return []error{ErrContractViolation, e.cause}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *gemm.DimensionMismatchError
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{ACols: dm.ACols, BCols: dm.BCols, cause: err}
	}

	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, kernel.ErrUnsupported):
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	case errors.Is(err, packed.ErrOutOfDomain):
		return fmt.Errorf("%w: %w", ErrOutOfDomain, err)
	case errors.Is(err, packed.ErrOutOfMemory):
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	case errors.Is(err, packed.ErrMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, packed.ErrContractViolation):
		return fmt.Errorf("%w: %w", ErrContractViolation, err)
	}
	return err
}
