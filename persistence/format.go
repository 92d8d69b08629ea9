package persistence

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bitmat/packed"
)

// Magic identifies an envelope.
const Magic = "BMX1"

// Version is the current envelope version.
const Version uint8 = 1

// HeaderSize is the encoded envelope header length in bytes.
const HeaderSize = 4 + 1 + 1 + 2 + 8 + 4

var (
	// ErrInvalidMagic is returned when data does not start with Magic.
	ErrInvalidMagic = fmt.Errorf("%w: invalid magic number", packed.ErrMalformed)
	// ErrInvalidVersion is returned for envelopes from a newer writer.
	ErrInvalidVersion = fmt.Errorf("%w: unsupported version", packed.ErrMalformed)
	// ErrInvalidCompression is returned for unknown compression codes.
	ErrInvalidCompression = fmt.Errorf("%w: unknown compression", packed.ErrMalformed)
	// ErrTruncated is returned when the payload is shorter than the header claims.
	ErrTruncated = fmt.Errorf("%w: truncated envelope", packed.ErrMalformed)
)

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// Unwrap classifies the mismatch as malformed data.
func (e *ChecksumMismatchError) Unwrap() error { return packed.ErrMalformed }

// IsChecksumMismatch returns true if err is a checksum mismatch error.
func IsChecksumMismatch(err error) bool {
	var cm *ChecksumMismatchError
	return errors.As(err, &cm)
}
