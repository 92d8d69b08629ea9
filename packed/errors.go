package packed

import (
	"errors"
	"fmt"
)

var (
	// ErrContractViolation is returned (or panicked with, for accessors) when a
	// caller breaks a precondition: negative dimensions, an invalid layout, an
	// index out of range or mismatched operand shapes.
	ErrContractViolation = errors.New("contract violation")

	// ErrOutOfMemory is returned when a packed buffer cannot be allocated.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrMalformed is returned when serialized matrix data cannot be decoded.
	ErrMalformed = errors.New("malformed matrix data")

	// ErrOutOfDomain is returned by OverflowError quantization for values that
	// do not fit the lane range.
	ErrOutOfDomain = errors.New("value outside quantization domain")

	// ErrStaleView is the panic value for accesses through a Vector whose
	// matrix was resized or released.
	ErrStaleView = errors.New("stale packed vector view")
)

// ContractError describes a violated precondition.
type ContractError struct {
	Op  string
	Msg string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrContractViolation, e.Op, e.Msg)
}

func (e *ContractError) Unwrap() error { return ErrContractViolation }

func contractf(op, format string, args ...any) *ContractError {
	return &ContractError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// DomainError reports a source value whose quantized integer does not fit
// into [0, 2^QuantBits-1].
type DomainError struct {
	Row, Col  int
	Value     float64
	QuantBits int
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: value %g at (%d, %d) does not fit %d bits", ErrOutOfDomain, e.Value, e.Row, e.Col, e.QuantBits)
}

func (e *DomainError) Unwrap() error { return ErrOutOfDomain }

// ParseError identifies the offending token and byte offset of malformed input.
type ParseError struct {
	Offset int64
	Token  string
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("%s at offset %d: %s", ErrMalformed, e.Offset, e.Msg)
	}
	return fmt.Sprintf("%s at offset %d: %s (token %q)", ErrMalformed, e.Offset, e.Msg, e.Token)
}

func (e *ParseError) Unwrap() error { return ErrMalformed }
