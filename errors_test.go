package bitmat

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/hupe1980/bitmat/gemm"
	"github.com/hupe1980/bitmat/kernel"
	"github.com/hupe1980/bitmat/packed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.Same(t, io.EOF, translateError(io.EOF))

	tests := []struct {
		in   error
		want error
	}{
		{fmt.Errorf("open: %w", os.ErrNotExist), ErrNotFound},
		{&kernel.UnsupportedError{Config: kernel.Config{MagnitudeBits: 8, SignBits: 8, Lanes: 8}}, ErrUnsupported},
		{&packed.DomainError{Value: 2, QuantBits: 8}, ErrOutOfDomain},
		{packed.ErrOutOfMemory, ErrOutOfMemory},
		{&packed.ParseError{Token: "x"}, ErrMalformed},
		{packed.ErrContractViolation, ErrContractViolation},
	}
	for _, tt := range tests {
		got := translateError(tt.in)
		require.ErrorIs(t, got, tt.want, tt.in.Error())
		require.ErrorIs(t, got, tt.in)
	}

	dm := translateError(fmt.Errorf("multiply: %w", &gemm.DimensionMismatchError{ACols: 4, BCols: 2}))
	var e *ErrDimensionMismatch
	require.True(t, errors.As(dm, &e))
	assert.Equal(t, 4, e.ACols)
	assert.Equal(t, 2, e.BCols)
	assert.ErrorIs(t, dm, ErrContractViolation)
	assert.Equal(t, "dimension mismatch: a has 4 words per row, b has 2", e.Error())
}
