package packed

import (
	"fmt"
	"math"

	"github.com/hupe1980/bitmat/internal/mem"
	"github.com/hupe1980/bitmat/kernel"
	"github.com/hupe1980/bitmat/resource"
)

// Matrix is a row-major grid of packed 64-bit words plus the metadata needed
// to interpret them.
//
// A Matrix is not safe for concurrent mutation. Concurrent readers are fine.
type Matrix struct {
	rows   int
	cols   int // words per row
	stride int // words between row starts
	data   []uint64

	quantBits int
	alignBits int
	scale     float32

	// gen is bumped by Resize and Release; views remember the value they saw.
	gen uint64

	rc       *resource.Controller
	reserved int64
}

// New allocates a zeroed rows×cols matrix of words.
//
// Without options the matrix uses the raw layout (QuantBits 0, AlignBits 64,
// Scale 1). A zero dimension yields an empty matrix that owns no buffer.
func New(rows, cols int, opts ...Option) (*Matrix, error) {
	o := applyOptions(opts)

	if err := validateLayout("New", o.quantBits, o.alignBits); err != nil {
		return nil, err
	}

	m := &Matrix{
		quantBits: o.quantBits,
		alignBits: o.alignBits,
		scale:     o.scale,
		rc:        o.controller,
	}
	if err := m.alloc("New", rows, cols); err != nil {
		return nil, err
	}
	return m, nil
}

func validateLayout(op string, quantBits, alignBits int) error {
	if alignBits <= 0 || alignBits > kernel.WordBits || kernel.WordBits%alignBits != 0 {
		return contractf(op, "align bits %d must divide %d", alignBits, kernel.WordBits)
	}
	if quantBits < 0 || quantBits > alignBits {
		return contractf(op, "quant bits %d must be in [0, align bits %d]", quantBits, alignBits)
	}
	return nil
}

func (m *Matrix) alloc(op string, rows, cols int) error {
	if rows < 0 || cols < 0 {
		return contractf(op, "negative dimensions %d×%d", rows, cols)
	}
	if rows == 0 || cols == 0 {
		m.rows, m.cols, m.stride, m.data = 0, 0, 0, nil
		return nil
	}

	stride := mem.PaddedStride(cols)
	if rows > math.MaxInt/stride || rows*stride > math.MaxInt64/8 {
		return fmt.Errorf("%w: %d×%d words: %w", ErrOutOfMemory, rows, stride, mem.ErrAllocTooLarge)
	}
	n := rows * stride
	bytes := int64(n) * 8

	if err := m.rc.AcquireMemory(bytes); err != nil {
		return fmt.Errorf("%w: %d bytes: %w", ErrOutOfMemory, bytes, err)
	}

	data, err := mem.AllocAlignedUint64(n)
	if err != nil {
		m.rc.ReleaseMemory(bytes)
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}

	m.rows, m.cols, m.stride, m.data = rows, cols, stride, data
	m.reserved = bytes
	return nil
}

// Resize changes the shape to rows×cols. A request for the current shape
// zero-fills the existing buffer; any other shape releases the buffer and
// allocates a new one. Outstanding views become stale either way.
//
// When the new allocation fails the matrix is left empty.
func (m *Matrix) Resize(rows, cols int) error {
	if rows < 0 || cols < 0 {
		return contractf("Resize", "negative dimensions %d×%d", rows, cols)
	}

	if rows == m.rows && cols == m.cols {
		clear(m.data)
		m.gen++
		return nil
	}

	m.Release()
	return m.alloc("Resize", rows, cols)
}

// Release frees the buffer and leaves an empty 0×0 matrix that keeps its
// layout and scale. Outstanding views become stale.
func (m *Matrix) Release() {
	if m.data != nil {
		m.rc.ReleaseMemory(m.reserved)
	}
	m.rows, m.cols, m.stride, m.data = 0, 0, 0, nil
	m.reserved = 0
	m.gen++
}

// Set writes value into every word of the matrix.
func (m *Matrix) Set(value uint64) {
	for r := 0; r < m.rows; r++ {
		row := m.data[r*m.stride : r*m.stride+m.cols]
		for c := range row {
			row[c] = value
		}
	}
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of words per row.
func (m *Matrix) Cols() int { return m.cols }

// Stride returns the distance in words between the starts of two rows.
func (m *Matrix) Stride() int { return m.stride }

// QuantBits returns the number of bits per quantized value.
func (m *Matrix) QuantBits() int { return m.quantBits }

// AlignBits returns the lane width in bits.
func (m *Matrix) AlignBits() int { return m.alignBits }

// LanesPerWord returns the number of values packed into one word.
func (m *Matrix) LanesPerWord() int { return kernel.WordBits / m.alignBits }

// Scale returns the reconstruction scale.
func (m *Matrix) Scale() float32 { return m.scale }

// SetScale overrides the reconstruction scale.
func (m *Matrix) SetScale(scale float32) { m.scale = scale }

// IsEmpty reports whether the matrix has no words.
func (m *Matrix) IsEmpty() bool { return m.rows == 0 || m.cols == 0 }

// Elems returns the number of values per row, Cols()*LanesPerWord().
func (m *Matrix) Elems() int { return m.cols * m.LanesPerWord() }

// SizeBytes returns the size of the owned buffer including row padding.
func (m *Matrix) SizeBytes() int64 { return int64(len(m.data)) * 8 }

func (m *Matrix) index(op string, r, c int) int {
	if uint(r) >= uint(m.rows) || uint(c) >= uint(m.cols) {
		panic(contractf(op, "index (%d, %d) out of range for %d×%d", r, c, m.rows, m.cols))
	}
	return r*m.stride + c
}

// At returns the word at row r, column c.
func (m *Matrix) At(r, c int) uint64 {
	return m.data[m.index("At", r, c)]
}

// SetAt stores a word at row r, column c.
func (m *Matrix) SetAt(r, c int, v uint64) {
	m.data[m.index("SetAt", r, c)] = v
}

// Lane returns the raw lane value of element i of row r.
func (m *Matrix) Lane(r, i int) uint64 {
	lanes := m.LanesPerWord()
	if uint(i) >= uint(m.cols*lanes) {
		panic(contractf("Lane", "element %d out of range for %d values per row", i, m.cols*lanes))
	}
	w := m.data[m.index("Lane", r, i/lanes)]
	shift := m.alignBits * (lanes - 1 - i%lanes)
	return (w >> shift) & laneMask(m.alignBits)
}

// Value returns the reconstructed real value of element i of row r.
func (m *Matrix) Value(r, i int) float64 {
	return reconstruct(m.Lane(r, i), m.quantBits, m.scale)
}

// RowWords returns the logical words of row r. The slice aliases the matrix
// buffer and must not be retained across Resize or Release.
func (m *Matrix) RowWords(r int) []uint64 {
	if uint(r) >= uint(m.rows) {
		panic(contractf("RowWords", "row %d out of range for %d rows", r, m.rows))
	}
	off := r * m.stride
	return m.data[off : off+m.cols : off+m.cols]
}

// Row returns a view of row r.
func (m *Matrix) Row(r int) Vector {
	if uint(r) >= uint(m.rows) {
		panic(contractf("Row", "row %d out of range for %d rows", r, m.rows))
	}
	return Vector{m: m, row: r, gen: m.gen}
}

// CopyFrom copies the words of src into m. Both must have the same shape;
// layout and scale of m are left untouched.
func (m *Matrix) CopyFrom(src *Matrix) error {
	if src == m {
		return nil
	}
	if src.rows != m.rows || src.cols != m.cols {
		return contractf("CopyFrom", "shape %d×%d does not match %d×%d", src.rows, src.cols, m.rows, m.cols)
	}
	for r := 0; r < m.rows; r++ {
		copy(m.RowWords(r), src.RowWords(r))
	}
	return nil
}

// Clone returns a deep copy of m charged to the same controller.
func (m *Matrix) Clone() (*Matrix, error) {
	c, err := New(m.rows, m.cols,
		WithLayout(m.quantBits, m.alignBits),
		WithScale(m.scale),
		WithController(m.rc),
	)
	if err != nil {
		return nil, err
	}
	if err := c.CopyFrom(m); err != nil {
		c.Release()
		return nil, err
	}
	return c, nil
}

// Equal reports whether both matrices have the same shape, layout, scale and words.
func (m *Matrix) Equal(o *Matrix) bool {
	if m == o {
		return true
	}
	if m == nil || o == nil {
		return false
	}
	if m.rows != o.rows || m.cols != o.cols ||
		m.quantBits != o.quantBits || m.alignBits != o.alignBits ||
		math.Float32bits(m.scale) != math.Float32bits(o.scale) {
		return false
	}
	for r := 0; r < m.rows; r++ {
		a, b := m.RowWords(r), o.RowWords(r)
		for c := range a {
			if a[c] != b[c] {
				return false
			}
		}
	}
	return true
}

func laneMask(alignBits int) uint64 {
	if alignBits >= kernel.WordBits {
		return math.MaxUint64
	}
	return 1<<alignBits - 1
}

func reconstruct(lane uint64, quantBits int, scale float32) float64 {
	if quantBits == 1 {
		if lane == 1 {
			return float64(scale)
		}
		return -float64(scale)
	}
	return float64(lane) * float64(scale)
}
