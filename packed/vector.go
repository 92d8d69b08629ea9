package packed

// Vector is a borrowed view of one row of a Matrix. It shares the matrix
// metadata and buffer and owns nothing.
//
// A view is tied to the matrix generation it was created in. After Resize or
// Release every accessor panics with ErrStaleView; Valid reports the state
// without panicking.
type Vector struct {
	m   *Matrix
	row int
	gen uint64
}

// Valid reports whether the view still refers to live matrix storage.
func (v Vector) Valid() bool {
	return v.m != nil && v.gen == v.m.gen && v.row < v.m.rows
}

func (v Vector) mustBeValid() {
	if !v.Valid() {
		panic(ErrStaleView)
	}
}

// Dim returns the number of words in the row.
func (v Vector) Dim() int {
	v.mustBeValid()
	return v.m.cols
}

// Row returns the row index of the view within its matrix.
func (v Vector) Row() int { return v.row }

// QuantBits returns the quantization width of the owning matrix.
func (v Vector) QuantBits() int {
	v.mustBeValid()
	return v.m.quantBits
}

// AlignBits returns the lane width of the owning matrix.
func (v Vector) AlignBits() int {
	v.mustBeValid()
	return v.m.alignBits
}

// LanesPerWord returns the number of values per word.
func (v Vector) LanesPerWord() int {
	v.mustBeValid()
	return v.m.LanesPerWord()
}

// Scale returns the reconstruction scale of the owning matrix.
func (v Vector) Scale() float32 {
	v.mustBeValid()
	return v.m.scale
}

// At returns word i of the row.
func (v Vector) At(i int) uint64 {
	v.mustBeValid()
	return v.m.data[v.m.index("Vector.At", v.row, i)]
}

// SetAt stores word i of the row.
func (v Vector) SetAt(i int, w uint64) {
	v.mustBeValid()
	v.m.data[v.m.index("Vector.SetAt", v.row, i)] = w
}

// Words returns the row's words. The slice aliases the matrix buffer and is
// subject to the same lifetime as the view.
func (v Vector) Words() []uint64 {
	v.mustBeValid()
	return v.m.RowWords(v.row)
}

// Set writes value into every word of the row.
func (v Vector) Set(value uint64) {
	words := v.Words()
	for i := range words {
		words[i] = value
	}
}

// CopyFrom copies the words of src into the row.
func (v Vector) CopyFrom(src Vector) error {
	dst, s := v.Words(), src.Words()
	if len(dst) != len(s) {
		return contractf("Vector.CopyFrom", "dim %d does not match %d", len(s), len(dst))
	}
	copy(dst, s)
	return nil
}
