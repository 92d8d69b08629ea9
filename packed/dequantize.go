package packed

import "gonum.org/v1/gonum/mat"

// Dequantize reconstructs m into a new dense matrix of
// Rows() × Cols()*LanesPerWord() values. An empty m yields an empty matrix.
func Dequantize(m *Matrix) (*mat.Dense, error) {
	if m.IsEmpty() {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(m.rows, m.Elems(), nil)
	if err := m.ToDense(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToDense writes the reconstructed values of m into out, which must already
// have shape Rows() × Cols()*LanesPerWord().
//
// One-bit matrices reconstruct lane 1 as +Scale and lane 0 as -Scale; wider
// ones reconstruct lane*Scale.
func (m *Matrix) ToDense(out *mat.Dense) error {
	r, c := out.Dims()
	if r != m.rows || c != m.Elems() {
		return contractf("ToDense", "output is %d×%d, want %d×%d", r, c, m.rows, m.Elems())
	}
	if m.IsEmpty() {
		return nil
	}

	lanes := m.LanesPerWord()
	lane := make([]uint64, lanes)
	for i := 0; i < m.rows; i++ {
		dst := out.RawRowView(i)
		for j, w := range m.RowWords(i) {
			UnpackWord(w, m.alignBits, lane)
			for k, v := range lane {
				dst[j*lanes+k] = reconstruct(v, m.quantBits, m.scale)
			}
		}
	}
	return nil
}
