package packed

import (
	"math"

	"github.com/hupe1980/bitmat/kernel"
	"gonum.org/v1/gonum/mat"
)

// MaxQuantBits is the widest supported quantization.
const MaxQuantBits = 32

// ScaleFor returns the reconstruction scale 1/(2^quantBits-1).
func ScaleFor(quantBits int) float32 {
	return float32(1 / (math.Exp2(float64(quantBits)) - 1))
}

// Quantize packs src into a new matrix with the given layout.
//
// Each group of LanesPerWord consecutive values of a source row becomes one
// word. A value x is mapped to round(x * (2^quantBits-1)) and the group is
// accumulated as acc = acc<<alignBits + q, so the first value lands in the
// most significant lane. The source column count must be a multiple of
// LanesPerWord; there is no partial final word.
//
// Out-of-range integers are handled per WithOverflow (clamped by default).
func Quantize(src mat.Matrix, quantBits, alignBits int, opts ...Option) (*Matrix, error) {
	o := applyOptions(opts)

	if err := validateQuantLayout("Quantize", quantBits, alignBits); err != nil {
		return nil, err
	}

	m := &Matrix{
		quantBits: quantBits,
		alignBits: alignBits,
		scale:     ScaleFor(quantBits),
		rc:        o.controller,
	}
	if err := m.quantize("Quantize", src, o.overflow, valueQuantizer(quantBits)); err != nil {
		m.Release()
		return nil, err
	}
	return m, nil
}

// QuantizeBits quantizes src with one lane per quantBits (AlignBits == QuantBits).
func QuantizeBits(src mat.Matrix, quantBits int, opts ...Option) (*Matrix, error) {
	return Quantize(src, quantBits, quantBits, opts...)
}

// QuantizeSign packs the signs of src as 1-bit values: x >= 0 becomes 1 and
// reconstructs to +1, anything else becomes 0 and reconstructs to -1.
//
// NaN is out of domain; it is rejected under OverflowError and mapped to 0
// otherwise.
func QuantizeSign(src mat.Matrix, alignBits int, opts ...Option) (*Matrix, error) {
	o := applyOptions(opts)

	if err := validateQuantLayout("QuantizeSign", 1, alignBits); err != nil {
		return nil, err
	}

	m := &Matrix{
		quantBits: 1,
		alignBits: alignBits,
		scale:     1,
		rc:        o.controller,
	}
	if err := m.quantize("QuantizeSign", src, o.overflow, signQuantizer); err != nil {
		m.Release()
		return nil, err
	}
	return m, nil
}

// Quantize re-quantizes src into m using m's own layout, resizing m when the
// shape differs. The scale is reset to 1/(2^QuantBits-1).
//
// Under OverflowError the source is validated before m is touched.
func (m *Matrix) Quantize(src mat.Matrix, opts ...Option) error {
	o := applyOptions(opts)

	if err := validateQuantLayout("Matrix.Quantize", m.quantBits, m.alignBits); err != nil {
		return err
	}
	if err := m.quantize("Matrix.Quantize", src, o.overflow, valueQuantizer(m.quantBits)); err != nil {
		return err
	}
	m.scale = ScaleFor(m.quantBits)
	return nil
}

func validateQuantLayout(op string, quantBits, alignBits int) error {
	if quantBits < 1 || quantBits > MaxQuantBits {
		return contractf(op, "quant bits %d must be in [1, %d]", quantBits, MaxQuantBits)
	}
	if alignBits <= 0 || alignBits > kernel.WordBits || kernel.WordBits%alignBits != 0 {
		return contractf(op, "align bits %d must divide %d", alignBits, kernel.WordBits)
	}
	if alignBits < quantBits {
		return contractf(op, "align bits %d smaller than quant bits %d", alignBits, quantBits)
	}
	return nil
}

// quantizer maps one source value to its rounded integer, before any
// overflow policy is applied. ok is false for values without an integer
// image (NaN).
type quantizer func(x float64) (q float64, ok bool)

func valueQuantizer(quantBits int) quantizer {
	levels := math.Exp2(float64(quantBits)) - 1
	return func(x float64) (float64, bool) {
		if math.IsNaN(x) {
			return 0, false
		}
		return math.Round(x * levels), true
	}
}

func signQuantizer(x float64) (float64, bool) {
	if math.IsNaN(x) {
		return 0, false
	}
	if x >= 0 {
		return 1, true
	}
	return 0, true
}

func (m *Matrix) quantize(op string, src mat.Matrix, policy OverflowPolicy, qf quantizer) error {
	if src == nil {
		return contractf(op, "nil source matrix")
	}

	rows, elems := src.Dims()
	lanes := kernel.WordBits / m.alignBits
	if elems%lanes != 0 {
		return contractf(op, "%d source columns are not a multiple of %d lanes", elems, lanes)
	}
	cols := elems / lanes

	maxQ := math.Exp2(float64(m.quantBits)) - 1

	if policy == OverflowError {
		if err := checkDomain(src, rows, elems, maxQ, m.quantBits, qf); err != nil {
			return err
		}
	}

	if rows != m.rows || cols != m.cols {
		if err := m.Resize(rows, cols); err != nil {
			return err
		}
	}
	if m.IsEmpty() {
		return nil
	}

	raw, _ := src.(mat.RawRowViewer)
	buf := make([]float64, elems)
	shift := uint(m.alignBits)

	for r := 0; r < rows; r++ {
		values := sourceRow(src, raw, r, buf)
		row := m.RowWords(r)
		for c := range row {
			var acc uint64
			for _, x := range values[c*lanes : c*lanes+lanes] {
				q, _ := qf(x)
				if policy == OverflowUnchecked {
					acc = acc<<shift + uint64(saturateInt64(q))
				} else {
					acc = acc<<shift + uint64(clampFloat(q, maxQ))
				}
			}
			row[c] = acc
		}
	}
	return nil
}

func checkDomain(src mat.Matrix, rows, elems int, maxQ float64, quantBits int, qf quantizer) error {
	raw, _ := src.(mat.RawRowViewer)
	buf := make([]float64, elems)
	for r := 0; r < rows; r++ {
		for c, x := range sourceRow(src, raw, r, buf) {
			q, ok := qf(x)
			if !ok || q < 0 || q > maxQ {
				return &DomainError{Row: r, Col: c, Value: x, QuantBits: quantBits}
			}
		}
	}
	return nil
}

func sourceRow(src mat.Matrix, raw mat.RawRowViewer, r int, buf []float64) []float64 {
	if raw != nil {
		return raw.RawRowView(r)
	}
	for c := range buf {
		buf[c] = src.At(r, c)
	}
	return buf
}

func clampFloat(q, maxQ float64) float64 {
	switch {
	case !(q > 0): // also NaN
		return 0
	case q > maxQ:
		return maxQ
	default:
		return q
	}
}

// saturateInt64 converts q to int64, pinning values outside the int64 range
// so the conversion is well defined.
func saturateInt64(q float64) int64 {
	switch {
	case math.IsNaN(q):
		return 0
	case q >= math.MaxInt64:
		return math.MaxInt64
	case q <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(q)
	}
}

// PackWord packs up to 64/alignBits lane values into one word, first value
// in the most significant lane. Fewer values leave the remaining low lanes
// zero. Values are not masked.
func PackWord(values []uint64, alignBits int) uint64 {
	lanes := lanesFor("PackWord", alignBits)
	if len(values) > lanes {
		panic(contractf("PackWord", "%d values exceed %d lanes", len(values), lanes))
	}
	shift := uint(alignBits)
	var acc uint64
	for _, v := range values {
		acc = acc<<shift + v
	}
	return acc << (shift * uint(lanes-len(values)))
}

// UnpackWord writes the 64/alignBits lanes of word into dst, most significant
// lane first. dst must hold at least that many values.
func UnpackWord(word uint64, alignBits int, dst []uint64) {
	lanes := lanesFor("UnpackWord", alignBits)
	if len(dst) < lanes {
		panic(contractf("UnpackWord", "dst holds %d values, need %d", len(dst), lanes))
	}
	mask := laneMask(alignBits)
	for i := 0; i < lanes; i++ {
		dst[i] = (word >> (alignBits * (lanes - 1 - i))) & mask
	}
}

func lanesFor(op string, alignBits int) int {
	if alignBits <= 0 || alignBits > kernel.WordBits || kernel.WordBits%alignBits != 0 {
		panic(contractf(op, "align bits %d must divide %d", alignBits, kernel.WordBits))
	}
	return kernel.WordBits / alignBits
}
