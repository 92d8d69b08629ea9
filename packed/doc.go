// Package packed implements bit-packed quantized matrices.
//
// A Matrix stores rows of 64-bit words. Each word holds LanesPerWord
// consecutive quantized values, AlignBits wide each, with the first value in
// the most significant lane. Rows are padded to a 64-byte boundary; the
// padding is only visible through Stride.
//
// # Quantization
//
//	a, err := packed.Quantize(src, 8, 8)   // 8-bit magnitudes, 8 lanes per word
//	w, err := packed.QuantizeSign(weights, 8) // 1-bit signs in 8-bit lanes
//
// Values are mapped with q = round(x * (2^QuantBits - 1)) and reconstructed
// with q * Scale. One-bit matrices reconstruct symmetrically: lane 1 is
// +Scale, lane 0 is -Scale.
//
// # Row Views
//
// Row returns a Vector, a borrowed view of one row. Resize and Release
// invalidate every outstanding view; using a stale view panics with
// ErrStaleView.
//
// # Serialization
//
// WriteBinary/ReadBinary and WriteText/ReadText implement the "BM" matrix
// formats. Both carry QuantBits, AlignBits and Scale next to the words.
package packed
