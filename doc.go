// Package bitmat multiplies bit-packed quantized matrices.
//
// Activations are quantized to a few bits per element, weights to their
// signs, and both are packed into 64-bit words. The product of a magnitude
// row and a sign row is computed with popcounts over bit planes instead of
// floating point multiplies.
//
// # Quick Start
//
//	ctx := context.Background()
//	eng, _ := bitmat.New(bitmat.WithWorkers(0))
//	defer eng.Close()
//
//	a, _ := eng.Quantize(ctx, activations, 8, 8) // values in [0, 1]
//	b, _ := eng.QuantizeSign(ctx, weights, 8)    // sign(w) in {-1, +1}
//	out, _ := eng.Multiply(ctx, a, b)            // ≈ activations · sign(weights)ᵀ
//
// # Persistence
//
// With a blob store attached, matrices are saved in a checksummed envelope
// around the packed binary format:
//
//	eng, _ := bitmat.New(
//	    bitmat.WithBlobStore(blobstore.NewLocalStore("./models")),
//	    bitmat.WithCompression(persistence.CompressionZSTD),
//	)
//	_ = eng.Save(ctx, "layer0/weights", b)
//	b, _ = eng.Load(ctx, "layer0/weights")
//
// Cloud stores live in blobstore/s3 and blobstore/minio.
//
// # Packages
//
//   - packed: matrix storage, quantization and the binary/text formats
//   - kernel: popcount dot-product kernels with runtime dispatch
//   - gemm: the parallel matrix multiply
//   - persistence: envelopes, compression and matrix stores
//   - resource: memory, worker and IO budgets shared across packages
package bitmat
