package benchmark_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/bitmat/blobstore"
	"github.com/hupe1980/bitmat/packed"
	"github.com/hupe1980/bitmat/persistence"
	"github.com/hupe1980/bitmat/testutil"
)

var codecs = []persistence.Compression{
	persistence.CompressionNone,
	persistence.CompressionLZ4,
	persistence.CompressionZSTD,
}

func benchMatrix(b *testing.B, rows, elems int) *packed.Matrix {
	b.Helper()
	m, err := packed.Quantize(testutil.NewRNG(1).GridDense(rows, elems, 4), 4, 8)
	if err != nil {
		b.Fatal(err)
	}
	return m
}

func BenchmarkEncode(b *testing.B) {
	m := benchMatrix(b, 512, 4096)

	for _, c := range codecs {
		b.Run(c.String()+"/"+formatBytes(int(m.BinarySize())), func(b *testing.B) {
			b.SetBytes(m.BinarySize())
			BenchLoop(b, func() {
				if _, err := persistence.Encode(m, c); err != nil {
					b.Fatal(err)
				}
			})
		})
	}
}

func BenchmarkDecode(b *testing.B) {
	m := benchMatrix(b, 512, 4096)

	for _, c := range codecs {
		data, err := persistence.Encode(m, c)
		if err != nil {
			b.Fatal(err)
		}

		b.Run(c.String(), func(b *testing.B) {
			b.SetBytes(m.BinarySize())
			b.ReportMetric(float64(len(data))/float64(m.BinarySize()), "ratio")
			BenchLoop(b, func() {
				out, err := persistence.Decode(data)
				if err != nil {
					b.Fatal(err)
				}
				out.Release()
			})
		})
	}
}

func BenchmarkStore_Load(b *testing.B) {
	ctx := context.Background()
	m := benchMatrix(b, 256, 4096)

	backends := map[string]blobstore.BlobStore{
		"memory": blobstore.NewMemoryStore(),
		"local":  blobstore.NewLocalStore(filepath.Join(b.TempDir(), "blobs")),
	}

	for name, blobs := range backends {
		for _, cacheBytes := range []int64{0, 64 << 20} {
			store := persistence.NewStore(blobs,
				persistence.WithCompression(persistence.CompressionLZ4),
				persistence.WithCache(cacheBytes),
			)
			if err := store.Save(ctx, "m", m); err != nil {
				b.Fatal(err)
			}

			label := name
			if cacheBytes > 0 {
				label += "/cached"
			}
			b.Run(label, func(b *testing.B) {
				BenchLoop(b, func() {
					out, err := store.Load(ctx, "m")
					if err != nil {
						b.Fatal(err)
					}
					out.Release()
				})
			})
		}
	}
}

func BenchmarkWriteFile(b *testing.B) {
	m := benchMatrix(b, 256, 4096)
	path := filepath.Join(b.TempDir(), "m.bm")

	for _, binary := range []bool{true, false} {
		label := "text"
		if binary {
			label = "binary"
		}
		b.Run(label, func(b *testing.B) {
			BenchLoop(b, func() {
				if err := persistence.WriteFile(path, m, binary); err != nil {
					b.Fatal(err)
				}
			})
		})
	}
}
