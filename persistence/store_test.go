package persistence

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/hupe1980/bitmat/blobstore"
	"github.com/hupe1980/bitmat/packed"
	"github.com/hupe1980/bitmat/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()

	backends := map[string]blobstore.BlobStore{
		"memory": blobstore.NewMemoryStore(),
		"local":  blobstore.NewLocalStore(t.TempDir()),
	}

	for name, blobs := range backends {
		t.Run(name, func(t *testing.T) {
			s := NewStore(blobs, WithCompression(CompressionLZ4))
			m := fixture(t, 4, 64)

			require.NoError(t, s.Save(ctx, "layers/0.bmx", m))
			require.NoError(t, s.Save(ctx, "layers/1.bmx", sparse(t)))

			got, err := s.Load(ctx, "layers/0.bmx")
			require.NoError(t, err)
			assert.True(t, m.Equal(got))

			names, err := s.List(ctx, "layers/")
			require.NoError(t, err)
			assert.Equal(t, []string{"layers/0.bmx", "layers/1.bmx"}, names)

			h, err := s.Stat(ctx, "layers/1.bmx")
			require.NoError(t, err)
			assert.Equal(t, CompressionLZ4, h.Compression)

			require.NoError(t, s.Delete(ctx, "layers/0.bmx"))
			_, err = s.Load(ctx, "layers/0.bmx")
			assert.ErrorIs(t, err, blobstore.ErrNotFound)
		})
	}
}

func TestStore_Corrupt(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	s := NewStore(blobs)

	require.NoError(t, blobs.Put(ctx, "junk", []byte("not a matrix")))
	_, err := s.Load(ctx, "junk")
	require.ErrorIs(t, err, ErrInvalidMagic)
	require.ErrorIs(t, err, packed.ErrMalformed)

	require.NoError(t, blobs.Put(ctx, "short", []byte("BMX1")))
	_, err = s.Stat(ctx, "short")
	require.ErrorIs(t, err, ErrTruncated)
}

func TestStore_Cache(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	s := NewStore(blobstore.NewMemoryStore(), WithCache(1<<16), WithController(rc))

	m := fixture(t, 2, 32)
	require.NoError(t, s.Save(ctx, "m", m))

	for i := 0; i < 3; i++ {
		got, err := s.Load(ctx, "m")
		require.NoError(t, err)
		assert.True(t, m.Equal(got))
		got.Release()
	}

	hits, misses := s.CacheStats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
	// Only the cached envelope remains charged.
	assert.Positive(t, rc.MemoryUsage())

	// Saving invalidates the cached copy.
	m2 := fixture(t, 3, 32)
	require.NoError(t, s.Save(ctx, "m", m2))
	got, err := s.Load(ctx, "m")
	require.NoError(t, err)
	assert.True(t, m2.Equal(got))

	hits, misses = NewStore(blobstore.NewMemoryStore()).CacheStats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}

func TestStore_MemoryLimit(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	require.NoError(t, NewStore(blobs).Save(ctx, "m", fixture(t, 8, 64)))

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64})
	_, err := NewStore(blobs, WithController(rc)).Load(ctx, "m")
	require.ErrorIs(t, err, packed.ErrOutOfMemory)
}

func TestStore_ExportImport(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 30})
	src := NewStore(blobstore.NewMemoryStore(), WithCompression(CompressionZSTD), WithController(rc))
	dst := NewStore(blobstore.NewMemoryStore(), WithController(rc))

	m := sparse(t)
	require.NoError(t, src.Save(ctx, "w", m))

	var buf bytes.Buffer
	n, err := src.Export(ctx, &buf, "w")
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	corrupt := append([]byte(nil), buf.Bytes()...)
	corrupt[len(corrupt)-1] ^= 0xFF

	h, err := dst.Import(ctx, bytes.NewReader(buf.Bytes()), "w")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, h.Compression)

	got, err := dst.Load(ctx, "w")
	require.NoError(t, err)
	assert.True(t, m.Equal(got))

	_, err = dst.Import(ctx, bytes.NewReader(corrupt), "bad")
	require.ErrorIs(t, err, packed.ErrMalformed)
	names, err := dst.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"w"}, names)

	_, err = src.Export(ctx, &buf, "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewStore(blobstore.NewMemoryStore())
	assert.ErrorIs(t, s.Save(ctx, "m", fixture(t, 1, 8)), context.Canceled)
}

func TestStore_Logger(t *testing.T) {
	var sb strings.Builder
	logger := slog.New(slog.NewTextHandler(&sb, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := context.Background()
	s := NewStore(blobstore.NewMemoryStore(), WithLogger(logger))
	require.NoError(t, s.Save(ctx, "m", fixture(t, 1, 8)))
	_, err := s.Load(ctx, "m")
	require.NoError(t, err)

	assert.Contains(t, sb.String(), "matrix saved")
	assert.Contains(t, sb.String(), "matrix loaded")
	assert.Contains(t, sb.String(), "compression=none")
}
