package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hupe1980/bitmat/blobstore"
	"github.com/hupe1980/bitmat/internal/cache"
	"github.com/hupe1980/bitmat/packed"
	"github.com/hupe1980/bitmat/resource"
)

// Store saves and loads enveloped matrices in a BlobStore.
// It is safe for concurrent use when the underlying store is.
type Store struct {
	blobs       blobstore.BlobStore
	cached      *blobstore.CachingStore
	compression Compression
	rc          *resource.Controller
	logger      *slog.Logger
}

// NewStore creates a Store on blobs.
func NewStore(blobs blobstore.BlobStore, opts ...Option) *Store {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{
		blobs:       blobs,
		compression: o.compression,
		rc:          o.controller,
		logger:      o.logger,
	}
	if o.cacheBytes > 0 {
		s.cached = blobstore.NewCachingStore(blobs, cache.NewLRU(o.cacheBytes, o.controller))
		s.blobs = s.cached
	}
	return s
}

// Save encodes m and writes it under name, replacing any previous blob.
func (s *Store) Save(ctx context.Context, name string, m *packed.Matrix) error {
	start := time.Now()

	data, err := Encode(m, s.compression)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, name, data); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}

	if s.logger != nil {
		s.logger.Debug("matrix saved",
			"name", name,
			"rows", m.Rows(),
			"cols", m.Cols(),
			"bytes", len(data),
			"compression", s.compression.String(),
			"duration", time.Since(start),
		)
	}
	return nil
}

// Load reads and verifies the matrix stored under name.
func (s *Store) Load(ctx context.Context, name string) (*packed.Matrix, error) {
	start := time.Now()

	data, err := blobstore.Get(ctx, s.blobs, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
		return nil, err
	}

	m, err := Decode(data, packed.WithController(s.rc))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	if s.logger != nil {
		s.logger.Debug("matrix loaded",
			"name", name,
			"rows", m.Rows(),
			"cols", m.Cols(),
			"bytes", len(data),
			"duration", time.Since(start),
		)
	}
	return m, nil
}

// Stat reads only the envelope header of name.
func (s *Store) Stat(ctx context.Context, name string) (Header, error) {
	b, err := s.blobs.Open(ctx, name)
	if err != nil {
		return Header{}, fmt.Errorf("stat %s: %w", name, err)
	}
	defer b.Close()

	if b.Size() < HeaderSize {
		return Header{}, fmt.Errorf("stat %s: %w", name, ErrTruncated)
	}

	buf := make([]byte, HeaderSize)
	if _, err := b.ReadAt(ctx, buf, 0); err != nil && !errors.Is(err, io.EOF) {
		return Header{}, fmt.Errorf("stat %s: %w", name, err)
	}
	h, err := ParseHeader(buf)
	if err != nil {
		return Header{}, fmt.Errorf("stat %s: %w", name, err)
	}
	return h, nil
}

// Delete removes name.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.blobs.Delete(ctx, name)
}

// List returns the stored names starting with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	return s.blobs.List(ctx, prefix)
}

// Export copies the envelope stored under name to w, rate-limited by the
// controller.
func (s *Store) Export(ctx context.Context, w io.Writer, name string) (int64, error) {
	data, err := blobstore.Get(ctx, s.blobs, name)
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", name, err)
	}
	n, err := io.Copy(resource.NewRateLimitedWriter(ctx, w, s.rc), bytes.NewReader(data))
	if err != nil {
		return n, fmt.Errorf("export %s: %w", name, err)
	}
	return n, nil
}

// Import reads an envelope from r, verifies it and stores it under name.
// Nothing is written if verification fails.
func (s *Store) Import(ctx context.Context, r io.Reader, name string) (Header, error) {
	data, err := io.ReadAll(resource.NewRateLimitedReader(ctx, r, s.rc))
	if err != nil {
		return Header{}, fmt.Errorf("import %s: %w", name, err)
	}
	_, h, err := Unwrap(data)
	if err != nil {
		return Header{}, fmt.Errorf("import %s: %w", name, err)
	}
	if err := s.blobs.Put(ctx, name, data); err != nil {
		return Header{}, fmt.Errorf("import %s: %w", name, err)
	}
	return h, nil
}

// CacheStats returns the blob cache counters; both are zero without WithCache.
func (s *Store) CacheStats() (hits, misses int64) {
	if s.cached == nil {
		return 0, 0
	}
	return s.cached.Stats()
}
