package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/bitmat/internal/conv"
	"github.com/hupe1980/bitmat/internal/hash"
	"github.com/hupe1980/bitmat/packed"
)

// Header is the decoded envelope header.
type Header struct {
	Version     uint8
	Compression Compression
	RawLen      uint64
	Checksum    uint32
}

func (h Header) put(b []byte) {
	copy(b, Magic)
	b[4] = h.Version
	b[5] = byte(h.Compression)
	binary.LittleEndian.PutUint16(b[6:], 0)
	binary.LittleEndian.PutUint64(b[8:], h.RawLen)
	binary.LittleEndian.PutUint32(b[16:], h.Checksum)
}

// ParseHeader decodes the header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < len(Magic) || string(data[:len(Magic)]) != Magic {
		return Header{}, ErrInvalidMagic
	}
	if len(data) < HeaderSize {
		return Header{}, ErrTruncated
	}

	h := Header{
		Version:     data[4],
		Compression: Compression(data[5]),
		RawLen:      binary.LittleEndian.Uint64(data[8:]),
		Checksum:    binary.LittleEndian.Uint32(data[16:]),
	}

	if h.Version == 0 || h.Version > Version {
		return Header{}, fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version)
	}
	if h.Compression > CompressionZSTD {
		return Header{}, fmt.Errorf("%w: %d", ErrInvalidCompression, h.Compression)
	}
	if h.RawLen > math.MaxInt32*8 {
		return Header{}, fmt.Errorf("%w: raw length %d", packed.ErrMalformed, h.RawLen)
	}
	return h, nil
}

// Wrap builds an envelope around a binary matrix encoding.
func Wrap(raw []byte, c Compression) ([]byte, error) {
	return wrap(raw, hash.CRC32C(raw), c)
}

func wrap(raw []byte, checksum uint32, c Compression) ([]byte, error) {
	payload, used, err := compress(raw, c)
	if err != nil {
		return nil, err
	}

	out := make([]byte, HeaderSize+len(payload))
	Header{
		Version:     Version,
		Compression: used,
		RawLen:      uint64(len(raw)),
		Checksum:    checksum,
	}.put(out)
	copy(out[HeaderSize:], payload)
	return out, nil
}

// Unwrap verifies an envelope and returns the binary matrix encoding.
func Unwrap(data []byte) ([]byte, Header, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, Header{}, err
	}

	rawLen, err := conv.Uint64ToInt(h.RawLen)
	if err != nil {
		return nil, Header{}, fmt.Errorf("%w: raw length: %w", packed.ErrMalformed, err)
	}

	raw, err := decompress(data[HeaderSize:], h.Compression, rawLen)
	if err != nil {
		return nil, Header{}, err
	}

	if sum := hash.CRC32C(raw); sum != h.Checksum {
		return nil, Header{}, &ChecksumMismatchError{Expected: h.Checksum, Actual: sum}
	}
	return raw, h, nil
}

// Encode serializes m in the binary format and wraps it.
func Encode(m *packed.Matrix, c Compression) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(m.BinarySize()))

	sum := hash.NewCRC32C()
	if err := m.WriteBinary(io.MultiWriter(&buf, sum)); err != nil {
		return nil, err
	}
	return wrap(buf.Bytes(), sum.Sum32(), c)
}

// Decode verifies an envelope and decodes the matrix inside it. opts are
// passed to packed.ReadBinary.
func Decode(data []byte, opts ...packed.Option) (*packed.Matrix, error) {
	raw, _, err := Unwrap(data)
	if err != nil {
		return nil, err
	}

	m, err := packed.ReadBinary(bytes.NewReader(raw), opts...)
	if err != nil {
		return nil, err
	}
	if want := m.BinarySize(); want != int64(len(raw)) {
		m.Release()
		return nil, fmt.Errorf("%w: %d trailing bytes", packed.ErrMalformed, int64(len(raw))-want)
	}
	return m, nil
}
