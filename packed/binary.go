package packed

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/bitmat/internal/conv"
)

// Tokens of the matrix formats.
const (
	binaryTag      = "BM"
	tokenQuantBits = "<QuantBits>"
	tokenAlignBits = "<AlignBits>"
	tokenScale     = "<Scale>"
)

// basicTypeSize prefixes every binary int32/float32 field.
const basicTypeSize = 4

// binaryHeaderSize is the length of everything WriteBinary emits before the words.
const binaryHeaderSize = len(binaryTag) + 1 + 2*(1+basicTypeSize) +
	len(tokenQuantBits) + 1 + 1 + basicTypeSize +
	len(tokenAlignBits) + 1 + 1 + basicTypeSize +
	len(tokenScale) + 1 + 1 + basicTypeSize

// BinarySize returns the number of bytes WriteBinary produces for m.
func (m *Matrix) BinarySize() int64 {
	return int64(binaryHeaderSize) + int64(m.rows)*int64(m.cols)*8
}

// WriteBinary encodes m in the binary matrix format:
//
//	"BM " 0x04 rows:int32 0x04 cols:int32
//	"<QuantBits> " 0x04 int32
//	"<AlignBits> " 0x04 int32
//	"<Scale> " 0x04 float32
//	rows*cols words, row-major, little endian
//
// Row padding is never written.
func (m *Matrix) WriteBinary(w io.Writer) error {
	rows, err := conv.IntToInt32(m.rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	cols, err := conv.IntToInt32(m.cols)
	if err != nil {
		return fmt.Errorf("write cols: %w", err)
	}

	e := &binaryEncoder{w: bufio.NewWriter(w)}
	e.token(binaryTag)
	e.int32(rows)
	e.int32(cols)
	e.token(tokenQuantBits)
	e.int32(int32(m.quantBits))
	e.token(tokenAlignBits)
	e.int32(int32(m.alignBits))
	e.token(tokenScale)
	e.float32(m.scale)

	if m.stride == m.cols {
		e.words(m.data)
	} else {
		for r := 0; r < m.rows; r++ {
			e.words(m.RowWords(r))
		}
	}

	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

type binaryEncoder struct {
	w   *bufio.Writer
	buf [8]byte
	err error
}

func (e *binaryEncoder) token(t string) {
	if e.err != nil {
		return
	}
	if _, e.err = e.w.WriteString(t); e.err == nil {
		e.err = e.w.WriteByte(' ')
	}
}

func (e *binaryEncoder) int32(v int32) {
	if e.err != nil {
		return
	}
	e.buf[0] = basicTypeSize
	binary.LittleEndian.PutUint32(e.buf[1:5], uint32(v))
	_, e.err = e.w.Write(e.buf[:5])
}

func (e *binaryEncoder) float32(v float32) {
	if e.err != nil {
		return
	}
	e.buf[0] = basicTypeSize
	binary.LittleEndian.PutUint32(e.buf[1:5], math.Float32bits(v))
	_, e.err = e.w.Write(e.buf[:5])
}

func (e *binaryEncoder) words(ws []uint64) {
	for _, w := range ws {
		if e.err != nil {
			return
		}
		binary.LittleEndian.PutUint64(e.buf[:], w)
		_, e.err = e.w.Write(e.buf[:])
	}
}

// ReadBinary decodes a matrix written by WriteBinary. Options may attach a
// resource controller to the result; layout options are ignored.
func ReadBinary(r io.Reader, opts ...Option) (*Matrix, error) {
	o := applyOptions(opts)
	d := &binaryDecoder{r: bufio.NewReader(r)}

	if err := d.expect(binaryTag); err != nil {
		return nil, err
	}
	rows, err := d.dim("rows")
	if err != nil {
		return nil, err
	}
	cols, err := d.dim("cols")
	if err != nil {
		return nil, err
	}
	quantBits, alignBits, scale, err := readHeader(d.expect, d.int32, d.float32)
	if err != nil {
		return nil, err
	}
	if err := validateLayout("ReadBinary", quantBits, alignBits); err != nil {
		return nil, d.fail("", err.Error())
	}

	// The header alone cannot size the allocation: the words are read
	// first, so a short stream fails before any matrix memory is reserved.
	raw, err := d.data(rows, cols)
	if err != nil {
		return nil, err
	}

	m := &Matrix{
		quantBits: quantBits,
		alignBits: alignBits,
		scale:     scale,
		rc:        o.controller,
	}
	if err := m.alloc("ReadBinary", rows, cols); err != nil {
		return nil, err
	}

	for i := 0; i < m.rows; i++ {
		row := m.RowWords(i)
		src := raw[i*m.cols*8:]
		for c := range row {
			row[c] = binary.LittleEndian.Uint64(src[c*8:])
		}
	}
	return m, nil
}

// readHeader decodes the shared <QuantBits> <AlignBits> <Scale> fields.
func readHeader(
	expect func(string) error,
	readInt func() (int32, error),
	readFloat func() (float32, error),
) (quantBits, alignBits int, scale float32, err error) {
	if err = expect(tokenQuantBits); err != nil {
		return
	}
	qb, err := readInt()
	if err != nil {
		return
	}
	if err = expect(tokenAlignBits); err != nil {
		return
	}
	ab, err := readInt()
	if err != nil {
		return
	}
	if err = expect(tokenScale); err != nil {
		return
	}
	if scale, err = readFloat(); err != nil {
		return
	}
	return int(qb), int(ab), scale, nil
}

type binaryDecoder struct {
	r   *bufio.Reader
	off int64
}

func (d *binaryDecoder) fail(token, msg string) error {
	return &ParseError{Offset: d.off, Token: token, Msg: msg}
}

func (d *binaryDecoder) eof(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return d.fail("", "unexpected EOF reading "+what)
	}
	return fmt.Errorf("read %s: %w", what, err)
}

// data reads rows*cols little-endian words. The buffer grows with the
// input actually read, never with the declared size.
func (d *binaryDecoder) data(rows, cols int) ([]byte, error) {
	if rows == 0 || cols == 0 {
		return nil, nil
	}
	if int64(rows) > math.MaxInt64/8/int64(cols) {
		return nil, d.fail("", fmt.Sprintf("matrix %d×%d words is too large", rows, cols))
	}
	want := int64(rows) * int64(cols) * 8

	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(d.r, want))
	d.off += n
	if err != nil {
		return nil, fmt.Errorf("read matrix data: %w", err)
	}
	if n < want {
		return nil, d.fail("", fmt.Sprintf("unexpected EOF reading matrix data: got %d of %d bytes", n, want))
	}
	return buf.Bytes(), nil
}

func (d *binaryDecoder) full(p []byte) error {
	n, err := io.ReadFull(d.r, p)
	d.off += int64(n)
	if err != nil {
		return d.eof("matrix data", err)
	}
	return nil
}

// expect reads a space-terminated token and compares it with want.
func (d *binaryDecoder) expect(want string) error {
	start := d.off
	tok, err := d.r.ReadString(' ')
	d.off += int64(len(tok))
	if err != nil {
		return d.eof("token "+want, err)
	}
	if tok = tok[:len(tok)-1]; tok != want {
		return &ParseError{Offset: start, Token: tok, Msg: "expected " + want}
	}
	return nil
}

func (d *binaryDecoder) basic() (uint32, error) {
	var buf [5]byte
	start := d.off
	if err := d.full(buf[:]); err != nil {
		return 0, err
	}
	if buf[0] != basicTypeSize {
		return 0, &ParseError{Offset: start, Msg: fmt.Sprintf("expected 4-byte field, got size %d", buf[0])}
	}
	return binary.LittleEndian.Uint32(buf[1:]), nil
}

func (d *binaryDecoder) int32() (int32, error) {
	v, err := d.basic()
	return int32(v), err
}

func (d *binaryDecoder) float32() (float32, error) {
	v, err := d.basic()
	return math.Float32frombits(v), err
}

func (d *binaryDecoder) dim(name string) (int, error) {
	v, err := d.int32()
	if err != nil {
		return 0, err
	}
	n, err := conv.Int32ToNonNegative(v)
	if err != nil {
		return 0, d.fail("", fmt.Sprintf("%s: %v", name, err))
	}
	return n, nil
}

// Write encodes m in the binary or text format.
func (m *Matrix) Write(w io.Writer, binary bool) error {
	if binary {
		return m.WriteBinary(w)
	}
	return m.WriteText(w)
}

// Read decodes a matrix in the binary or text format.
func Read(r io.Reader, binary bool, opts ...Option) (*Matrix, error) {
	if binary {
		return ReadBinary(r, opts...)
	}
	return ReadText(r, opts...)
}
