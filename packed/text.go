package packed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// WriteText encodes m in the text matrix format:
//
//	<QuantBits> 8 <AlignBits> 8 <Scale> 0.003921569  [
//	  3 0 255 1 0 0 0 0 ]
//
// Every lane is written as its own decimal literal, rows are separated by
// newlines.
func (m *Matrix) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s %d %s %d %s %s ",
		tokenQuantBits, m.quantBits,
		tokenAlignBits, m.alignBits,
		tokenScale, strconv.FormatFloat(float64(m.scale), 'g', -1, 32),
	)

	if m.IsEmpty() {
		bw.WriteString(" [ ]\n")
		return bw.Flush()
	}

	bw.WriteString(" [")
	lane := make([]uint64, m.LanesPerWord())
	var num []byte
	for r := 0; r < m.rows; r++ {
		bw.WriteString("\n  ")
		for _, word := range m.RowWords(r) {
			UnpackWord(word, m.alignBits, lane)
			for _, v := range lane {
				num = strconv.AppendUint(num[:0], v, 10)
				num = append(num, ' ')
				bw.Write(num)
			}
		}
	}
	bw.WriteString("]\n")
	return bw.Flush()
}

// ReadText decodes a matrix written by WriteText.
//
// Literals are regrouped into words with the packing rule of Quantize. A row
// whose literal count is not a multiple of LanesPerWord gets a final word
// shifted left by the missing lanes. Rows end at a newline or ';', blank
// lines are skipped and every row must have the same number of literals.
func ReadText(r io.Reader, opts ...Option) (*Matrix, error) {
	o := applyOptions(opts)
	d := &textDecoder{r: bufio.NewReader(r)}

	quantBits, alignBits, scale, err := readHeader(d.expect, d.int32, d.float32)
	if err != nil {
		return nil, err
	}
	if err := validateLayout("ReadText", quantBits, alignBits); err != nil {
		return nil, d.fail("", err.Error())
	}
	if err := d.expect("["); err != nil {
		return nil, err
	}

	rows, cols, data, err := d.body(alignBits)
	if err != nil {
		return nil, err
	}

	m := &Matrix{
		quantBits: quantBits,
		alignBits: alignBits,
		scale:     scale,
		rc:        o.controller,
	}
	if err := m.alloc("ReadText", rows, cols); err != nil {
		return nil, err
	}
	for i := 0; i < m.rows; i++ {
		copy(m.RowWords(i), data[i*cols:(i+1)*cols])
	}
	return m, nil
}

type textDecoder struct {
	r   *bufio.Reader
	off int64
}

func (d *textDecoder) fail(token, msg string) error {
	return &ParseError{Offset: d.off, Token: token, Msg: msg}
}

func (d *textDecoder) peek() (byte, error) {
	b, err := d.r.Peek(1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, d.fail("", "EOF detected while reading matrix")
		}
		return 0, err
	}
	return b[0], nil
}

func (d *textDecoder) skip() {
	_, _ = d.r.ReadByte()
	d.off++
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

// word skips leading whitespace and returns the following run of
// non-whitespace bytes.
func (d *textDecoder) word() (string, int64, error) {
	for {
		b, err := d.peek()
		if err != nil {
			return "", d.off, err
		}
		if !isSpace(b) {
			break
		}
		d.skip()
	}
	return d.literal(isSpace)
}

// literal reads bytes up to (not including) the first delimiter or EOF.
func (d *textDecoder) literal(delim func(byte) bool) (string, int64, error) {
	start := d.off
	var tok []byte
	for {
		b, err := d.r.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", start, err
		}
		if delim(b) {
			_ = d.r.UnreadByte()
			break
		}
		tok = append(tok, b)
		d.off++
	}
	return string(tok), start, nil
}

func (d *textDecoder) expect(want string) error {
	tok, start, err := d.word()
	if err != nil {
		return err
	}
	if tok != want {
		return &ParseError{Offset: start, Token: tok, Msg: "expected " + want}
	}
	return nil
}

func (d *textDecoder) int32() (int32, error) {
	tok, start, err := d.word()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, &ParseError{Offset: start, Token: tok, Msg: "expecting integer"}
	}
	return int32(v), nil
}

func (d *textDecoder) float32() (float32, error) {
	tok, start, err := d.word()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		return 0, &ParseError{Offset: start, Token: tok, Msg: "expecting float"}
	}
	return float32(v), nil
}

func isLiteralEnd(b byte) bool {
	return isSpace(b) || b == ']' || b == ';'
}

// body reads lane literals up to the closing bracket and returns the packed
// words, row-major, with cols words per row.
func (d *textDecoder) body(alignBits int) (rows, cols int, data []uint64, err error) {
	lanes := 64 / alignBits
	shift := uint(alignBits)
	mask := laneMask(alignBits)

	var (
		acc   uint64
		n     int // literals in the current row
		width = -1
	)

	endRow := func() error {
		if n == 0 {
			return nil
		}
		if width < 0 {
			width = n
		} else if n != width {
			return d.fail("", fmt.Sprintf("matrix has inconsistent number of columns: %d, expected %d", n, width))
		}
		if rem := n % lanes; rem != 0 {
			data = append(data, acc<<(shift*uint(lanes-rem)))
			acc = 0
		}
		rows++
		n = 0
		return nil
	}

	for {
		b, err := d.peek()
		if err != nil {
			return 0, 0, nil, err
		}

		switch {
		case b >= '0' && b <= '9':
			tok, start, err := d.literal(isLiteralEnd)
			if err != nil {
				return 0, 0, nil, err
			}
			v, perr := strconv.ParseUint(tok, 10, 64)
			if perr != nil {
				return 0, 0, nil, &ParseError{Offset: start, Token: tok, Msg: "expecting numeric data"}
			}
			if v > mask {
				return 0, 0, nil, &ParseError{Offset: start, Token: tok, Msg: fmt.Sprintf("literal exceeds %d-bit lane", alignBits)}
			}
			n++
			acc = acc<<shift + v
			if n%lanes == 0 {
				data = append(data, acc)
				acc = 0
			}
		case b == '\n' || b == ';':
			d.skip()
			if err := endRow(); err != nil {
				return 0, 0, nil, err
			}
		case isSpace(b):
			d.skip()
		case b == ']':
			d.skip()
			if err := endRow(); err != nil {
				return 0, 0, nil, err
			}
			d.trailingNewline()
			if rows == 0 {
				return 0, 0, nil, nil
			}
			return rows, (width + lanes - 1) / lanes, data, nil
		default:
			tok, start, err := d.word()
			if err != nil {
				return 0, 0, nil, err
			}
			return 0, 0, nil, &ParseError{Offset: start, Token: tok, Msg: "expecting numeric data"}
		}
	}
}

func (d *textDecoder) trailingNewline() {
	b, err := d.r.Peek(1)
	if err != nil {
		return
	}
	if b[0] == '\r' {
		d.skip()
		if b, err = d.r.Peek(1); err != nil {
			return
		}
	}
	if b[0] == '\n' {
		d.skip()
	}
}
