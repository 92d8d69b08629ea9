package persistence

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/bitmat/packed"
)

// WriteFile atomically writes m to filename in the plain binary or text
// format, without an envelope.
func WriteFile(filename string, m *packed.Matrix, binary bool) error {
	return SaveToFile(filename, func(w io.Writer) error {
		return m.Write(w, binary)
	})
}

// ReadFile reads a matrix written by WriteFile.
func ReadFile(filename string, binary bool, opts ...packed.Option) (*packed.Matrix, error) {
	var m *packed.Matrix
	err := LoadFromFile(filename, func(r io.Reader) error {
		var err error
		m, err = packed.Read(r, binary, opts...)
		return err
	})
	return m, err
}

// SaveToFile writes through a temporary file in the same directory and
// renames it over filename.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// LoadFromFile opens filename and passes a buffered reader to readFunc.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return readFunc(bufio.NewReaderSize(f, 256*1024))
}
