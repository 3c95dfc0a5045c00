// Package textio centralizes text file I/O for pageforge. Every source
// read and destination write in the tool goes through this package so that
// one fixed encoding (UTF-8, with a byte-order mark tolerated and stripped
// on input) is applied consistently.
package textio

import (
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sourceEncoding decodes UTF-8 input, consuming a leading BOM if present.
// Editors on some platforms prepend one; it must never leak into rendered
// output or confuse line-oriented directive scanning.
var sourceEncoding = unicode.UTF8BOM

// Open opens path for reading with the fixed source encoding applied.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &decodedFile{
		f: f,
		r: transform.NewReader(f, sourceEncoding.NewDecoder()),
	}, nil
}

// ReadFile reads the whole file at path, decoded.
func ReadFile(path string) (string, error) {
	r, err := Open(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile writes text to path as UTF-8 without a BOM, creating or
// truncating the file.
func WriteFile(path, text string) error {
	return os.WriteFile(path, []byte(text), 0o644)
}

type decodedFile struct {
	f *os.File
	r io.Reader
}

func (d *decodedFile) Read(p []byte) (int, error) { return d.r.Read(p) }
func (d *decodedFile) Close() error               { return d.f.Close() }
