// Package codec converts project documents between their gzip-framed
// on-disk form and text.
package codec

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"unicode/utf8"
)

// DecodeError reports input that is not a valid gzip stream or does not
// decode to text.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode document: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a failure while recompressing a document.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode document: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Codec holds the compression level used by Compress. The zero value
// uses gzip.DefaultCompression.
type Codec struct {
	Level int
}

// Default is the codec used by the package-level functions.
var Default = Codec{Level: gzip.BestCompression}

// Decompress returns the text held in a gzip stream.
func Decompress(data []byte) (string, error) {
	return Default.Decompress(data)
}

// Compress returns text as a gzip stream.
func Compress(text string) ([]byte, error) {
	return Default.Compress(text)
}

// Decompress returns the text held in a gzip stream.
func (c Codec) Decompress(data []byte) (string, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", &DecodeError{Err: fmt.Errorf("open gzip stream: %w", err)}
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", &DecodeError{Err: fmt.Errorf("read gzip stream: %w", err)}
	}
	if !utf8.Valid(out) {
		return "", &DecodeError{Err: fmt.Errorf("content is not valid UTF-8 text")}
	}
	return string(out), nil
}

// Compress returns text as a gzip stream.
func (c Codec) Compress(text string) ([]byte, error) {
	level := c.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, &EncodeError{Err: fmt.Errorf("create gzip writer: %w", err)}
	}
	if _, err := io.WriteString(zw, text); err != nil {
		_ = zw.Close()
		return nil, &EncodeError{Err: fmt.Errorf("write gzip stream: %w", err)}
	}
	if err := zw.Close(); err != nil {
		return nil, &EncodeError{Err: fmt.Errorf("close gzip writer: %w", err)}
	}
	return buf.Bytes(), nil
}
