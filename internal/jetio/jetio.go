// Package jetio reads and writes jet candidate files.
//
// Supported layouts are a JSON array, a stream of JSON objects (one per line
// or concatenated) and a YAML sequence. A trailing .gz or .zst compresses the
// file; the layout is taken from the extension beneath it.
package jetio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/jetid/internal/jetid"
)

// Format is a file layout.
type Format int

const (
	FormatJSON Format = iota // array or object stream, detected from content
	FormatYAML
)

// FormatFor infers the layout from a path, ignoring compression suffixes.
func FormatFor(path string) Format {
	base := strings.ToLower(path)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, ".zst")
	switch filepath.Ext(base) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// #region reading

// closers run in order; the compressor goes before the file.
type closers []func() error

func (cs closers) Close() error {
	var errs []error
	for _, c := range cs {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type readCloser struct {
	io.Reader
	closers
}

type writeCloser struct {
	io.Writer
	closers
}

// Open opens path and unwraps .gz or .zst compression.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jets %s: %w", path, err)
	}
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		return &readCloser{Reader: zr, closers: closers{zr.Close, f.Close}}, nil
	case strings.HasSuffix(lower, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd %s: %w", path, err)
		}
		return &readCloser{Reader: zr, closers: closers{
			func() error { zr.Close(); return nil },
			f.Close,
		}}, nil
	}
	return f, nil
}

// ReadFile decodes every jet in path.
func ReadFile(path string) ([]jetid.Candidate, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	jets, err := Decode(rc, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return jets, nil
}

// Decode reads jets in the given layout.
func Decode(r io.Reader, format Format) ([]jetid.Candidate, error) {
	if format == FormatYAML {
		var jets []jetid.Candidate
		if err := yaml.NewDecoder(r).Decode(&jets); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("yaml: %w", err)
		}
		for i := range jets {
			if err := jets[i].Validate(); err != nil {
				return nil, fmt.Errorf("yaml record %d: %w", i+1, err)
			}
		}
		return jets, nil
	}

	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	dec.DisallowUnknownFields()
	if first == '[' {
		var jets []jetid.Candidate
		if err := dec.Decode(&jets); err != nil {
			return nil, fmt.Errorf("json array: %w", err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("json array: trailing data after %d jets", len(jets))
		}
		return jets, nil
	}

	var jets []jetid.Candidate
	for {
		var c jetid.Candidate
		err := dec.Decode(&c)
		if errors.Is(err, io.EOF) {
			return jets, nil
		}
		if err != nil {
			return nil, fmt.Errorf("json record %d: %w", len(jets)+1, err)
		}
		jets = append(jets, c)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// #endregion reading

// #region writing

// Create opens path for writing, compressing by extension.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		zw := gzip.NewWriter(f)
		return &writeCloser{Writer: zw, closers: closers{zw.Close, f.Close}}, nil
	case strings.HasSuffix(lower, ".zst"):
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd %s: %w", path, err)
		}
		return &writeCloser{Writer: zw, closers: closers{zw.Close, f.Close}}, nil
	}
	return f, nil
}

// WriteFile writes jets as newline-delimited JSON, or YAML for .yaml paths.
func WriteFile(path string, jets []jetid.Candidate) (err error) {
	wc, err := Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := wc.Close(); err == nil {
			err = cerr
		}
	}()

	if FormatFor(path) == FormatYAML {
		enc := yaml.NewEncoder(wc)
		if err := enc.Encode(jets); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(wc)
	for i := range jets {
		if err := enc.Encode(jets[i]); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
	}
	return nil
}

// #endregion writing
