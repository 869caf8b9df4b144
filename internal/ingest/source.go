package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Source yields the raw bytes of an edge list. Open may be called more than
// once; every call starts from the beginning.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// NewSource picks a Source for an input location: http(s) URLs are
// downloaded, anything else is treated as a local file path.
func NewSource(input string, timeout time.Duration) Source {
	lower := strings.ToLower(input)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return NewURLSource(input, timeout)
	}
	return FileSource{Path: input}
}

// FileSource reads a local edge list, plain or gzip-compressed
type FileSource struct {
	Path string
}

// Open opens the file and transparently decompresses gzip content
func (f FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open edge list: %w", err)
	}

	rc, err := maybeGunzip(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return rc, nil
}

func (f FileSource) String() string {
	return f.Path
}

// ReaderSource adapts an in-memory edge list, mostly useful in tests
type ReaderSource struct {
	Name string
	Data string
}

// Open returns a fresh reader over the data
func (r ReaderSource) Open(_ context.Context) (io.ReadCloser, error) {
	return maybeGunzip(io.NopCloser(strings.NewReader(r.Data)))
}

func (r ReaderSource) String() string {
	if r.Name == "" {
		return "<memory>"
	}
	return r.Name
}

// gzipReadCloser closes both the decompressor and the underlying stream
type gzipReadCloser struct {
	*gzip.Reader
	underlying io.Closer
}

func (g gzipReadCloser) Close() error {
	gzErr := g.Reader.Close()
	if err := g.underlying.Close(); err != nil {
		return err
	}
	return gzErr
}

// maybeGunzip sniffs the gzip magic bytes and wraps rc in a decompressor when present
func maybeGunzip(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read edge list header: %w", err)
	}

	buffered := struct {
		io.Reader
		io.Closer
	}{br, rc}

	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return gzipReadCloser{Reader: zr, underlying: rc}, nil
	}

	return buffered, nil
}
