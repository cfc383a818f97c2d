// Package source provides the ByteSource helpers for pumping a compressed
// capture into a Reconstruct pipeline (spec §6), including transparent zstd
// decompression for .sparsdr.zst captures (SPEC_FULL §3).
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ByteSource yields raw wire-format bytes to feed into
// reconstruct.Reconstruct.ProcessSamples.
type ByteSource interface {
	// Read behaves like io.Reader: it returns up to len(p) bytes, or an
	// error (io.EOF at end of stream).
	Read(p []byte) (int, error)
	// Close releases any underlying resources.
	Close() error
}

type fileSource struct {
	f      *os.File
	reader io.Reader
	zr     *zstd.Decoder
}

// OpenFile opens path for reading. A ".zst" suffix enables transparent zstd
// decompression; anything else is read as a raw byte stream.
func OpenFile(path string) (ByteSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sparsdr source: failed to open %s: %w", path, err)
	}

	buffered := bufio.NewReaderSize(f, 1<<20)

	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(buffered)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("sparsdr source: failed to open zstd stream %s: %w", path, err)
		}
		return &fileSource{f: f, reader: zr, zr: zr}, nil
	}

	return &fileSource{f: f, reader: buffered}, nil
}

// Stdin wraps os.Stdin as a ByteSource, for piping a live capture in.
func Stdin() ByteSource {
	return &fileSource{f: os.Stdin, reader: bufio.NewReaderSize(os.Stdin, 1<<20)}
}

func (s *fileSource) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *fileSource) Close() error {
	if s.zr != nil {
		s.zr.Close()
	}
	if s.f == os.Stdin {
		return nil
	}
	return s.f.Close()
}
