// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package filereader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
)

type decompressor func(io.Reader) (io.ReadCloser, error)

var decompressors = map[string]decompressor{
	".gz": func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	".zst":  newZstdReader,
	".zstd": newZstdReader,
}

func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

func decompressorFor(path string) decompressor {
	base := strings.ToLower(cloudstorage.Base(path))
	for ext, d := range decompressors {
		if strings.HasSuffix(base, ext) {
			return d
		}
	}
	return nil
}

// IsCompressed reports whether the path names a compressed file. Compressed
// files are read whole, never split.
func IsCompressed(path string) bool {
	return decompressorFor(path) != nil
}

// countingReader tracks how many bytes have been pulled from the
// underlying reader, for progress reporting.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type textStream struct {
	io.Reader
	closers []io.Closer
}

func (s *textStream) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenText opens a file from its first byte, decompressing it if the name
// says it is compressed.
func OpenText(ctx context.Context, storage cloudstorage.FileSystem, path string) (io.ReadCloser, error) {
	f, err := storage.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	d := decompressorFor(path)
	if d == nil {
		return f, nil
	}
	rc, err := d(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open compressed %s: %w", path, err)
	}
	return &textStream{Reader: rc, closers: []io.Closer{f, rc}}, nil
}
