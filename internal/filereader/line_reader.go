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
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
)

const lineBufferSize = 64 * 1024

// LineReader reads newline terminated lines from a byte range of a file.
//
// A split that does not start at offset 0 drops its first, partial line;
// the split before it reads every line that starts at or before its end.
// Together the splits of a file read each line exactly once. Compressed
// files are read whole.
type LineReader struct {
	storage       cloudstorage.FileSystem
	skipFirstLine bool

	file    cloudstorage.File
	decomp  io.ReadCloser
	counter *countingReader
	in      *bufio.Reader
	path    string

	start, end, pos int64
	offset          int64
	line            string
	done            bool
}

var _ TextDelegate = (*LineReader)(nil)

// NewLineReader creates a LineReader. With skipFirstLine set, the line at
// offset 0 is dropped.
func NewLineReader(storage cloudstorage.FileSystem, skipFirstLine bool) *LineReader {
	return &LineReader{storage: storage, skipFirstLine: skipFirstLine}
}

func newLineDelegate(tc *TaskContext, opts TextDelegateOptions) (TextDelegate, error) {
	return NewLineReader(tc.Storage, opts.SkipFirstLine), nil
}

func (r *LineReader) Initialize(ctx context.Context, split *FileSplit) error {
	if split.Start != 0 && IsCompressed(split.Path) {
		return fmt.Errorf("%s: compressed files cannot be read from offset %d", split.Path, split.Start)
	}
	f, err := r.storage.Open(ctx, split.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", split.Path, err)
	}
	r.file = f
	r.path = split.Path
	r.start = split.Start
	r.end = split.End()

	if d := decompressorFor(split.Path); d != nil {
		r.counter = &countingReader{r: f}
		rc, err := d(r.counter)
		if err != nil {
			return fmt.Errorf("open compressed %s: %w", split.Path, err)
		}
		r.decomp = rc
		r.in = bufio.NewReaderSize(rc, lineBufferSize)
		r.start, r.end = 0, math.MaxInt64
	} else {
		if _, err := f.Seek(r.start, io.SeekStart); err != nil {
			return fmt.Errorf("seek %s to %d: %w", split.Path, r.start, err)
		}
		r.in = bufio.NewReaderSize(f, lineBufferSize)
	}
	r.pos = r.start

	if r.start != 0 {
		_, n, err := r.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read %s at offset %d: %w", split.Path, r.pos, err)
		}
		r.pos += n
	}
	return nil
}

// readLine returns the next line without its terminator and the number of
// bytes consumed. io.EOF is returned only when nothing was read.
func (r *LineReader) readLine() ([]byte, int64, error) {
	b, err := r.in.ReadBytes('\n')
	n := int64(len(b))
	if err != nil {
		if errors.Is(err, io.EOF) && n > 0 {
			err = nil
		} else {
			return nil, n, err
		}
	}
	b = bytes.TrimSuffix(b, []byte{'\n'})
	b = bytes.TrimSuffix(b, []byte{'\r'})
	return b, n, nil
}

func (r *LineReader) Next(ctx context.Context) (bool, error) {
	if r.in == nil || r.done {
		return false, nil
	}
	for r.pos <= r.end {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		b, n, err := r.readLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return false, fmt.Errorf("read %s at offset %d: %w", r.path, r.pos, err)
		}
		r.offset = r.pos
		r.pos += n
		if r.skipFirstLine && r.offset == 0 {
			continue
		}
		r.line = string(b)
		return true, nil
	}
	r.done = true
	r.line = ""
	return false, nil
}

func (r *LineReader) CurrentOffset() int64 { return r.offset }
func (r *LineReader) CurrentLine() string  { return r.line }

func (r *LineReader) Progress() float64 {
	switch {
	case r.in == nil:
		return 0
	case r.done:
		return 1
	case r.counter != nil:
		size := r.file.Size()
		if size <= 0 {
			return 0
		}
		return math.Min(1, float64(r.counter.n)/float64(size))
	case r.end <= r.start:
		return 0
	}
	return math.Min(1, float64(r.pos-r.start)/float64(r.end-r.start))
}

func (r *LineReader) Close() error {
	var result *multierror.Error
	if r.decomp != nil {
		result = multierror.Append(result, r.decomp.Close())
		r.decomp = nil
	}
	if r.file != nil {
		result = multierror.Append(result, r.file.Close())
		r.file = nil
	}
	r.in = nil
	return result.ErrorOrNil()
}
