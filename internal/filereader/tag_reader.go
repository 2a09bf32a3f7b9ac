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
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
)

// TagDelimitedDelegate is the registered name of the tag delimited reader.
const TagDelimitedDelegate = "tag-delimited"

// Task configuration keys for the tag delimited reader.
const (
	TagStartKey = "input.tag.start"
	TagEndKey   = "input.tag.end"
)

// TagDelimitedReader yields the blocks of a file that run from a start tag
// through the next end tag, tags included. A block belongs to the split its
// start tag begins in.
type TagDelimitedReader struct {
	storage        cloudstorage.FileSystem
	startTag       []byte
	endTag         []byte
	startFail      []int
	endFail        []int
	skipFirstBlock bool

	file cloudstorage.File
	in   *bufio.Reader
	path string

	start, end, pos int64
	offset          int64
	value           []byte
	done            bool
}

var _ TextDelegate = (*TagDelimitedReader)(nil)

// NewTagDelimitedReader creates a reader for blocks between the two tags.
// With skipFirstBlock set, a block starting at offset 0 is dropped.
func NewTagDelimitedReader(storage cloudstorage.FileSystem, startTag, endTag string, skipFirstBlock bool) (*TagDelimitedReader, error) {
	if startTag == "" || endTag == "" {
		return nil, &DelegateInstantiationError{
			Name: TagDelimitedDelegate,
			Err:  fmt.Errorf("%s and %s must both be set", TagStartKey, TagEndKey),
		}
	}
	return &TagDelimitedReader{
		storage:        storage,
		startTag:       []byte(startTag),
		endTag:         []byte(endTag),
		startFail:      failureTable([]byte(startTag)),
		endFail:        failureTable([]byte(endTag)),
		skipFirstBlock: skipFirstBlock,
	}, nil
}

func newTagDelimitedDelegate(tc *TaskContext, opts TextDelegateOptions) (TextDelegate, error) {
	start, _ := tc.Conf.Get(TagStartKey)
	end, _ := tc.Conf.Get(TagEndKey)
	return NewTagDelimitedReader(tc.Storage, start, end, opts.SkipFirstLine)
}

// failureTable returns, for each prefix of tag, the length of its longest
// proper prefix that is also a suffix.
func failureTable(tag []byte) []int {
	fail := make([]int, len(tag))
	k := 0
	for i := 1; i < len(tag); i++ {
		for k > 0 && tag[i] != tag[k] {
			k = fail[k-1]
		}
		if tag[i] == tag[k] {
			k++
		}
		fail[i] = k
	}
	return fail
}

func (r *TagDelimitedReader) Initialize(ctx context.Context, split *FileSplit) error {
	if IsCompressed(split.Path) {
		return fmt.Errorf("%s: compressed input is not supported by the %s reader", split.Path, TagDelimitedDelegate)
	}
	f, err := r.storage.Open(ctx, split.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", split.Path, err)
	}
	r.file = f
	r.path = split.Path
	r.start = split.Start
	r.end = split.End()
	if _, err := f.Seek(r.start, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s to %d: %w", split.Path, r.start, err)
	}
	r.in = bufio.NewReaderSize(f, lineBufferSize)
	r.pos = r.start
	return nil
}

func (r *TagDelimitedReader) Next(ctx context.Context) (bool, error) {
	if r.in == nil || r.done {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for r.pos < r.end {
		_, found, err := r.scan(r.startTag, r.startFail, nil, false)
		if err != nil {
			return false, err
		}
		offset := r.pos - int64(len(r.startTag))
		if !found || offset >= r.end {
			break
		}
		block := append([]byte(nil), r.startTag...)
		block, found, err = r.scan(r.endTag, r.endFail, block, true)
		if err != nil {
			return false, err
		}
		if !found {
			break
		}
		if r.skipFirstBlock && offset == 0 {
			continue
		}
		r.offset = offset
		r.value = block
		return true, nil
	}
	r.done = true
	r.value = nil
	return false, nil
}

// scan consumes bytes until tag has been read. Outside a block it gives up
// once the candidate match would begin at or past the split end.
func (r *TagDelimitedReader) scan(tag []byte, fail []int, buf []byte, inBlock bool) ([]byte, bool, error) {
	i := 0
	for {
		b, err := r.in.ReadByte()
		if errors.Is(err, io.EOF) {
			return buf, false, nil
		}
		if err != nil {
			return buf, false, fmt.Errorf("read %s at offset %d: %w", r.path, r.pos, err)
		}
		r.pos++
		if inBlock {
			buf = append(buf, b)
		}
		for i > 0 && b != tag[i] {
			i = fail[i-1]
		}
		if b == tag[i] {
			i++
			if i == len(tag) {
				return buf, true, nil
			}
		}
		if !inBlock && r.pos-int64(i) >= r.end {
			return buf, false, nil
		}
	}
}

func (r *TagDelimitedReader) CurrentOffset() int64 { return r.offset }
func (r *TagDelimitedReader) CurrentLine() string  { return string(r.value) }

func (r *TagDelimitedReader) Progress() float64 {
	switch {
	case r.in == nil:
		return 0
	case r.done:
		return 1
	case r.end <= r.start:
		return 0
	}
	return math.Min(1, float64(r.pos-r.start)/float64(r.end-r.start))
}

func (r *TagDelimitedReader) Close() error {
	r.in = nil
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
