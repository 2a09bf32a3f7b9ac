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

package inputformat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
	"github.com/cardinalhq/fileinput/internal/filereader"
	"github.com/cardinalhq/fileinput/internal/jobconf"
	"github.com/cardinalhq/fileinput/internal/logctx"
	"github.com/cardinalhq/fileinput/internal/record"
	"github.com/cardinalhq/fileinput/internal/schema"
)

// CombineTextInputFormat packs many small files into CombinedSplits and,
// when the descriptor asks for it, shares one header line across them.
type CombineTextInputFormat struct {
	Storage cloudstorage.FileSystem
}

var _ InputFormat = (*CombineTextInputFormat)(nil)

// GetSplits groups the input files, in listing order, into CombinedSplits
// of at most the combine size. Files larger than that are cut into chunks
// first when their format allows it. With CopyHeader set the header is
// discovered once and every split carries the same value.
func (f *CombineTextInputFormat) GetSplits(ctx context.Context, conf *jobconf.Configuration) ([]filereader.Split, error) {
	d, err := DescriptorFromConfiguration(conf)
	if err != nil {
		return nil, err
	}
	maxSize := conf.GetInt64(KeyCombineMaxSize, DefaultMaxSplitSize)
	if maxSize <= 0 {
		return nil, fmt.Errorf("combine size must be positive, got %d", maxSize)
	}
	files, err := listInputs(ctx, f.Storage, conf)
	if err != nil {
		return nil, err
	}

	var (
		combined []*filereader.CombinedSplit
		current  []filereader.FileSplit
		size     int64
	)
	flush := func() {
		if len(current) > 0 {
			combined = append(combined, &filereader.CombinedSplit{Files: current})
		}
		current, size = nil, 0
	}
	for _, file := range files {
		for _, chunk := range fileSplits(file, maxSize, 1, splittable(d.Format, file.Path)) {
			if len(current) > 0 && size+chunk.Length > maxSize {
				flush()
			}
			current = append(current, chunk)
			size += chunk.Length
		}
	}
	flush()

	var header *string
	if d.CopyHeader && d.Format.IsText() {
		header = f.discoverHeader(ctx, combined)
	}

	splits := make([]filereader.Split, len(combined))
	for i, cs := range combined {
		cs.Header = header
		splits[i] = cs
	}

	splitsCounter.Add(ctx, int64(len(splits)), otelmetric.WithAttributes(
		attribute.String("format", d.Format.String()),
		attribute.String("kind", "combined"),
	))
	logctx.FromContext(ctx).Info("Computed combined splits",
		slog.Int("files", len(files)),
		slog.Int("splits", len(splits)),
		slog.Bool("header", header != nil),
		logctx.Format(d.Format.String()))
	return splits, nil
}

// discoverHeader returns the first line of the first file, in split order
// then file order, that has one. Files are assumed to share a layout, so
// no other file's first line is looked at.
func (f *CombineTextInputFormat) discoverHeader(ctx context.Context, splits []*filereader.CombinedSplit) *string {
	for _, cs := range splits {
		for _, fs := range cs.Files {
			if fs.Start != 0 {
				continue
			}
			line, ok, err := firstLine(ctx, f.Storage, fs.Path)
			if err != nil {
				logctx.FromContext(ctx).Warn("Cannot read header candidate",
					logctx.Path(fs.Path), slog.Any("error", err))
				continue
			}
			if ok {
				return &line
			}
		}
	}
	return nil
}

// firstLine reads the first line of a file. ok is false for an empty file.
func firstLine(ctx context.Context, storage cloudstorage.FileSystem, path string) (string, bool, error) {
	rc, err := filereader.OpenText(ctx, storage, path)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = rc.Close() }()

	line, err := bufio.NewReader(rc).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}
	if line == "" {
		return "", false, nil
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true, nil
}

// CreateRecordReader returns an uninitialized reader that walks the files
// of a CombinedSplit in order. A header carried by the split is published
// under filereader.HeaderKey in a copy of the task configuration.
func (f *CombineTextInputFormat) CreateRecordReader(_ context.Context, split filereader.Split, tc *filereader.TaskContext) (filereader.RecordReader, error) {
	cs, ok := split.(*filereader.CombinedSplit)
	if !ok {
		return nil, fmt.Errorf("combine input format reads *CombinedSplit, got %T", split)
	}
	if cs.Header != nil {
		conf := tc.Conf.Clone()
		conf.Set(filereader.HeaderKey, *cs.Header)
		tc = &filereader.TaskContext{Conf: conf, Storage: tc.Storage}
	}
	d, err := DescriptorFromConfiguration(tc.Conf)
	if err != nil {
		return nil, err
	}
	s, err := d.ParsedSchema()
	if err != nil {
		return nil, err
	}
	return &combinedReader{
		tc:        tc,
		desc:      d,
		schema:    s,
		hasHeader: cs.Header != nil,
	}, nil
}

// combinedReader reads the files of a CombinedSplit one after another,
// each through its own PathTrackingReader.
type combinedReader struct {
	tc        *filereader.TaskContext
	desc      Descriptor
	schema    *schema.Schema
	hasHeader bool

	split    *filereader.CombinedSplit
	idx      int
	current  *filereader.PathTrackingReader
	finished int64
	total    int64
	closed   bool
	done     bool
}

func (r *combinedReader) Initialize(_ context.Context, split filereader.Split) error {
	if r.closed {
		return filereader.ErrReaderClosed
	}
	cs, ok := split.(*filereader.CombinedSplit)
	if !ok {
		return fmt.Errorf("combined reader needs a *CombinedSplit, got %T", split)
	}
	r.split = cs
	r.total = cs.Len()
	return nil
}

// skipFirstLine says whether the file at idx drops its first line. Files
// after the first drop it when a header is shared; every file drops it
// when headers are skipped.
func (r *combinedReader) skipFirstLine(idx int) bool {
	return (idx > 0 && r.hasHeader) || r.desc.SkipHeader
}

func (r *combinedReader) open(ctx context.Context, idx int) error {
	fs := &r.split.Files[idx]
	opts := r.desc.decoderOptions(r.schema)
	opts.SkipFirstLine = r.skipFirstLine(idx)
	dec, err := filereader.NewDecoder(r.desc.Format, r.tc, opts)
	if err != nil {
		return err
	}
	pr := filereader.NewPathTrackingReader(dec, r.desc.Format, r.desc.PathField, r.desc.PathFor(fs.Path))
	if err := pr.Initialize(ctx, fs); err != nil {
		_ = pr.Close()
		return err
	}
	logctx.FromContext(ctx).Debug("Reading combined split file",
		logctx.Split(fs.String()), slog.Int("index", idx))
	r.current = pr
	return nil
}

func (r *combinedReader) Next(ctx context.Context) (bool, error) {
	switch {
	case r.closed:
		return false, filereader.ErrReaderClosed
	case r.split == nil:
		return false, filereader.ErrNotInitialized
	case r.done:
		return false, nil
	}
	for {
		if r.current == nil {
			if r.idx >= len(r.split.Files) {
				r.done = true
				return false, nil
			}
			if err := r.open(ctx, r.idx); err != nil {
				return false, err
			}
		}
		ok, err := r.current.Next(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if err := r.current.Close(); err != nil {
			return false, err
		}
		r.current = nil
		r.finished += r.split.Files[r.idx].Length
		r.idx++
	}
}

func (r *combinedReader) Current() (*record.Record, error) {
	if r.closed {
		return nil, filereader.ErrReaderClosed
	}
	if r.current == nil {
		return nil, filereader.ErrNoCurrentRecord
	}
	return r.current.Current()
}

func (r *combinedReader) CurrentKey() filereader.NullKey { return filereader.NullKey{} }

// Progress weights each file by its length.
func (r *combinedReader) Progress() float64 {
	switch {
	case r.split == nil:
		return 0
	case r.done || r.closed:
		return 1
	case r.total == 0:
		return 0
	}
	read := float64(r.finished)
	if r.current != nil {
		read += r.current.Progress() * float64(r.split.Files[r.idx].Length)
	}
	return math.Min(1, read/float64(r.total))
}

func (r *combinedReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var result *multierror.Error
	if r.current != nil {
		result = multierror.Append(result, r.current.Close())
		r.current = nil
	}
	return result.ErrorOrNil()
}
