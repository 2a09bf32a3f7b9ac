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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
	"github.com/cardinalhq/fileinput/internal/filereader"
	"github.com/cardinalhq/fileinput/internal/jobconf"
	"github.com/cardinalhq/fileinput/internal/logctx"
	"github.com/cardinalhq/fileinput/internal/schema"
)

// splitSlop lets the last split of a file run up to 10% over the split size
// rather than leave a tiny tail split.
const splitSlop = 1.1

// InputFormat computes splits for a job and opens readers over them.
type InputFormat interface {
	GetSplits(ctx context.Context, conf *jobconf.Configuration) ([]filereader.Split, error)
	CreateRecordReader(ctx context.Context, split filereader.Split, tc *filereader.TaskContext) (filereader.RecordReader, error)
}

// ForConfiguration returns the combining input format when the job asks
// for combined splits and the path tracking one otherwise.
func ForConfiguration(conf *jobconf.Configuration, storage cloudstorage.FileSystem) InputFormat {
	if conf.GetBool(KeyCombine, false) {
		return &CombineTextInputFormat{Storage: storage}
	}
	return &PathTrackingInputFormat{Storage: storage}
}

// PathTrackingInputFormat cuts each input file into byte range splits and
// reads every split through the configured format's decoder.
type PathTrackingInputFormat struct {
	Storage cloudstorage.FileSystem
}

var _ InputFormat = (*PathTrackingInputFormat)(nil)

// GetSplits lists the inputs and cuts them into FileSplits. Files that
// cannot be read from an offset get a single split.
func (f *PathTrackingInputFormat) GetSplits(ctx context.Context, conf *jobconf.Configuration) ([]filereader.Split, error) {
	d, err := DescriptorFromConfiguration(conf)
	if err != nil {
		return nil, err
	}
	size, err := splitSize(conf)
	if err != nil {
		return nil, err
	}
	files, err := listInputs(ctx, f.Storage, conf)
	if err != nil {
		return nil, err
	}

	var splits []filereader.Split
	for _, file := range files {
		for _, fs := range fileSplits(file, size, splitSlop, splittable(d.Format, file.Path)) {
			splits = append(splits, &fs)
		}
	}

	splitsCounter.Add(ctx, int64(len(splits)), otelmetric.WithAttributes(
		attribute.String("format", d.Format.String()),
		attribute.String("kind", "file"),
	))
	logctx.FromContext(ctx).Info("Computed splits",
		slog.Int("files", len(files)),
		slog.Int("splits", len(splits)),
		logctx.Format(d.Format.String()))
	return splits, nil
}

func splittable(format filereader.Format, path string) bool {
	return format.Splittable() && !filereader.IsCompressed(path)
}

// fileSplits cuts one file into splits of size bytes, letting the last one
// absorb a tail while it stays within slop times size. A slop of 1 makes
// size a hard limit. Empty files get one empty split.
func fileSplits(file cloudstorage.FileInfo, size int64, slop float64, canSplit bool) []filereader.FileSplit {
	if file.Size == 0 || !canSplit {
		return []filereader.FileSplit{{Path: file.Path, Start: 0, Length: file.Size}}
	}
	var out []filereader.FileSplit
	remaining := file.Size
	for float64(remaining)/float64(size) > slop {
		out = append(out, filereader.FileSplit{Path: file.Path, Start: file.Size - remaining, Length: size})
		remaining -= size
	}
	if remaining != 0 {
		out = append(out, filereader.FileSplit{Path: file.Path, Start: file.Size - remaining, Length: remaining})
	}
	return out
}

// CreateRecordReader returns an uninitialized reader for a FileSplit.
func (f *PathTrackingInputFormat) CreateRecordReader(_ context.Context, split filereader.Split, tc *filereader.TaskContext) (filereader.RecordReader, error) {
	fs, ok := split.(*filereader.FileSplit)
	if !ok {
		return nil, fmt.Errorf("path tracking input format reads *FileSplit, got %T", split)
	}
	d, err := DescriptorFromConfiguration(tc.Conf)
	if err != nil {
		return nil, err
	}
	s, err := d.ParsedSchema()
	if err != nil {
		return nil, err
	}
	dec, err := filereader.NewDecoder(d.Format, tc, d.decoderOptions(s))
	if err != nil {
		return nil, err
	}
	return filereader.NewPathTrackingReader(dec, d.Format, d.PathField, d.PathFor(fs.Path)), nil
}

// ErrNoRecords is returned by DetectSchema when no split yields a record.
var ErrNoRecords = errors.New("no records to detect a schema from")

// DetectSchema returns the schema of the first record of the job. A
// configured schema is returned as is.
func (f *PathTrackingInputFormat) DetectSchema(ctx context.Context, conf *jobconf.Configuration) (*schema.Schema, error) {
	d, err := DescriptorFromConfiguration(conf)
	if err != nil {
		return nil, err
	}
	if s, err := d.ParsedSchema(); err != nil || s != nil {
		return s, err
	}
	splits, err := f.GetSplits(ctx, conf)
	if err != nil {
		return nil, err
	}
	tc := &filereader.TaskContext{Conf: conf.Clone(), Storage: f.Storage}
	for _, split := range splits {
		s, err := f.firstSchema(ctx, split, tc)
		if err != nil {
			return nil, err
		}
		if s != nil {
			return s, nil
		}
	}
	return nil, ErrNoRecords
}

func (f *PathTrackingInputFormat) firstSchema(ctx context.Context, split filereader.Split, tc *filereader.TaskContext) (*schema.Schema, error) {
	r, err := f.CreateRecordReader(ctx, split, tc)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	if err := r.Initialize(ctx, split); err != nil {
		return nil, err
	}
	ok, err := r.Next(ctx)
	if err != nil || !ok {
		return nil, err
	}
	rec, err := r.Current()
	if err != nil {
		return nil, err
	}
	return rec.Schema(), nil
}

// listInputs expands the configured input paths into files. Directory
// entries whose name starts with "_" or "." are skipped. Subdirectories
// are descended into only when recursion is enabled. A file reachable
// through more than one input is listed once.
func listInputs(ctx context.Context, storage cloudstorage.FileSystem, conf *jobconf.Configuration) ([]cloudstorage.FileInfo, error) {
	paths := InputPaths(conf)
	if len(paths) == 0 {
		return nil, errors.New("no input paths configured")
	}
	recursive := conf.GetBool(KeyInputRecursive, false)
	seen := mapset.NewThreadUnsafeSet[string]()
	var out []cloudstorage.FileInfo

	add := func(fi cloudstorage.FileInfo) {
		if seen.Add(fi.Path) {
			out = append(out, fi)
		}
	}

	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := storage.List(ctx, dir)
		if err != nil {
			return fmt.Errorf("list %s: %w", dir, err)
		}
		prefix := strings.TrimRight(dir, "/") + "/"
		for _, e := range entries {
			rel := strings.TrimPrefix(e.Path, prefix)
			if isHidden(rel) {
				continue
			}
			if strings.Contains(strings.Trim(rel, "/"), "/") && !recursive {
				// Object stores list every key below the prefix.
				continue
			}
			if e.IsDir {
				if recursive {
					if err := walk(e.Path); err != nil {
						return err
					}
				}
				continue
			}
			add(e)
		}
		return nil
	}

	for _, p := range paths {
		fi, err := storage.Stat(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("input path %s: %w", p, err)
		}
		if !fi.IsDir {
			add(fi)
			continue
		}
		if err := walk(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// isHidden reports whether any element of a relative path starts with "_"
// or ".".
func isHidden(rel string) bool {
	for _, part := range strings.Split(strings.Trim(rel, "/"), "/") {
		if strings.HasPrefix(part, "_") || strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
