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
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	pqfile "github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/hashicorp/go-multierror"
	"github.com/parquet-go/parquet-go"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
	"github.com/cardinalhq/fileinput/internal/schema"
)

const parquetBatchSize = 256

// parquetSchema is a Parquet file schema in its Arrow form.
type parquetSchema struct {
	name  string
	arrow *arrow.Schema
}

func (s parquetSchema) CanonicalText() string {
	return s.name + "\n" + s.arrow.String()
}

func (s parquetSchema) Convert() (*schema.Schema, error) {
	return schema.FromArrow(s.name, s.arrow)
}

// parquetReader reads the rows of a Parquet file. Parquet files are read
// whole.
type parquetReader struct {
	storage cloudstorage.FileSystem

	file    cloudstorage.File
	pf      *parquet.File
	pfr     *parquet.GenericReader[map[string]any]
	path    string
	native  parquetSchema
	scales  map[string]func(int64) int64
	readBuf []map[string]any
	n, idx  int
	eof     bool
	done    bool
	total   int64
	read    int64
	current map[string]any
}

func newParquetReader(storage cloudstorage.FileSystem) *parquetReader {
	return &parquetReader{storage: storage}
}

func (r *parquetReader) Initialize(ctx context.Context, split *FileSplit) error {
	if split.Start != 0 {
		return fmt.Errorf("%s: parquet files cannot be read from offset %d", split.Path, split.Start)
	}
	f, err := r.storage.Open(ctx, split.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", split.Path, err)
	}
	r.file = f
	r.path = split.Path

	as, err := arrowSchemaOf(f)
	if err != nil {
		return fmt.Errorf("read parquet schema of %s: %w", split.Path, err)
	}

	pf, err := parquet.OpenFile(f, f.Size())
	if err != nil {
		return fmt.Errorf("failed to open parquet file %s: %w", split.Path, err)
	}
	r.pf = pf
	r.pfr = parquet.NewGenericReader[map[string]any](pf, pf.Schema())
	r.total = pf.NumRows()

	name := pf.Schema().Name()
	if name == "" {
		name = "record"
	}
	r.native = parquetSchema{name: name, arrow: as}
	r.scales = timestampScales(as)

	r.readBuf = make([]map[string]any, parquetBatchSize)
	for i := range r.readBuf {
		r.readBuf[i] = make(map[string]any)
	}
	return nil
}

// arrowSchemaOf maps the file's Parquet schema to Arrow the way arrow-go
// readers see it.
func arrowSchemaOf(f cloudstorage.File) (*arrow.Schema, error) {
	// The parquet reader closes what it is given if it can; f must stay open.
	src := struct {
		io.ReaderAt
		io.Seeker
	}{f, f}
	pr, err := pqfile.NewParquetReader(src)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pr.Close() }()
	return pqarrow.FromParquet(pr.MetaData().Schema, &pqarrow.ArrowReadProperties{}, pr.MetaData().KeyValueMetadata())
}

// timestampScales converts raw top level timestamp values to the unit the
// structured schema uses: millis for second and milli columns, micros
// otherwise.
func timestampScales(as *arrow.Schema) map[string]func(int64) int64 {
	scales := map[string]func(int64) int64{}
	for _, f := range as.Fields() {
		ts, ok := f.Type.(*arrow.TimestampType)
		if !ok {
			continue
		}
		switch ts.Unit {
		case arrow.Second:
			scales[f.Name] = func(v int64) int64 { return v * 1000 }
		case arrow.Nanosecond:
			scales[f.Name] = func(v int64) int64 { return v / 1000 }
		}
	}
	return scales
}

func (r *parquetReader) Next(ctx context.Context) (bool, error) {
	if r.pfr == nil || r.done {
		return false, nil
	}
	for r.idx >= r.n {
		if r.eof {
			r.done = true
			r.current = nil
			return false, nil
		}
		if err := r.fill(ctx); err != nil {
			return false, err
		}
	}
	row := r.readBuf[r.idx]
	r.idx++
	r.read++
	for name, scale := range r.scales {
		if v, ok := row[name].(int64); ok {
			row[name] = scale(v)
		}
	}
	r.current = row
	return true, nil
}

func (r *parquetReader) fill(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := range r.readBuf {
		clear(r.readBuf[i])
	}
	n, err := r.pfr.Read(r.readBuf)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parquet reader error in %s: %w", r.path, err)
	}
	if errors.Is(err, io.EOF) || n == 0 {
		r.eof = true
	}
	r.n, r.idx = n, 0
	return nil
}

func (r *parquetReader) Progress() float64 {
	switch {
	case r.pfr == nil:
		return 0
	case r.done, r.total == 0:
		return 1
	}
	return float64(r.read) / float64(r.total)
}

func (r *parquetReader) Close() error {
	var result *multierror.Error
	if r.pfr != nil {
		if err := r.pfr.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close parquet reader: %w", err))
		}
		r.pfr = nil
	}
	r.pf = nil
	r.current = nil
	if r.file != nil {
		result = multierror.Append(result, r.file.Close())
		r.file = nil
	}
	return result.ErrorOrNil()
}
