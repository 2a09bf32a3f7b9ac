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
	"fmt"
	"math"

	"github.com/linkedin/goavro/v2"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
	"github.com/cardinalhq/fileinput/internal/schema"
)

// avroSchema is the writer schema of an object container file.
type avroSchema string

func (s avroSchema) CanonicalText() string { return string(s) }

func (s avroSchema) Convert() (*schema.Schema, error) {
	return schema.Parse(string(s))
}

// avroReader reads the datums of an Avro object container file. Container
// files are read whole.
type avroReader struct {
	storage cloudstorage.FileSystem

	file    cloudstorage.File
	counter *countingReader
	ocf     *goavro.OCFReader
	path    string
	native  avroSchema
	current map[string]any
	done    bool
}

func newAvroReader(storage cloudstorage.FileSystem) *avroReader {
	return &avroReader{storage: storage}
}

func (r *avroReader) Initialize(ctx context.Context, split *FileSplit) error {
	if split.Start != 0 {
		return fmt.Errorf("%s: avro files cannot be read from offset %d", split.Path, split.Start)
	}
	f, err := r.storage.Open(ctx, split.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", split.Path, err)
	}
	r.file = f
	r.path = split.Path
	r.counter = &countingReader{r: f}
	ocf, err := goavro.NewOCFReader(bufio.NewReaderSize(r.counter, lineBufferSize))
	if err != nil {
		return fmt.Errorf("read avro header of %s: %w", split.Path, err)
	}
	r.ocf = ocf
	r.native = avroSchema(ocf.Codec().Schema())
	return nil
}

func (r *avroReader) Next(ctx context.Context) (bool, error) {
	if r.ocf == nil || r.done {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !r.ocf.Scan() {
		r.done = true
		r.current = nil
		if err := r.ocf.Err(); err != nil {
			return false, fmt.Errorf("read avro %s: %w", r.path, err)
		}
		return false, nil
	}
	datum, err := r.ocf.Read()
	if err != nil {
		return false, fmt.Errorf("read avro %s: %w", r.path, err)
	}
	m, ok := datum.(map[string]any)
	if !ok {
		return false, &SchemaMismatchError{Path: r.path, Offset: -1, Reason: fmt.Sprintf("avro datum is a %T, not a record", datum)}
	}
	r.current = m
	return true, nil
}

func (r *avroReader) Progress() float64 {
	switch {
	case r.ocf == nil:
		return 0
	case r.done:
		return 1
	}
	size := r.file.Size()
	if size <= 0 {
		return 0
	}
	return math.Min(1, float64(r.counter.n)/float64(size))
}

func (r *avroReader) Close() error {
	r.ocf = nil
	r.current = nil
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// unwrapAvro strips goavro's {"branch": value} union wrappers, guided by
// the writer schema.
func unwrapAvro(v any, s *schema.Schema) any {
	if v == nil {
		return nil
	}
	switch s.Type() {
	case schema.Union:
		m, ok := v.(map[string]any)
		if !ok || len(m) != 1 {
			return v
		}
		for name, inner := range m {
			if b := avroBranch(s, name); b != nil {
				return unwrapAvro(inner, b)
			}
			return inner
		}
	case schema.Record:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, fv := range m {
			if f := s.Field(k); f != nil {
				out[k] = unwrapAvro(fv, f.Schema())
			} else {
				out[k] = fv
			}
		}
		return out
	case schema.Array:
		items, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = unwrapAvro(item, s.Items())
		}
		return out
	case schema.Map:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = unwrapAvro(item, s.Values())
		}
		return out
	}
	return v
}

// avroBranch finds the union branch goavro labels name: the full name of
// named types, "type.logicalType" for logical types and the type name
// otherwise. A union with one non-null branch matches any label.
func avroBranch(u *schema.Schema, name string) *schema.Schema {
	for _, b := range u.Branches() {
		label := b.Type().String()
		switch {
		case b.Name() != "":
			label = b.Name()
		case b.LogicalType() != schema.NoLogicalType:
			label += "." + b.LogicalType().String()
		}
		if label == name {
			return b
		}
	}
	if nn := u.NonNullable(); nn.Type() != schema.Union {
		return nn
	}
	return nil
}
