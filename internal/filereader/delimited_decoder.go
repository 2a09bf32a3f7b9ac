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
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/shopspring/decimal"

	"github.com/cardinalhq/fileinput/internal/record"
	"github.com/cardinalhq/fileinput/internal/schema"
	"github.com/cardinalhq/fileinput/internal/splitter"
)

func init() {
	RegisterDecoder(FormatDelimited, newDelimitedDecoder(","))
	RegisterDecoder(FormatCSV, newDelimitedDecoder(","))
	RegisterDecoder(FormatTSV, newDelimitedDecoder("\t"))
}

// delimitedDecoder splits each line into tokens and maps them onto the
// schema fields by position.
type delimitedDecoder struct {
	delegate  TextDelegate
	delimiter string
	header    *string
	pathField string
	path      string

	schema *schema.Schema
	// fields are the schema fields tokens map onto, path field excluded.
	fields []*schema.Field
}

func newDelimitedDecoder(defaultDelimiter string) DecoderFactory {
	return func(tc *TaskContext, opts DecoderOptions) (Decoder, error) {
		delim := opts.Delimiter
		if delim == "" {
			delim = defaultDelimiter
		}
		if _, err := splitter.Split("", delim); err != nil {
			return nil, err
		}
		d, err := NewTextDelegate(tc, opts.TextDelegate, TextDelegateOptions{SkipFirstLine: opts.SkipFirstLine})
		if err != nil {
			return nil, err
		}
		dec := &delimitedDecoder{
			delegate:  d,
			delimiter: delim,
			pathField: opts.PathField,
		}
		if h, ok := tc.Conf.Get(HeaderKey); ok {
			dec.header = &h
		}
		if opts.Schema != nil {
			dec.setSchema(opts.Schema)
		}
		return dec, nil
	}
}

func (d *delimitedDecoder) setSchema(s *schema.Schema) {
	d.schema = s
	d.fields = d.fields[:0]
	for _, f := range s.Fields() {
		if f.Name() != d.pathField {
			d.fields = append(d.fields, f)
		}
	}
}

// inferSchema names the columns after the header when there is one and
// body_1..body_N otherwise. Every column is a nullable string. Header names
// must be non-empty and distinct from each other and from the path field.
func (d *delimitedDecoder) inferSchema(tokens int) (*schema.Schema, error) {
	var names []string
	if d.header != nil {
		h, err := splitter.Split(*d.header, d.delimiter)
		if err != nil {
			return nil, fmt.Errorf("%s: header: %w", d.path, err)
		}
		seen := mapset.NewThreadUnsafeSet[string]()
		if d.pathField != "" {
			seen.Add(d.pathField)
		}
		for i, n := range h {
			if n == "" {
				return nil, &SchemaMismatchError{
					Path:   d.path,
					Offset: -1,
					Reason: fmt.Sprintf("header column %d has no name", i+1),
				}
			}
			if !seen.Add(n) {
				return nil, &SchemaMismatchError{
					Path:   d.path,
					Offset: -1,
					Field:  n,
					Reason: "header names the column more than once",
				}
			}
		}
		names = h
	} else {
		for i := range tokens {
			names = append(names, "body_"+strconv.Itoa(i+1))
		}
	}
	fields := make([]*schema.Field, 0, len(names)+1)
	for _, n := range names {
		fields = append(fields, schema.NewField(n, schema.NullableOf(schema.Of(schema.String))))
	}
	if d.pathField != "" {
		fields = append(fields, schema.NewField(d.pathField, schema.NullableOf(schema.Of(schema.String))))
	}
	return schema.RecordOf("delimited.record", fields...), nil
}

func (d *delimitedDecoder) Initialize(ctx context.Context, split *FileSplit) error {
	d.path = split.Path
	return d.delegate.Initialize(ctx, split)
}

func (d *delimitedDecoder) Next(ctx context.Context) (bool, error) {
	return d.delegate.Next(ctx)
}

func (d *delimitedDecoder) Decode() (*record.Builder, error) {
	offset := d.delegate.CurrentOffset()
	tokens, err := splitter.Split(d.delegate.CurrentLine(), d.delimiter)
	if err != nil {
		return nil, fmt.Errorf("%s at offset %d: %w", d.path, offset, err)
	}
	if d.schema == nil {
		s, err := d.inferSchema(len(tokens))
		if err != nil {
			return nil, err
		}
		d.setSchema(s)
	}
	if len(tokens) > len(d.fields) {
		return nil, &SchemaMismatchError{
			Path:   d.path,
			Offset: offset,
			Reason: fmt.Sprintf("line has %d fields but the schema has %d", len(tokens), len(d.fields)),
		}
	}

	b := record.NewBuilder(d.schema)
	for i, f := range d.fields {
		if i >= len(tokens) {
			if !f.Schema().IsNullable() {
				return nil, &SchemaMismatchError{Path: d.path, Offset: offset, Field: f.Name(), Reason: "missing value"}
			}
			b.Set(f.Name(), nil)
			continue
		}
		v, err := parseToken(tokens[i], f.Schema())
		if err != nil {
			return nil, &SchemaMismatchError{Path: d.path, Offset: offset, Field: f.Name(), Err: err}
		}
		b.Set(f.Name(), v)
	}
	return b, nil
}

func (d *delimitedDecoder) Schema() *schema.Schema { return d.schema }
func (d *delimitedDecoder) Progress() float64      { return d.delegate.Progress() }
func (d *delimitedDecoder) Close() error           { return d.delegate.Close() }

// parseToken converts a token to the stored form of a field. An empty
// token is null for nullable fields.
func parseToken(token string, fs *schema.Schema) (any, error) {
	if token == "" && fs.IsNullable() {
		return nil, nil
	}
	s := fs.NonNullable()
	switch s.Type() {
	case schema.String, schema.Enum:
		return token, nil
	case schema.Boolean:
		return strconv.ParseBool(token)
	case schema.Int:
		if s.LogicalType() == schema.Date {
			if t, err := time.Parse(time.DateOnly, token); err == nil {
				return daysSinceEpoch(t), nil
			}
		}
		n, err := strconv.ParseInt(token, 10, 32)
		return int32(n), err
	case schema.Long:
		n, err := strconv.ParseInt(token, 10, 64)
		if err == nil {
			return n, nil
		}
		if t, terr := time.Parse(time.RFC3339Nano, token); terr == nil {
			switch s.LogicalType() {
			case schema.TimestampMillis:
				return t.UnixMilli(), nil
			case schema.TimestampMicros:
				return t.UnixMicro(), nil
			}
		}
		return nil, err
	case schema.Float:
		f, err := strconv.ParseFloat(token, 32)
		return float32(f), err
	case schema.Double:
		return strconv.ParseFloat(token, 64)
	case schema.Bytes, schema.Fixed:
		if s.LogicalType() == schema.Decimal {
			return decimal.NewFromString(token)
		}
		return []byte(token), nil
	}
	return nil, fmt.Errorf("cannot parse text into %s", describe(s))
}
