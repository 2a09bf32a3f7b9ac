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

	"github.com/cardinalhq/fileinput/internal/record"
	"github.com/cardinalhq/fileinput/internal/schema"
)

func init() {
	RegisterDecoder(FormatText, newTextDecoder)
}

// textDecoder emits one record per delegate value: its offset and body.
type textDecoder struct {
	delegate TextDelegate
	schema   *schema.Schema
	path     string
	// hasOffset is false for configured schemas without an offset field.
	hasOffset bool
}

func newTextDecoder(tc *TaskContext, opts DecoderOptions) (Decoder, error) {
	s := opts.Schema
	if s == nil {
		s = TextOutputSchema(opts.PathField)
	}
	if err := validateTextSchema(s); err != nil {
		return nil, err
	}
	d, err := NewTextDelegate(tc, opts.TextDelegate, TextDelegateOptions{SkipFirstLine: opts.SkipFirstLine})
	if err != nil {
		return nil, err
	}
	return &textDecoder{
		delegate:  d,
		schema:    s,
		hasOffset: s.Field(OffsetField) != nil,
	}, nil
}

// validateTextSchema checks that a schema can hold text records.
func validateTextSchema(s *schema.Schema) error {
	if s.Type() != schema.Record {
		return &SchemaMismatchError{Offset: -1, Reason: "text schema must be a record"}
	}
	body := s.Field(BodyField)
	if body == nil || body.Schema().NonNullable().Type() != schema.String {
		return &SchemaMismatchError{Offset: -1, Field: BodyField, Reason: "text schema must have a string body field"}
	}
	if off := s.Field(OffsetField); off != nil && off.Schema().NonNullable().Type() != schema.Long {
		return &SchemaMismatchError{Offset: -1, Field: OffsetField, Reason: "offset field must be a long"}
	}
	return nil
}

func (d *textDecoder) Initialize(ctx context.Context, split *FileSplit) error {
	d.path = split.Path
	return d.delegate.Initialize(ctx, split)
}

func (d *textDecoder) Next(ctx context.Context) (bool, error) {
	return d.delegate.Next(ctx)
}

func (d *textDecoder) Decode() (*record.Builder, error) {
	b := record.NewBuilder(d.schema)
	if d.hasOffset {
		b.Set(OffsetField, d.delegate.CurrentOffset())
	}
	b.Set(BodyField, d.delegate.CurrentLine())
	return b, nil
}

func (d *textDecoder) Schema() *schema.Schema { return d.schema }
func (d *textDecoder) Progress() float64      { return d.delegate.Progress() }
func (d *textDecoder) Close() error           { return d.delegate.Close() }
