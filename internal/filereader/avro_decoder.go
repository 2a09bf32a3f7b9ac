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

	"github.com/cardinalhq/fileinput/internal/record"
	"github.com/cardinalhq/fileinput/internal/schema"
)

func init() {
	RegisterDecoder(FormatAvro, newAvroDecoder)
}

type avroDecoder struct {
	reader    *avroReader
	resolver  *Resolver
	targets   *targetSchemas
	pathField string
	schema    *schema.Schema
}

func newAvroDecoder(tc *TaskContext, opts DecoderOptions) (Decoder, error) {
	return &avroDecoder{
		reader:    newAvroReader(tc.Storage),
		resolver:  newResolverFor(FormatAvro, opts),
		targets:   newTargetSchemas(opts.Schema, opts.PathField),
		pathField: opts.PathField,
	}, nil
}

func (d *avroDecoder) Initialize(ctx context.Context, split *FileSplit) error {
	return d.reader.Initialize(ctx, split)
}

func (d *avroDecoder) Next(ctx context.Context) (bool, error) {
	return d.reader.Next(ctx)
}

func (d *avroDecoder) Decode() (*record.Builder, error) {
	if d.reader.current == nil {
		return nil, ErrNoCurrentRecord
	}
	native, err := d.resolver.Resolve(d.reader.native)
	if err != nil {
		return nil, withLocation(err, d.reader.path, -1)
	}
	target, err := d.targets.forBase(native)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.reader.path, err)
	}
	plain, _ := unwrapAvro(d.reader.current, native).(map[string]any)
	b, err := d.resolver.Transform(MapRecord(plain), target, d.pathField)
	if err != nil {
		return nil, withLocation(err, d.reader.path, -1)
	}
	d.schema = b.Schema()
	return b, nil
}

func (d *avroDecoder) Schema() *schema.Schema { return d.schema }
func (d *avroDecoder) Progress() float64      { return d.reader.Progress() }
func (d *avroDecoder) Close() error           { return d.reader.Close() }

func newResolverFor(f Format, opts DecoderOptions) *Resolver {
	ropts := []ResolverOption{WithFormatLabel(f.String())}
	if opts.TimestampMicros {
		ropts = append(ropts, WithTimestampMicros())
	}
	return NewResolver(ropts...)
}

// targetSchemas picks the output schema for a record: the configured one,
// or the resolved file schema plus the path field. Augmented schemas are
// memoized per base schema.
type targetSchemas struct {
	configured *schema.Schema
	pathField  string
	augmented  map[*schema.Schema]*schema.Schema
}

func newTargetSchemas(configured *schema.Schema, pathField string) *targetSchemas {
	return &targetSchemas{
		configured: configured,
		pathField:  pathField,
		augmented:  map[*schema.Schema]*schema.Schema{},
	}
}

func (t *targetSchemas) forBase(base *schema.Schema) (*schema.Schema, error) {
	if t.configured != nil {
		return t.configured, nil
	}
	if s, ok := t.augmented[base]; ok {
		return s, nil
	}
	s := base
	if t.pathField != "" {
		var err error
		if s, err = schema.WithField(base, t.pathField); err != nil {
			return nil, err
		}
	}
	t.augmented[base] = s
	return s, nil
}
