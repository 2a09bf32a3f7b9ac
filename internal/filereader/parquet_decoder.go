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
	RegisterDecoder(FormatParquet, newParquetDecoder)
}

type parquetDecoder struct {
	reader    *parquetReader
	resolver  *Resolver
	targets   *targetSchemas
	pathField string
	schema    *schema.Schema
}

func newParquetDecoder(tc *TaskContext, opts DecoderOptions) (Decoder, error) {
	return &parquetDecoder{
		reader:    newParquetReader(tc.Storage),
		resolver:  newResolverFor(FormatParquet, opts),
		targets:   newTargetSchemas(opts.Schema, opts.PathField),
		pathField: opts.PathField,
	}, nil
}

func (d *parquetDecoder) Initialize(ctx context.Context, split *FileSplit) error {
	return d.reader.Initialize(ctx, split)
}

func (d *parquetDecoder) Next(ctx context.Context) (bool, error) {
	return d.reader.Next(ctx)
}

func (d *parquetDecoder) Decode() (*record.Builder, error) {
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
	b, err := d.resolver.Transform(MapRecord(d.reader.current), target, d.pathField)
	if err != nil {
		return nil, withLocation(err, d.reader.path, -1)
	}
	d.schema = b.Schema()
	return b, nil
}

func (d *parquetDecoder) Schema() *schema.Schema { return d.schema }
func (d *parquetDecoder) Progress() float64      { return d.reader.Progress() }
func (d *parquetDecoder) Close() error           { return d.reader.Close() }
