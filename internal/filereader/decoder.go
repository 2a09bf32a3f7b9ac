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
	"sync"

	"github.com/cardinalhq/fileinput/internal/record"
	"github.com/cardinalhq/fileinput/internal/schema"
)

// Decoder turns the values of one FileSplit into record builders.
//
// The builder returned by Decode has every field but the path field set;
// the caller fills that in and builds the record.
type Decoder interface {
	Initialize(ctx context.Context, split *FileSplit) error
	Next(ctx context.Context) (bool, error)
	Decode() (*record.Builder, error)
	// Schema is the schema of the records being built. For formats that
	// infer it, it is nil until the first Decode.
	Schema() *schema.Schema
	Progress() float64
	Close() error
}

// DecoderOptions carries per-reader settings to a decoder factory.
type DecoderOptions struct {
	// Schema is the configured output schema, path field included. Nil
	// means the decoder derives one.
	Schema *schema.Schema
	// PathField names the field that receives the file path. Empty means
	// no path field.
	PathField string
	// Delimiter separates fields of delimited input. Empty means the
	// format's default.
	Delimiter string
	// TextDelegate names the delegate text based decoders read through.
	TextDelegate string
	// SkipFirstLine drops the line at offset 0 of every file.
	SkipFirstLine bool
	// TimestampMicros widens timestamp-millis fields to timestamp-micros.
	TimestampMicros bool
}

// DecoderFactory builds a Decoder for a task.
type DecoderFactory func(tc *TaskContext, opts DecoderOptions) (Decoder, error)

var (
	decodersMu sync.RWMutex
	decoders   = map[Format]DecoderFactory{}
)

// RegisterDecoder sets the decoder used for a format, replacing any
// earlier registration.
func RegisterDecoder(f Format, factory DecoderFactory) {
	decodersMu.Lock()
	defer decodersMu.Unlock()
	decoders[f] = factory
}

// NewDecoder instantiates the decoder registered for f.
func NewDecoder(f Format, tc *TaskContext, opts DecoderOptions) (Decoder, error) {
	decodersMu.RLock()
	factory, ok := decoders[f]
	decodersMu.RUnlock()
	if !ok {
		return nil, &DelegateInstantiationError{Name: f.String()}
	}
	return factory(tc, opts)
}
