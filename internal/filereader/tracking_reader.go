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

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/fileinput/internal/record"
)

// NullKey is the key of every record. Records are only meaningful as values.
type NullKey struct{}

// RecordReader is the lifecycle every split reader exposes.
type RecordReader interface {
	Initialize(ctx context.Context, split Split) error
	// Next advances to the next record. False means the reader is exhausted.
	Next(ctx context.Context) (bool, error)
	Current() (*record.Record, error)
	CurrentKey() NullKey
	// Progress is the fraction of the split consumed, in [0, 1].
	Progress() float64
	Close() error
}

type readerState int

const (
	stateUninitialized readerState = iota
	stateInitialized
	stateHasRecord
	stateExhausted
	stateClosed
)

// PathTrackingReader reads one FileSplit through a Decoder and stamps the
// path field of every record with the split's path.
type PathTrackingReader struct {
	decoder   Decoder
	pathField string
	path      string
	attrs     otelmetric.MeasurementOption

	state   readerState
	current *record.Record
}

var _ RecordReader = (*PathTrackingReader)(nil)

// NewPathTrackingReader wraps a decoder. path is the value written to
// pathField; an empty pathField writes nothing.
func NewPathTrackingReader(decoder Decoder, format Format, pathField, path string) *PathTrackingReader {
	return &PathTrackingReader{
		decoder:   decoder,
		pathField: pathField,
		path:      path,
		attrs: otelmetric.WithAttributes(
			attribute.String("reader", "PathTrackingReader"),
			attribute.String("format", format.String()),
		),
	}
}

func (r *PathTrackingReader) Initialize(ctx context.Context, split Split) error {
	switch r.state {
	case stateClosed:
		return ErrReaderClosed
	case stateUninitialized:
	default:
		return fmt.Errorf("reader is already initialized")
	}
	fs, ok := split.(*FileSplit)
	if !ok {
		return fmt.Errorf("path tracking reader needs a *FileSplit, got %T", split)
	}
	if err := r.decoder.Initialize(ctx, fs); err != nil {
		recordErrorsCounter.Add(ctx, 1, r.attrs)
		return err
	}
	r.state = stateInitialized
	return nil
}

func (r *PathTrackingReader) Next(ctx context.Context) (bool, error) {
	switch r.state {
	case stateUninitialized:
		return false, ErrNotInitialized
	case stateClosed:
		return false, ErrReaderClosed
	case stateExhausted:
		return false, nil
	}
	r.current = nil
	ok, err := r.decoder.Next(ctx)
	if err != nil {
		recordErrorsCounter.Add(ctx, 1, r.attrs)
		return false, err
	}
	if !ok {
		r.state = stateExhausted
		return false, nil
	}
	recordsInCounter.Add(ctx, 1, r.attrs)
	r.state = stateHasRecord
	return true, nil
}

// Current decodes the value Next advanced to. Repeated calls return the
// same record.
func (r *PathTrackingReader) Current() (*record.Record, error) {
	if r.state == stateClosed {
		return nil, ErrReaderClosed
	}
	if r.state != stateHasRecord {
		return nil, ErrNoCurrentRecord
	}
	if r.current != nil {
		return r.current, nil
	}
	ctx := context.Background()
	b, err := r.decoder.Decode()
	if err != nil {
		recordErrorsCounter.Add(ctx, 1, r.attrs)
		return nil, err
	}
	if r.pathField != "" {
		b.Set(r.pathField, r.path)
	}
	rec, err := b.Build()
	if err != nil {
		recordErrorsCounter.Add(ctx, 1, r.attrs)
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}
	recordsOutCounter.Add(ctx, 1, r.attrs)
	r.current = rec
	return rec, nil
}

func (r *PathTrackingReader) CurrentKey() NullKey { return NullKey{} }

func (r *PathTrackingReader) Progress() float64 {
	switch r.state {
	case stateUninitialized:
		return 0
	case stateExhausted, stateClosed:
		return 1
	}
	return r.decoder.Progress()
}

// Close releases the decoder. It is safe to call more than once.
func (r *PathTrackingReader) Close() error {
	if r.state == stateClosed {
		return nil
	}
	r.state = stateClosed
	r.current = nil
	return r.decoder.Close()
}
