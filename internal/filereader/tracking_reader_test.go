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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/fileinput/internal/record"
	"github.com/cardinalhq/fileinput/internal/schema"
)

func TestPathTrackingReader_Text(t *testing.T) {
	p := writeFile(t, t.TempDir(), "log.txt", []byte("first\nsecond\n"))

	dec, err := NewDecoder(FormatText, newTask(nil), DecoderOptions{PathField: "file"})
	require.NoError(t, err)
	recs := drainReader(t, NewPathTrackingReader(dec, FormatText, "file", "log.txt"), wholeFile(t, p))

	require.Len(t, recs, 2)
	assert.Equal(t, int64(0), recs[0].Get(OffsetField))
	assert.Equal(t, "first", recs[0].Get(BodyField))
	assert.Equal(t, int64(6), recs[1].Get(OffsetField))
	assert.Equal(t, "second", recs[1].Get(BodyField))
	for _, rec := range recs {
		assert.Equal(t, "log.txt", rec.Get("file"))
		assert.True(t, rec.Schema().Equal(TextOutputSchema("file")))
	}
}

func TestPathTrackingReader_NoPathField(t *testing.T) {
	p := writeFile(t, t.TempDir(), "log.txt", []byte("only\n"))
	dec, err := NewDecoder(FormatText, newTask(nil), DecoderOptions{})
	require.NoError(t, err)
	recs := drainReader(t, NewPathTrackingReader(dec, FormatText, "", p), wholeFile(t, p))
	require.Len(t, recs, 1)
	assert.Equal(t, []string{OffsetField, BodyField}, fieldNames(recs[0].Schema()))
}

func TestPathTrackingReader_Lifecycle(t *testing.T) {
	ctx := context.Background()
	p := writeFile(t, t.TempDir(), "log.txt", []byte("one\n"))
	dec, err := NewDecoder(FormatText, newTask(nil), DecoderOptions{})
	require.NoError(t, err)
	r := NewPathTrackingReader(dec, FormatText, "", p)

	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = r.Current()
	assert.ErrorIs(t, err, ErrNoCurrentRecord)
	assert.Equal(t, 0.0, r.Progress())
	assert.Equal(t, NullKey{}, r.CurrentKey())

	require.NoError(t, r.Initialize(ctx, wholeFile(t, p)))
	assert.Error(t, r.Initialize(ctx, wholeFile(t, p)), "second initialize")
	_, err = r.Current()
	assert.ErrorIs(t, err, ErrNoCurrentRecord, "before first Next")

	ok, err := r.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	a, err := r.Current()
	require.NoError(t, err)
	b, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, a, b)

	ok, err = r.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = r.Current()
	assert.ErrorIs(t, err, ErrNoCurrentRecord, "after exhaustion")
	ok, err = r.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "exhaustion is terminal")
	assert.Equal(t, 1.0, r.Progress())

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, ErrReaderClosed)
	_, err = r.Current()
	assert.ErrorIs(t, err, ErrReaderClosed)
}

func TestPathTrackingReader_RequiresFileSplit(t *testing.T) {
	dec, err := NewDecoder(FormatText, newTask(nil), DecoderOptions{})
	require.NoError(t, err)
	r := NewPathTrackingReader(dec, FormatText, "", "x")
	defer func() { _ = r.Close() }()
	assert.Error(t, r.Initialize(context.Background(), &CombinedSplit{}))
}

type stubDecoder struct {
	nextErr   error
	decodeErr error
	closed    int
}

func (s *stubDecoder) Initialize(context.Context, *FileSplit) error { return nil }
func (s *stubDecoder) Next(context.Context) (bool, error)           { return s.nextErr == nil, s.nextErr }
func (s *stubDecoder) Schema() *schema.Schema                       { return TextOutputSchema("") }
func (s *stubDecoder) Progress() float64                            { return 0.5 }

func (s *stubDecoder) Decode() (*record.Builder, error) {
	if s.decodeErr != nil {
		return nil, s.decodeErr
	}
	return record.NewBuilder(s.Schema()).Set(BodyField, "x"), nil
}

func (s *stubDecoder) Close() error {
	s.closed++
	return nil
}

func TestPathTrackingReader_PropagatesErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	dec := &stubDecoder{nextErr: boom}
	r := NewPathTrackingReader(dec, FormatText, "", "x")
	require.NoError(t, r.Initialize(ctx, &FileSplit{Path: "x"}))
	_, err := r.Next(ctx)
	assert.Same(t, boom, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 1, dec.closed)

	dec = &stubDecoder{decodeErr: boom}
	r = NewPathTrackingReader(dec, FormatText, "", "x")
	require.NoError(t, r.Initialize(ctx, &FileSplit{Path: "x"}))
	ok, err := r.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.5, r.Progress())
	_, err = r.Current()
	assert.Same(t, boom, err)

	// Build fails: offset is required and the stub never sets it.
	dec = &stubDecoder{}
	r = NewPathTrackingReader(dec, FormatText, "", "x")
	require.NoError(t, r.Initialize(ctx, &FileSplit{Path: "x"}))
	_, err = r.Next(ctx)
	require.NoError(t, err)
	_, err = r.Current()
	var mf *record.MissingFieldError
	assert.ErrorAs(t, err, &mf)
}

func TestTextDecoder_SchemaValidation(t *testing.T) {
	tests := []struct {
		name   string
		schema *schema.Schema
		ok     bool
	}{
		{"default", TextOutputSchema("f"), true},
		{"body only", schema.RecordOf("r", schema.NewField(BodyField, schema.Of(schema.String))), true},
		{"no body", schema.RecordOf("r", schema.NewField("line", schema.Of(schema.String))), false},
		{"body not string", schema.RecordOf("r", schema.NewField(BodyField, schema.Of(schema.Long))), false},
		{"offset not long", schema.RecordOf("r",
			schema.NewField(BodyField, schema.Of(schema.String)),
			schema.NewField(OffsetField, schema.Of(schema.String))), false},
		{"not a record", schema.Of(schema.String), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder(FormatText, newTask(nil), DecoderOptions{Schema: tt.schema})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"text", FormatText},
		{"AVRO", FormatAvro},
		{" Parquet ", FormatParquet},
		{"csv", FormatCSV},
		{"tsv", FormatTSV},
		{"delimited", FormatDelimited},
		{"orc", FormatText},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFormat(tt.in))
		})
	}
	assert.True(t, FormatCSV.Splittable())
	assert.False(t, FormatAvro.Splittable())
	assert.False(t, FormatParquet.IsText())
	assert.Equal(t, "parquet", FormatParquet.String())
}

func TestNewDecoder_Unregistered(t *testing.T) {
	_, err := NewDecoder(Format(99), newTask(nil), DecoderOptions{})
	assert.ErrorIs(t, err, ErrDelegateInstantiation)
}
