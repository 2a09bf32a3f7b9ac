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

package schema

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventSchema = `{"type":"record","name":"com.example.Event","fields":[` +
	`{"name":"id","type":"long"},` +
	`{"name":"name","type":["null","string"]},` +
	`{"name":"ts","type":{"type":"long","logicalType":"timestamp-millis"}},` +
	`{"name":"day","type":{"type":"int","logicalType":"date"}},` +
	`{"name":"price","type":{"type":"bytes","logicalType":"decimal","precision":10,"scale":2}},` +
	`{"name":"tags","type":{"type":"array","items":"string"}},` +
	`{"name":"attrs","type":{"type":"map","values":["null","long"]}},` +
	`{"name":"kind","type":{"type":"enum","name":"com.example.Kind","symbols":["A","B"]}},` +
	`{"name":"inner","type":["null",{"type":"record","name":"com.example.Inner","fields":[{"name":"at","type":["null",{"type":"long","logicalType":"timestamp-millis"}]}]}]},` +
	`{"name":"again","type":["null","com.example.Inner"]}` +
	`]}`

func TestParse_RoundTrip(t *testing.T) {
	s, err := Parse(eventSchema)
	require.NoError(t, err)

	assert.Equal(t, Record, s.Type())
	assert.Equal(t, "com.example.Event", s.Name())
	require.Len(t, s.Fields(), 10)

	assert.Equal(t, eventSchema, s.String())

	again, err := Parse(s.String())
	require.NoError(t, err)
	assert.True(t, s.Equal(again))
	assert.Equal(t, s.Fingerprint(), again.Fingerprint())
}

func TestParse_FieldTypes(t *testing.T) {
	s, err := Parse(eventSchema)
	require.NoError(t, err)

	tests := []struct {
		field    string
		typ      Type
		logical  LogicalType
		nullable bool
	}{
		{"id", Long, NoLogicalType, false},
		{"name", Union, NoLogicalType, true},
		{"ts", Long, TimestampMillis, false},
		{"day", Int, Date, false},
		{"price", Bytes, Decimal, false},
		{"tags", Array, NoLogicalType, false},
		{"attrs", Map, NoLogicalType, false},
		{"kind", Enum, NoLogicalType, false},
		{"inner", Union, NoLogicalType, true},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f := s.Field(tt.field)
			require.NotNil(t, f)
			assert.Equal(t, tt.typ, f.Schema().Type())
			assert.Equal(t, tt.logical, f.Schema().LogicalType())
			assert.Equal(t, tt.nullable, f.Schema().IsNullable())
		})
	}

	price := s.Field("price").Schema()
	assert.Equal(t, 10, price.Precision())
	assert.Equal(t, 2, price.Scale())

	// Named references resolve to the same definition.
	assert.Same(t, s.Field("inner").Schema().NonNullable(), s.Field("again").Schema().NonNullable())
}

func TestParse_Namespaces(t *testing.T) {
	s, err := Parse(`{"type":"record","name":"Outer","namespace":"ns","fields":[` +
		`{"name":"a","type":{"type":"fixed","name":"Hash","size":16}},` +
		`{"name":"b","type":"Hash"}]}`)
	require.NoError(t, err)

	assert.Equal(t, "ns.Outer", s.Name())
	assert.Equal(t, "ns.Hash", s.Field("a").Schema().Name())
	assert.Equal(t, 16, s.Field("a").Schema().Size())
	assert.Same(t, s.Field("a").Schema(), s.Field("b").Schema())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not json", `{`},
		{"unknown type", `"nope"`},
		{"record without name", `{"type":"record","fields":[]}`},
		{"object without type", `{"name":"x"}`},
		{"field without name", `{"type":"record","name":"r","fields":[{"type":"int"}]}`},
		{"bad field type", `{"type":"record","name":"r","fields":[{"name":"a","type":"Missing"}]}`},
		{"number", `42`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			assert.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestParse_IgnoresMismatchedLogicalType(t *testing.T) {
	s, err := Parse(`{"type":"string","logicalType":"timestamp-millis"}`)
	require.NoError(t, err)
	assert.Equal(t, String, s.Type())
	assert.Equal(t, NoLogicalType, s.LogicalType())
}

func TestNullable(t *testing.T) {
	str := Of(String)
	assert.False(t, str.IsNullable())

	n := NullableOf(str)
	assert.True(t, n.IsNullable())
	assert.Same(t, str, n.NonNullable())
	assert.Same(t, n, NullableOf(n))

	multi := UnionOf(Of(Null), Of(Int), Of(String))
	nn := multi.NonNullable()
	assert.Equal(t, Union, nn.Type())
	assert.Len(t, nn.Branches(), 2)
	assert.False(t, nn.IsNullable())

	assert.True(t, Of(Null).IsNullable())
}

func TestWithField(t *testing.T) {
	base := RecordOf("r", NewField("a", Of(Int)))

	s, err := WithField(base, "file")
	require.NoError(t, err)
	require.Len(t, s.Fields(), 2)
	assert.Equal(t, "file", s.Fields()[1].Name())
	assert.True(t, s.Fields()[1].Schema().IsNullable())
	assert.Equal(t, String, s.Fields()[1].Schema().NonNullable().Type())
	assert.Len(t, base.Fields(), 1, "base schema must not change")

	same, err := WithField(s, "file")
	require.NoError(t, err)
	assert.Same(t, s, same)

	_, err = WithField(Of(String), "file")
	assert.Error(t, err)
}

func TestToMicros(t *testing.T) {
	s, err := Parse(eventSchema)
	require.NoError(t, err)

	m := ToMicros(s)
	assert.Equal(t, TimestampMicros, m.Field("ts").Schema().LogicalType())

	inner := m.Field("inner").Schema().NonNullable()
	at := inner.Field("at").Schema()
	assert.True(t, at.IsNullable())
	assert.Equal(t, TimestampMicros, at.NonNullable().LogicalType())

	// Untouched fields keep their schemas.
	assert.Same(t, s.Field("tags").Schema(), m.Field("tags").Schema())

	// Original is immutable.
	assert.Equal(t, TimestampMillis, s.Field("ts").Schema().LogicalType())

	plain := RecordOf("p", NewField("x", Of(Long)))
	assert.Same(t, plain, ToMicros(plain))
}

func TestToMicros_Collections(t *testing.T) {
	arr := ArrayOf(OfLogical(TimestampMillis))
	assert.Equal(t, TimestampMicros, ToMicros(arr).Items().LogicalType())

	m := MapOf(NullableOf(OfLogical(TimestampMillis)))
	assert.Equal(t, TimestampMicros, ToMicros(m).Values().NonNullable().LogicalType())
}

func TestFingerprint(t *testing.T) {
	a := RecordOf("r", NewField("a", Of(Int)))
	b := RecordOf("r", NewField("a", Of(Int)))
	c := RecordOf("r", NewField("a", Of(Long)))

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestFromArrow(t *testing.T) {
	as := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "small", Type: arrow.PrimitiveTypes.Int16},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "ok", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "ts", Type: &arrow.TimestampType{Unit: arrow.Millisecond}},
		{Name: "tsu", Type: &arrow.TimestampType{Unit: arrow.Microsecond}},
		{Name: "day", Type: arrow.FixedWidthTypes.Date32},
		{Name: "amount", Type: &arrow.Decimal128Type{Precision: 12, Scale: 3}},
		{Name: "tags", Type: arrow.ListOf(arrow.BinaryTypes.String)},
		{Name: "attrs", Type: arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int64)},
		{Name: "nested", Type: arrow.StructOf(arrow.Field{Name: "x", Type: arrow.PrimitiveTypes.Int32})},
	}, nil)

	s, err := FromArrow("parquet", as)
	require.NoError(t, err)
	require.Len(t, s.Fields(), 12)

	tests := []struct {
		field    string
		typ      Type
		logical  LogicalType
		nullable bool
	}{
		{"id", Long, NoLogicalType, false},
		{"name", String, NoLogicalType, true},
		{"small", Int, NoLogicalType, false},
		{"score", Double, NoLogicalType, true},
		{"ok", Boolean, NoLogicalType, false},
		{"ts", Long, TimestampMillis, false},
		{"tsu", Long, TimestampMicros, false},
		{"day", Int, Date, false},
		{"amount", Bytes, Decimal, false},
		{"tags", Array, NoLogicalType, false},
		{"attrs", Map, NoLogicalType, false},
		{"nested", Record, NoLogicalType, false},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			fs := s.Field(tt.field).Schema()
			assert.Equal(t, tt.nullable, fs.IsNullable())
			fs = fs.NonNullable()
			assert.Equal(t, tt.typ, fs.Type())
			assert.Equal(t, tt.logical, fs.LogicalType())
		})
	}

	assert.Equal(t, 12, s.Field("amount").Schema().Precision())
	assert.Equal(t, "parquet.nested", s.Field("nested").Schema().Name())

	// The result is a valid, parseable schema.
	_, err = Parse(s.String())
	require.NoError(t, err)
}

func TestFromArrow_Unsupported(t *testing.T) {
	as := arrow.NewSchema([]arrow.Field{
		{Name: "m", Type: arrow.MapOf(arrow.PrimitiveTypes.Int32, arrow.PrimitiveTypes.Int32)},
	}, nil)
	_, err := FromArrow("parquet", as)
	assert.Error(t, err)
}
