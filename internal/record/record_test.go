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

package record

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/fileinput/internal/schema"
)

func testSchema() *schema.Schema {
	return schema.RecordOf("test",
		schema.NewField("id", schema.Of(schema.Long)),
		schema.NewField("body", schema.NullableOf(schema.Of(schema.String))),
		schema.NewField("ts", schema.NullableOf(schema.OfLogical(schema.TimestampMillis))),
		schema.NewField("day", schema.NullableOf(schema.OfLogical(schema.Date))),
		schema.NewField("amount", schema.NullableOf(schema.DecimalOf(10, 2))),
	)
}

func TestBuilder_Build(t *testing.T) {
	r, err := NewBuilder(testSchema()).
		Set("id", int64(7)).
		Set("body", "hello").
		Build()
	require.NoError(t, err)

	assert.Equal(t, int64(7), r.Get("id"))
	s, ok := r.GetString("body")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)
	assert.Nil(t, r.Get("ts"))

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestBuilder_MissingRequiredField(t *testing.T) {
	_, err := NewBuilder(testSchema()).Set("body", "x").Build()
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "id", missing.Field)
}

func TestBuilder_ExplicitNullCountsAsSet(t *testing.T) {
	b := NewBuilder(testSchema()).Set("id", nil)
	assert.True(t, b.IsSet("id"))
	assert.False(t, b.IsSet("body"))
	_, err := b.Build()
	assert.NoError(t, err)
}

func TestBuilder_UnknownField(t *testing.T) {
	_, err := NewBuilder(testSchema()).Set("nope", 1).Set("id", int64(1)).Build()
	var unknown *UnknownFieldError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Field)
}

func TestBuilder_NonRecordSchema(t *testing.T) {
	_, err := NewBuilder(schema.Of(schema.String)).Build()
	assert.Error(t, err)
}

func TestBuilder_LogicalConversions(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 11, 12, 345_000_000, time.UTC)
	r, err := NewBuilder(testSchema()).
		Set("id", int64(1)).
		Set("ts", ts).
		Set("day", time.Date(1969, 12, 31, 12, 0, 0, 0, time.UTC)).
		Set("amount", big.NewRat(12345, 100)).
		Build()
	require.NoError(t, err)

	assert.Equal(t, ts.UnixMilli(), r.Get("ts"))
	got, err := r.GetTimestamp("ts")
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	assert.Equal(t, int32(-1), r.Get("day"))
	day, err := r.GetDate("day")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC), day)

	amount, err := r.GetDecimal("amount")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("123.45").Equal(amount))
}

func TestRecord_GettersOnNullAndWrongType(t *testing.T) {
	r, err := NewBuilder(testSchema()).Set("id", int64(1)).Build()
	require.NoError(t, err)

	ts, err := r.GetTimestamp("ts")
	assert.NoError(t, err)
	assert.True(t, ts.IsZero())

	_, err = r.GetTimestamp("id")
	assert.Error(t, err)

	_, err = r.GetDate("missing")
	assert.Error(t, err)
}

func TestRecord_MarshalJSON(t *testing.T) {
	r, err := NewBuilder(testSchema()).
		Set("id", int64(3)).
		Set("body", "a\"b").
		Build()
	require.NoError(t, err)

	b, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"id":3,"body":"a\"b","ts":null,"day":null,"amount":null}`, string(b))
}

func TestRecord_IsImmutable(t *testing.T) {
	b := NewBuilder(testSchema()).Set("id", int64(1))
	r1, err := b.Build()
	require.NoError(t, err)

	b.Set("id", int64(2))
	r2, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, int64(1), r1.Get("id"))
	assert.Equal(t, int64(2), r2.Get("id"))
}
