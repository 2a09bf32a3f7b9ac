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

// Package record holds immutable structured records and their builder.
//
// Logical values are stored in their primitive form: dates as int32 days
// since the epoch, times and timestamps as int32/int64 counts of the unit
// named by the logical type, and decimals as decimal.Decimal. The typed
// getters convert back.
package record

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/cardinalhq/fileinput/internal/schema"
)

// Record is an immutable set of values conforming to one record schema.
type Record struct {
	schema *schema.Schema
	values []any
}

// Schema returns the record schema.
func (r *Record) Schema() *schema.Schema {
	return r.schema
}

// Get returns the value of the named field, or nil when the field is unset
// or unknown.
func (r *Record) Get(name string) any {
	v, _ := r.Lookup(name)
	return v
}

// Lookup returns the value of the named field and whether the field exists.
func (r *Record) Lookup(name string) (any, bool) {
	i := r.schema.FieldIndex(name)
	if i < 0 {
		return nil, false
	}
	return r.values[i], true
}

// Values returns the field values in schema order. The slice must not be
// modified.
func (r *Record) Values() []any {
	return r.values
}

// GetString returns a string field.
func (r *Record) GetString(name string) (string, bool) {
	s, ok := r.Get(name).(string)
	return s, ok
}

// GetBytes returns a bytes or fixed field.
func (r *Record) GetBytes(name string) ([]byte, bool) {
	b, ok := r.Get(name).([]byte)
	return b, ok
}

// GetTimestamp converts a timestamp-millis or timestamp-micros field to UTC time.
func (r *Record) GetTimestamp(name string) (time.Time, error) {
	f, v, err := r.logical(name)
	if err != nil || v == nil {
		return time.Time{}, err
	}
	n, ok := v.(int64)
	if !ok {
		return time.Time{}, fmt.Errorf("field %s holds %T, not a timestamp", name, v)
	}
	switch f.LogicalType() {
	case schema.TimestampMillis:
		return time.UnixMilli(n).UTC(), nil
	case schema.TimestampMicros:
		return time.UnixMicro(n).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("field %s is %s, not a timestamp", name, f.Type())
}

// GetDate converts a date field to midnight UTC of that day.
func (r *Record) GetDate(name string) (time.Time, error) {
	f, v, err := r.logical(name)
	if err != nil || v == nil {
		return time.Time{}, err
	}
	days, ok := v.(int32)
	if !ok || f.LogicalType() != schema.Date {
		return time.Time{}, fmt.Errorf("field %s is not a date", name)
	}
	return time.Unix(int64(days)*secondsPerDay, 0).UTC(), nil
}

// GetDecimal returns a decimal field.
func (r *Record) GetDecimal(name string) (decimal.Decimal, error) {
	f, v, err := r.logical(name)
	if err != nil || v == nil {
		return decimal.Decimal{}, err
	}
	d, ok := v.(decimal.Decimal)
	if !ok || f.LogicalType() != schema.Decimal {
		return decimal.Decimal{}, fmt.Errorf("field %s is not a decimal", name)
	}
	return d, nil
}

func (r *Record) logical(name string) (*schema.Schema, any, error) {
	i := r.schema.FieldIndex(name)
	if i < 0 {
		return nil, nil, &UnknownFieldError{Field: name, Record: r.schema.Name()}
	}
	return r.schema.Fields()[i].Schema().NonNullable(), r.values[i], nil
}

// MarshalJSON writes the record as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.schema.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name())
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name(), err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
