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
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cardinalhq/fileinput/internal/schema"
)

const secondsPerDay = 24 * 60 * 60

// Builder accumulates field values for one record. The first Set error is
// kept and reported by Build.
type Builder struct {
	schema *schema.Schema
	values []any
	set    []bool
	err    error
}

// NewBuilder returns a builder for a record schema.
func NewBuilder(s *schema.Schema) *Builder {
	b := &Builder{schema: s}
	if s.Type() != schema.Record {
		b.err = fmt.Errorf("cannot build a record from a %s schema", s.Type())
		return b
	}
	b.values = make([]any, len(s.Fields()))
	b.set = make([]bool, len(s.Fields()))
	return b
}

// Schema returns the schema being built.
func (b *Builder) Schema() *schema.Schema {
	return b.schema
}

// Set assigns a field. time.Time values for date, time and timestamp
// fields and *big.Rat values for decimal fields are converted to their
// stored form.
func (b *Builder) Set(name string, value any) *Builder {
	if b.err != nil {
		return b
	}
	i := b.schema.FieldIndex(name)
	if i < 0 {
		b.err = &UnknownFieldError{Field: name, Record: b.schema.Name()}
		return b
	}
	b.values[i] = normalize(b.schema.Fields()[i].Schema().NonNullable(), value)
	b.set[i] = true
	return b
}

// IsSet reports whether the field was assigned, including assigned nil.
func (b *Builder) IsSet(name string) bool {
	i := b.schema.FieldIndex(name)
	return i >= 0 && b.set != nil && b.set[i]
}

// Build returns the record, failing when a non-nullable field was never set.
func (b *Builder) Build() (*Record, error) {
	if b.err != nil {
		return nil, b.err
	}
	for i, f := range b.schema.Fields() {
		if !b.set[i] && !f.Schema().IsNullable() {
			return nil, &MissingFieldError{Field: f.Name(), Record: b.schema.Name()}
		}
	}
	values := make([]any, len(b.values))
	copy(values, b.values)
	return &Record{schema: b.schema, values: values}, nil
}

func normalize(fs *schema.Schema, value any) any {
	switch v := value.(type) {
	case time.Time:
		switch fs.LogicalType() {
		case schema.Date:
			return epochDays(v)
		case schema.TimestampMillis:
			return v.UnixMilli()
		case schema.TimestampMicros:
			return v.UnixMicro()
		}
	case *big.Rat:
		if fs.LogicalType() == schema.Decimal {
			return decimal.NewFromBigRat(v, int32(fs.Scale()))
		}
	}
	return value
}

func epochDays(t time.Time) int32 {
	secs := t.Unix()
	days := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		days--
	}
	return int32(days)
}
