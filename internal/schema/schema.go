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

// Package schema is the structured schema model shared by every decoder.
//
// A Schema is immutable once constructed. Nullable values are modelled as a
// union with null, and the JSON form is the Avro schema dialect so that
// schemas can travel through job configuration as plain strings.
package schema

import (
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Type is the structural kind of a Schema.
type Type int

const (
	Null Type = iota
	Boolean
	Int
	Long
	Float
	Double
	Bytes
	String
	Enum
	Fixed
	Array
	Map
	Record
	Union
)

var typeNames = [...]string{
	Null:    "null",
	Boolean: "boolean",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	Bytes:   "bytes",
	String:  "string",
	Enum:    "enum",
	Fixed:   "fixed",
	Array:   "array",
	Map:     "map",
	Record:  "record",
	Union:   "union",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// IsPrimitive reports whether values of this type carry no nested schema.
func (t Type) IsPrimitive() bool {
	return t <= String
}

// LogicalType refines how a primitive value is interpreted.
type LogicalType int

const (
	NoLogicalType LogicalType = iota
	Date
	TimeMillis
	TimeMicros
	TimestampMillis
	TimestampMicros
	Decimal
)

var logicalNames = [...]string{
	NoLogicalType:   "",
	Date:            "date",
	TimeMillis:      "time-millis",
	TimeMicros:      "time-micros",
	TimestampMillis: "timestamp-millis",
	TimestampMicros: "timestamp-micros",
	Decimal:         "decimal",
}

func (l LogicalType) String() string {
	if int(l) < len(logicalNames) {
		return logicalNames[l]
	}
	return "unknown"
}

// physical returns the primitive type that stores the logical type.
func (l LogicalType) physical() Type {
	switch l {
	case Date, TimeMillis:
		return Int
	case TimeMicros, TimestampMillis, TimestampMicros:
		return Long
	case Decimal:
		return Bytes
	default:
		return Null
	}
}

// Field is a named member of a record schema.
type Field struct {
	name   string
	schema *Schema
}

// NewField returns a record field.
func NewField(name string, s *Schema) *Field {
	return &Field{name: name, schema: s}
}

func (f *Field) Name() string    { return f.name }
func (f *Field) Schema() *Schema { return f.schema }

// Schema describes the shape of a value.
type Schema struct {
	typ     Type
	logical LogicalType

	// name is the full name of records, enums and fixed types.
	name     string
	fields   []*Field
	items    *Schema
	values   *Schema
	branches []*Schema
	symbols  []string
	size     int

	precision int
	scale     int
}

// Of returns a schema for a primitive type.
func Of(t Type) *Schema {
	return &Schema{typ: t}
}

// OfLogical returns a schema for a logical type stored in its usual
// primitive. Use DecimalOf for decimals.
func OfLogical(l LogicalType) *Schema {
	if l == Decimal {
		return DecimalOf(38, 0)
	}
	return &Schema{typ: l.physical(), logical: l}
}

// DecimalOf returns a bytes-backed decimal schema.
func DecimalOf(precision, scale int) *Schema {
	return &Schema{typ: Bytes, logical: Decimal, precision: precision, scale: scale}
}

// RecordOf returns a record schema with the fields in the given order.
func RecordOf(name string, fields ...*Field) *Schema {
	return &Schema{typ: Record, name: name, fields: slices.Clone(fields)}
}

// ArrayOf returns an array schema.
func ArrayOf(items *Schema) *Schema {
	return &Schema{typ: Array, items: items}
}

// MapOf returns a map schema with string keys.
func MapOf(values *Schema) *Schema {
	return &Schema{typ: Map, values: values}
}

// UnionOf returns a union schema.
func UnionOf(branches ...*Schema) *Schema {
	return &Schema{typ: Union, branches: slices.Clone(branches)}
}

// EnumOf returns an enum schema.
func EnumOf(name string, symbols ...string) *Schema {
	return &Schema{typ: Enum, name: name, symbols: slices.Clone(symbols)}
}

// FixedOf returns a fixed-size bytes schema.
func FixedOf(name string, size int) *Schema {
	return &Schema{typ: Fixed, name: name, size: size}
}

// NullableOf wraps s in a union with null. Already nullable schemas are
// returned unchanged.
func NullableOf(s *Schema) *Schema {
	if s.IsNullable() {
		return s
	}
	return UnionOf(Of(Null), s)
}

func (s *Schema) Type() Type                   { return s.typ }
func (s *Schema) LogicalType() LogicalType     { return s.logical }
func (s *Schema) Name() string                 { return s.name }
func (s *Schema) Fields() []*Field             { return s.fields }
func (s *Schema) Items() *Schema               { return s.items }
func (s *Schema) Values() *Schema              { return s.values }
func (s *Schema) Branches() []*Schema          { return s.branches }
func (s *Schema) Symbols() []string            { return s.symbols }
func (s *Schema) Size() int                    { return s.size }
func (s *Schema) Precision() int               { return s.precision }
func (s *Schema) Scale() int                   { return s.scale }
func (s *Schema) IsLogical(l LogicalType) bool { return s.logical == l }

// Field returns the named field of a record schema, or nil.
func (s *Schema) Field(name string) *Field {
	if i := s.FieldIndex(name); i >= 0 {
		return s.fields[i]
	}
	return nil
}

// FieldIndex returns the position of the named field, or -1.
func (s *Schema) FieldIndex(name string) int {
	for i, f := range s.fields {
		if f.name == name {
			return i
		}
	}
	return -1
}

// IsNullable reports whether null is a valid value for the schema.
func (s *Schema) IsNullable() bool {
	if s.typ == Null {
		return true
	}
	if s.typ != Union {
		return false
	}
	for _, b := range s.branches {
		if b.typ == Null {
			return true
		}
	}
	return false
}

// NonNullable strips null from a union. A union with a single non-null
// branch collapses to that branch.
func (s *Schema) NonNullable() *Schema {
	if s.typ != Union {
		return s
	}
	rest := make([]*Schema, 0, len(s.branches))
	for _, b := range s.branches {
		if b.typ != Null {
			rest = append(rest, b)
		}
	}
	switch len(rest) {
	case len(s.branches):
		return s
	case 1:
		return rest[0]
	default:
		return UnionOf(rest...)
	}
}

// Equal reports whether two schemas have the same JSON form.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s == o || s.String() == o.String()
}

// Fingerprint is a 64-bit hash of the JSON form.
func (s *Schema) Fingerprint() uint64 {
	return xxhash.Sum64String(s.String())
}

// String returns the JSON form of the schema.
func (s *Schema) String() string {
	b, err := s.MarshalJSON()
	if err != nil {
		return "<invalid schema: " + err.Error() + ">"
	}
	return string(b)
}
