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

import "fmt"

// WithField appends a nullable string field to a record schema. A schema
// that already has the field is returned unchanged.
func WithField(s *Schema, name string) (*Schema, error) {
	if s.typ != Record {
		return nil, fmt.Errorf("cannot add field %q to non-record schema of type %s", name, s.typ)
	}
	if s.FieldIndex(name) >= 0 {
		return s, nil
	}
	fields := make([]*Field, 0, len(s.fields)+1)
	fields = append(fields, s.fields...)
	fields = append(fields, NewField(name, NullableOf(Of(String))))
	return RecordOf(s.name, fields...), nil
}

// ToMicros rewrites every timestamp-millis in s to timestamp-micros,
// descending into records, unions, arrays and maps. Schemas without
// millisecond timestamps are returned unchanged.
func ToMicros(s *Schema) *Schema {
	return toMicros(s, map[*Schema]*Schema{})
}

func toMicros(s *Schema, done map[*Schema]*Schema) *Schema {
	if r, ok := done[s]; ok {
		return r
	}
	switch s.typ {
	case Long:
		if s.logical == TimestampMillis {
			return OfLogical(TimestampMicros)
		}
		return s

	case Record:
		r := &Schema{typ: Record, name: s.name}
		done[s] = r
		changed := false
		for _, f := range s.fields {
			fs := toMicros(f.schema, done)
			changed = changed || fs != f.schema
			r.fields = append(r.fields, NewField(f.name, fs))
		}
		if !changed {
			done[s] = s
			return s
		}
		return r

	case Union:
		branches := make([]*Schema, len(s.branches))
		changed := false
		for i, b := range s.branches {
			branches[i] = toMicros(b, done)
			changed = changed || branches[i] != b
		}
		if !changed {
			return s
		}
		return UnionOf(branches...)

	case Array:
		if items := toMicros(s.items, done); items != s.items {
			return ArrayOf(items)
		}
		return s

	case Map:
		if values := toMicros(s.values, done); values != s.values {
			return MapOf(values)
		}
		return s
	}
	return s
}
