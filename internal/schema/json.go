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
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// ErrInvalidSchema is wrapped by every Parse failure.
var ErrInvalidSchema = errors.New("invalid schema")

// Parse reads a schema from its JSON form.
func Parse(text string) (*Schema, error) {
	return ParseBytes([]byte(text))
}

// ParseBytes reads a schema from its JSON form.
func ParseBytes(data []byte) (*Schema, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	p := &parser{named: map[string]*Schema{}}
	return p.parse(raw, "")
}

type parser struct {
	named map[string]*Schema
}

func (p *parser) parse(v any, namespace string) (*Schema, error) {
	switch t := v.(type) {
	case string:
		return p.reference(t, namespace)
	case []any:
		branches := make([]*Schema, 0, len(t))
		for _, b := range t {
			s, err := p.parse(b, namespace)
			if err != nil {
				return nil, err
			}
			branches = append(branches, s)
		}
		return UnionOf(branches...), nil
	case map[string]any:
		return p.parseObject(t, namespace)
	default:
		return nil, fmt.Errorf("%w: unexpected JSON value %v", ErrInvalidSchema, v)
	}
}

func (p *parser) reference(name, namespace string) (*Schema, error) {
	if t, ok := primitiveByName(name); ok {
		return Of(t), nil
	}
	if s, ok := p.named[fullName(name, "", namespace)]; ok {
		return s, nil
	}
	if s, ok := p.named[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidSchema, name)
}

func (p *parser) parseObject(m map[string]any, namespace string) (*Schema, error) {
	typ, ok := m["type"]
	if !ok {
		return nil, fmt.Errorf("%w: object without type", ErrInvalidSchema)
	}
	name, ok := typ.(string)
	if !ok {
		return p.parse(typ, namespace)
	}

	switch name {
	case "record", "error":
		full, err := namedOf(m, namespace)
		if err != nil {
			return nil, err
		}
		s := &Schema{typ: Record, name: full}
		p.named[full] = s

		rawFields, _ := m["fields"].([]any)
		inner := namespaceOf(full)
		for _, rf := range rawFields {
			fm, ok := rf.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: record %s has a malformed field", ErrInvalidSchema, full)
			}
			fname, _ := fm["name"].(string)
			if fname == "" {
				return nil, fmt.Errorf("%w: record %s has a field without name", ErrInvalidSchema, full)
			}
			fs, err := p.parse(fm["type"], inner)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", full, fname, err)
			}
			s.fields = append(s.fields, NewField(fname, fs))
		}
		return s, nil

	case "enum":
		full, err := namedOf(m, namespace)
		if err != nil {
			return nil, err
		}
		raw, _ := m["symbols"].([]any)
		symbols := make([]string, 0, len(raw))
		for _, r := range raw {
			sym, ok := r.(string)
			if !ok {
				return nil, fmt.Errorf("%w: enum %s has a non-string symbol", ErrInvalidSchema, full)
			}
			symbols = append(symbols, sym)
		}
		s := EnumOf(full, symbols...)
		p.named[full] = s
		return s, nil

	case "fixed":
		full, err := namedOf(m, namespace)
		if err != nil {
			return nil, err
		}
		s := FixedOf(full, intAttr(m, "size"))
		if logical, _ := m["logicalType"].(string); logical == "decimal" {
			s.logical = Decimal
			s.precision = intAttr(m, "precision")
			s.scale = intAttr(m, "scale")
		}
		p.named[full] = s
		return s, nil

	case "array":
		items, err := p.parse(m["items"], namespace)
		if err != nil {
			return nil, err
		}
		return ArrayOf(items), nil

	case "map":
		values, err := p.parse(m["values"], namespace)
		if err != nil {
			return nil, err
		}
		return MapOf(values), nil
	}

	base, err := p.reference(name, namespace)
	if err != nil {
		return nil, err
	}
	if !base.typ.IsPrimitive() {
		return base, nil
	}
	logical, _ := m["logicalType"].(string)
	return withLogical(base.typ, logical, m), nil
}

// withLogical applies a logical type annotation. Annotations that do not
// fit the primitive are ignored, as Avro readers do.
func withLogical(t Type, logical string, m map[string]any) *Schema {
	switch logical {
	case "date":
		if t == Int {
			return OfLogical(Date)
		}
	case "time-millis":
		if t == Int {
			return OfLogical(TimeMillis)
		}
	case "time-micros":
		if t == Long {
			return OfLogical(TimeMicros)
		}
	case "timestamp-millis":
		if t == Long {
			return OfLogical(TimestampMillis)
		}
	case "timestamp-micros":
		if t == Long {
			return OfLogical(TimestampMicros)
		}
	case "decimal":
		if t == Bytes {
			return DecimalOf(intAttr(m, "precision"), intAttr(m, "scale"))
		}
	}
	return Of(t)
}

func primitiveByName(name string) (Type, bool) {
	for t := Null; t <= String; t++ {
		if typeNames[t] == name {
			return t, true
		}
	}
	return 0, false
}

func namedOf(m map[string]any, enclosing string) (string, error) {
	name, _ := m["name"].(string)
	if name == "" {
		return "", fmt.Errorf("%w: named type without name", ErrInvalidSchema)
	}
	ns, _ := m["namespace"].(string)
	return fullName(name, ns, enclosing), nil
}

func fullName(name, namespace, enclosing string) string {
	if strings.Contains(name, ".") {
		return name
	}
	if namespace == "" {
		namespace = enclosing
	}
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

func namespaceOf(full string) string {
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		return full[:i]
	}
	return ""
}

func intAttr(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

// MarshalJSON writes the Avro JSON form. Named types are written in full at
// their first occurrence and by name afterwards.
func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.appendJSON(&buf, map[string]bool{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Schema) appendJSON(buf *bytes.Buffer, seen map[string]bool) error {
	switch s.typ {
	case Union:
		buf.WriteByte('[')
		for i, b := range s.branches {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := b.appendJSON(buf, seen); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case Record, Enum, Fixed:
		if seen[s.name] {
			return writeString(buf, s.name)
		}
		seen[s.name] = true
		buf.WriteString(`{"type":`)
		_ = writeString(buf, s.typ.String())
		buf.WriteString(`,"name":`)
		if err := writeString(buf, s.name); err != nil {
			return err
		}
		switch s.typ {
		case Record:
			buf.WriteString(`,"fields":[`)
			for i, f := range s.fields {
				if i > 0 {
					buf.WriteByte(',')
				}
				buf.WriteString(`{"name":`)
				if err := writeString(buf, f.name); err != nil {
					return err
				}
				buf.WriteString(`,"type":`)
				if err := f.schema.appendJSON(buf, seen); err != nil {
					return err
				}
				buf.WriteByte('}')
			}
			buf.WriteByte(']')
		case Enum:
			buf.WriteString(`,"symbols":`)
			b, err := json.Marshal(s.symbols)
			if err != nil {
				return err
			}
			buf.Write(b)
		case Fixed:
			fmt.Fprintf(buf, `,"size":%d`, s.size)
			if s.logical == Decimal {
				fmt.Fprintf(buf, `,"logicalType":"decimal","precision":%d,"scale":%d`, s.precision, s.scale)
			}
		}
		buf.WriteByte('}')
		return nil

	case Array:
		buf.WriteString(`{"type":"array","items":`)
		if err := s.items.appendJSON(buf, seen); err != nil {
			return err
		}
		buf.WriteByte('}')
		return nil

	case Map:
		buf.WriteString(`{"type":"map","values":`)
		if err := s.values.appendJSON(buf, seen); err != nil {
			return err
		}
		buf.WriteByte('}')
		return nil
	}

	if !s.typ.IsPrimitive() {
		return fmt.Errorf("%w: unknown type %d", ErrInvalidSchema, s.typ)
	}
	switch s.logical {
	case NoLogicalType:
		return writeString(buf, s.typ.String())
	case Decimal:
		fmt.Fprintf(buf, `{"type":%q,"logicalType":"decimal","precision":%d,"scale":%d}`, s.typ.String(), s.precision, s.scale)
	default:
		fmt.Fprintf(buf, `{"type":%q,"logicalType":%q}`, s.typ.String(), s.logical.String())
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
