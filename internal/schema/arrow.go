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
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// FromArrow converts an Arrow schema, as derived from Parquet metadata, into
// a record schema with the given name. Nullable Arrow fields become unions
// with null.
func FromArrow(name string, as *arrow.Schema) (*Schema, error) {
	fields := make([]*Field, 0, as.NumFields())
	for _, f := range as.Fields() {
		fs, err := fromArrowField(name, f)
		if err != nil {
			return nil, err
		}
		fields = append(fields, NewField(f.Name, fs))
	}
	return RecordOf(name, fields...), nil
}

func fromArrowField(parent string, f arrow.Field) (*Schema, error) {
	s, err := fromArrowType(parent+"."+f.Name, f.Type)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}
	if f.Nullable && s.typ != Null {
		return NullableOf(s), nil
	}
	return s, nil
}

func fromArrowType(name string, dt arrow.DataType) (*Schema, error) {
	switch t := dt.(type) {
	case *arrow.TimestampType:
		if t.Unit == arrow.Second || t.Unit == arrow.Millisecond {
			return OfLogical(TimestampMillis), nil
		}
		return OfLogical(TimestampMicros), nil
	case *arrow.Time32Type:
		return OfLogical(TimeMillis), nil
	case *arrow.Time64Type:
		return OfLogical(TimeMicros), nil
	case *arrow.Decimal128Type:
		return DecimalOf(int(t.Precision), int(t.Scale)), nil
	case *arrow.Decimal256Type:
		return DecimalOf(int(t.Precision), int(t.Scale)), nil
	case *arrow.ListType:
		items, err := fromArrowField(name, t.ElemField())
		if err != nil {
			return nil, err
		}
		return ArrayOf(items), nil
	case *arrow.LargeListType:
		items, err := fromArrowField(name, t.ElemField())
		if err != nil {
			return nil, err
		}
		return ArrayOf(items), nil
	case *arrow.MapType:
		if t.KeyType().ID() != arrow.STRING && t.KeyType().ID() != arrow.LARGE_STRING {
			return nil, fmt.Errorf("map keys of type %s are not supported", t.KeyType())
		}
		values, err := fromArrowField(name, t.ItemField())
		if err != nil {
			return nil, err
		}
		return MapOf(values), nil
	case *arrow.StructType:
		fields := make([]*Field, 0, t.NumFields())
		for _, f := range t.Fields() {
			fs, err := fromArrowField(name, f)
			if err != nil {
				return nil, err
			}
			fields = append(fields, NewField(f.Name, fs))
		}
		return RecordOf(name, fields...), nil
	}

	switch dt.ID() {
	case arrow.NULL:
		return Of(Null), nil
	case arrow.BOOL:
		return Of(Boolean), nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.UINT8, arrow.UINT16:
		return Of(Int), nil
	case arrow.INT64, arrow.UINT32, arrow.UINT64:
		return Of(Long), nil
	case arrow.FLOAT16, arrow.FLOAT32:
		return Of(Float), nil
	case arrow.FLOAT64:
		return Of(Double), nil
	case arrow.STRING, arrow.LARGE_STRING:
		return Of(String), nil
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return Of(Bytes), nil
	case arrow.DATE32, arrow.DATE64:
		return OfLogical(Date), nil
	}
	return nil, fmt.Errorf("unsupported arrow type %s", dt)
}
