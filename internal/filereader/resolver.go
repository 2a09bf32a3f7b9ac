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
	"math"
	"math/big"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/fileinput/internal/record"
	"github.com/cardinalhq/fileinput/internal/schema"
)

// NativeSchema is a schema in a file format's own representation.
type NativeSchema interface {
	// CanonicalText is a stable textual form. Equal text means equal schema.
	CanonicalText() string
	Convert() (*schema.Schema, error)
}

// NativeRecord is a decoded value in a file format's own representation.
type NativeRecord interface {
	Get(name string) (any, bool)
}

// MapRecord adapts a map of field values to NativeRecord.
type MapRecord map[string]any

func (m MapRecord) Get(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Resolver converts native schemas and records into structured ones.
//
// Converted schemas are cached by fingerprint of their canonical text for
// the life of the Resolver. A Resolver is not safe for concurrent use; each
// reader owns its own.
type Resolver struct {
	format      string
	cache       map[uint64]*schema.Schema
	micros      bool
	microsCache map[*schema.Schema]*schema.Schema
	conversions int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTimestampMicros makes Transform target timestamp-micros wherever the
// target schema says timestamp-millis.
func WithTimestampMicros() ResolverOption {
	return func(r *Resolver) {
		r.micros = true
		r.microsCache = map[*schema.Schema]*schema.Schema{}
	}
}

// WithFormatLabel sets the format attribute on the resolver's metrics.
func WithFormatLabel(format string) ResolverOption {
	return func(r *Resolver) {
		r.format = format
	}
}

// NewResolver creates an empty Resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{cache: map[uint64]*schema.Schema{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Conversions is the number of cache misses so far.
func (r *Resolver) Conversions() int {
	return r.conversions
}

// Resolve returns the structured form of a native schema, converting it
// only the first time its canonical text is seen.
func (r *Resolver) Resolve(n NativeSchema) (*schema.Schema, error) {
	key := xxhash.Sum64String(n.CanonicalText())
	if s, ok := r.cache[key]; ok {
		return s, nil
	}
	s, err := n.Convert()
	if err != nil {
		return nil, &SchemaMismatchError{Offset: -1, Reason: "cannot convert native schema", Err: err}
	}
	r.cache[key] = s
	r.conversions++
	schemaConversionsCounter.Add(context.Background(), 1, otelmetric.WithAttributes(
		attribute.String("format", r.format),
	))
	return s, nil
}

// Target returns the schema Transform builds for target.
func (r *Resolver) Target(target *schema.Schema) *schema.Schema {
	if !r.micros {
		return target
	}
	if s, ok := r.microsCache[target]; ok {
		return s
	}
	s := schema.ToMicros(target)
	r.microsCache[target] = s
	return s
}

// Transform maps a native record onto target. skipField is left unset so
// the caller can fill it in. A field the native record lacks is null when
// the target allows it and a FieldMissingError otherwise.
func (r *Resolver) Transform(rec NativeRecord, target *schema.Schema, skipField string) (*record.Builder, error) {
	target = r.Target(target)
	if target.Type() != schema.Record {
		return nil, &SchemaMismatchError{Offset: -1, Reason: fmt.Sprintf("target schema is a %s, not a record", target.Type())}
	}
	b := record.NewBuilder(target)
	for _, f := range target.Fields() {
		if f.Name() == skipField {
			continue
		}
		v, ok := rec.Get(f.Name())
		if !ok && !f.Schema().IsNullable() {
			return nil, &FieldMissingError{Field: f.Name()}
		}
		cv, err := convertValue(v, f.Schema())
		if err != nil {
			return nil, &SchemaMismatchError{Offset: -1, Field: f.Name(), Err: err}
		}
		b.Set(f.Name(), cv)
	}
	return b, nil
}

// convertValue coerces a native value to the stored form of s.
func convertValue(v any, s *schema.Schema) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch s.Type() {
	case schema.Null:
		return nil, nil
	case schema.Union:
		nn := s.NonNullable()
		if nn.Type() != schema.Union {
			return convertValue(v, nn)
		}
		for _, b := range nn.Branches() {
			if cv, err := convertValue(v, b); err == nil {
				return cv, nil
			}
		}
		return nil, fmt.Errorf("%T matches no branch of %s", v, s)
	case schema.Record:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot use %T as record %s", v, s.Name())
		}
		return convertRecord(m, s)
	case schema.Array:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("cannot use %T as array", v)
		}
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := convertValue(item, s.Items())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = cv
		}
		return out, nil
	case schema.Map:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot use %T as map", v)
		}
		out := make(map[string]any, len(m))
		for k, item := range m {
			cv, err := convertValue(item, s.Values())
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = cv
		}
		return out, nil
	case schema.Bytes, schema.Fixed:
		if s.LogicalType() == schema.Decimal {
			return toDecimal(v, s.Scale())
		}
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			return []byte(x), nil
		}
	case schema.String:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		case fmt.Stringer:
			return x.String(), nil
		}
	case schema.Enum:
		if x, ok := v.(string); ok {
			return x, nil
		}
	case schema.Boolean:
		if x, ok := v.(bool); ok {
			return x, nil
		}
	case schema.Int:
		switch x := v.(type) {
		case time.Time:
			return daysSinceEpoch(x), nil
		case time.Duration:
			return int32(x.Milliseconds()), nil
		}
		if n, ok := toInt64(v); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n), nil
		}
	case schema.Long:
		switch x := v.(type) {
		case time.Time:
			if s.LogicalType() == schema.TimestampMicros {
				return x.UnixMicro(), nil
			}
			return x.UnixMilli(), nil
		case time.Duration:
			if s.LogicalType() == schema.TimeMicros {
				return x.Microseconds(), nil
			}
			return x.Milliseconds(), nil
		}
		if n, ok := toInt64(v); ok {
			return n, nil
		}
	case schema.Float:
		switch x := v.(type) {
		case float32:
			return x, nil
		case float64:
			return float32(x), nil
		}
		if n, ok := toInt64(v); ok {
			return float32(n), nil
		}
	case schema.Double:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		}
		if n, ok := toInt64(v); ok {
			return float64(n), nil
		}
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, describe(s))
}

func convertRecord(m map[string]any, s *schema.Schema) (*record.Record, error) {
	b := record.NewBuilder(s)
	for _, f := range s.Fields() {
		v, ok := m[f.Name()]
		if !ok && !f.Schema().IsNullable() {
			return nil, &FieldMissingError{Field: s.Name() + "." + f.Name()}
		}
		cv, err := convertValue(v, f.Schema())
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name(), err)
		}
		b.Set(f.Name(), cv)
	}
	return b.Build()
}

func describe(s *schema.Schema) string {
	if s.LogicalType() != schema.NoLogicalType {
		return s.Type().String() + "." + s.LogicalType().String()
	}
	return s.Type().String()
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x), true
		}
	}
	return 0, false
}

// toDecimal reads a decimal from the representations Avro and Parquet use:
// an exact rational, an unscaled big-endian two's complement integer, or an
// unscaled int32/int64.
func toDecimal(v any, scale int) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case *big.Rat:
		return decimal.NewFromBigRat(x, int32(scale)), nil
	case []byte:
		return decimal.NewFromBigInt(twosComplement(x), -int32(scale)), nil
	case string:
		return decimal.NewFromString(x)
	case float64:
		return decimal.NewFromFloat(x), nil
	}
	if n, ok := toInt64(v); ok {
		return decimal.New(n, -int32(scale)), nil
	}
	return decimal.Decimal{}, fmt.Errorf("cannot use %T as decimal", v)
}

func twosComplement(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b))*8))
	}
	return n
}

func daysSinceEpoch(t time.Time) int32 {
	secs := t.Unix()
	days := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		days--
	}
	return int32(days)
}

const secondsPerDay = 24 * 60 * 60
