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
	"log/slog"
	"strings"

	"github.com/cardinalhq/fileinput/internal/schema"
)

// Format names the on-disk encoding of the input files.
type Format int

const (
	FormatText Format = iota
	FormatAvro
	FormatParquet
	FormatDelimited
	FormatCSV
	FormatTSV
)

var formatNames = map[Format]string{
	FormatText:      "text",
	FormatAvro:      "avro",
	FormatParquet:   "parquet",
	FormatDelimited: "delimited",
	FormatCSV:       "csv",
	FormatTSV:       "tsv",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// IsText reports whether the format is read line by line.
func (f Format) IsText() bool {
	switch f {
	case FormatText, FormatDelimited, FormatCSV, FormatTSV:
		return true
	}
	return false
}

// Splittable reports whether a file in this format can be cut into byte
// ranges read independently.
func (f Format) Splittable() bool {
	return f.IsText()
}

// ParseFormat maps a format name to a Format, ignoring case. Unknown
// names fall back to text.
func ParseFormat(name string) Format {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return FormatText
	}
	for f, n := range formatNames {
		if n == name {
			return f
		}
	}
	slog.Warn("Unknown input format, reading as text", slog.String("format", name))
	return FormatText
}

// HeaderKey is the task configuration key a combined split publishes its
// header line under.
const HeaderKey = "combine.path.tracking.header"

// Field names of the text output schema.
const (
	OffsetField = "offset"
	BodyField   = "body"
)

// TextOutputSchema is the schema of records produced by the text format:
// the byte offset of the line, its body, and the path field if named.
func TextOutputSchema(pathField string) *schema.Schema {
	fields := []*schema.Field{
		schema.NewField(OffsetField, schema.Of(schema.Long)),
		schema.NewField(BodyField, schema.NullableOf(schema.Of(schema.String))),
	}
	if pathField != "" {
		fields = append(fields, schema.NewField(pathField, schema.NullableOf(schema.Of(schema.String))))
	}
	return schema.RecordOf("file.record", fields...)
}
