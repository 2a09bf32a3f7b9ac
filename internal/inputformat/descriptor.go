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

// Package inputformat plans input into splits and opens record readers
// over them. Everything a task needs is carried in a
// jobconf.Configuration written once by Configure.
package inputformat

import (
	"fmt"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
	"github.com/cardinalhq/fileinput/internal/filereader"
	"github.com/cardinalhq/fileinput/internal/jobconf"
	"github.com/cardinalhq/fileinput/internal/schema"
)

// Configuration keys written by Configure and SetInputPaths.
const (
	KeyPathField               = "path.tracking.path.field"
	KeyFilenameOnly            = "path.tracking.filename.only"
	KeyFormat                  = "path.tracking.format"
	KeySchema                  = "path.tracking.schema"
	KeyDelegateTextInputFormat = "path.tracking.delegate.text.input.format"
	KeyCopyHeader              = "path.tracking.copy.header"
	KeySkipHeader              = "path.tracking.skip.header"
	KeyDelimiter               = "path.tracking.delimiter"
	KeyTimestampMicros         = "path.tracking.timestamp.micros"

	KeyInputPaths     = "path.tracking.input.paths"
	KeyInputRecursive = "path.tracking.input.recursive"
	KeySplitMinSize   = "path.tracking.split.min.size"
	KeySplitMaxSize   = "path.tracking.split.max.size"
	KeyCombine        = "path.tracking.combine"
	KeyCombineMaxSize = "path.tracking.combine.max.size"
)

// DefaultMaxSplitSize bounds splits and combined splits when no size is
// configured.
const DefaultMaxSplitSize int64 = 128 << 20

// Descriptor says how the input is read. It is a value: tasks read their
// own copy back from the configuration.
type Descriptor struct {
	Format filereader.Format
	// Schema is the output schema as JSON text. Empty means inferred.
	Schema string
	// PathField names a nullable string field that receives the source path.
	PathField    string
	FilenameOnly bool
	// DelegateTextInputFormat names the text delegate; empty is the line reader.
	DelegateTextInputFormat string
	// CopyHeader shares the first line of the first file with every combined
	// split, and drops the first line of every later file.
	CopyHeader bool
	// SkipHeader drops the first line of every file.
	SkipHeader      bool
	Delimiter       string
	TimestampMicros bool
}

// Configure validates d and writes it into conf. Text input without a
// schema gets the text output schema; an explicit schema gets the path
// field appended when it lacks it.
func Configure(conf *jobconf.Configuration, d Descriptor) error {
	schemaText := d.Schema
	switch {
	case schemaText != "":
		s, err := schema.Parse(schemaText)
		if err != nil {
			return &filereader.SchemaMismatchError{Offset: -1, Reason: "invalid schema", Err: err}
		}
		if d.PathField != "" {
			if s, err = schema.WithField(s, d.PathField); err != nil {
				return &filereader.SchemaMismatchError{Offset: -1, Field: d.PathField, Err: err}
			}
		}
		schemaText = s.String()
	case d.Format == filereader.FormatText:
		schemaText = filereader.TextOutputSchema(d.PathField).String()
	}

	conf.Set(KeyFormat, d.Format.String())
	setOrUnset(conf, KeySchema, schemaText)
	setOrUnset(conf, KeyPathField, d.PathField)
	setOrUnset(conf, KeyDelegateTextInputFormat, d.DelegateTextInputFormat)
	setOrUnset(conf, KeyDelimiter, d.Delimiter)
	conf.SetBool(KeyFilenameOnly, d.FilenameOnly)
	conf.SetBool(KeyCopyHeader, d.CopyHeader)
	conf.SetBool(KeySkipHeader, d.SkipHeader)
	conf.SetBool(KeyTimestampMicros, d.TimestampMicros)
	return nil
}

func setOrUnset(conf *jobconf.Configuration, key, value string) {
	if value == "" {
		conf.Unset(key)
		return
	}
	conf.Set(key, value)
}

// DescriptorFromConfiguration reads back what Configure wrote.
func DescriptorFromConfiguration(conf *jobconf.Configuration) (Descriptor, error) {
	d := Descriptor{
		Format:                  filereader.ParseFormat(conf.GetString(KeyFormat, "")),
		Schema:                  conf.GetString(KeySchema, ""),
		PathField:               conf.GetString(KeyPathField, ""),
		FilenameOnly:            conf.GetBool(KeyFilenameOnly, false),
		DelegateTextInputFormat: conf.GetString(KeyDelegateTextInputFormat, ""),
		CopyHeader:              conf.GetBool(KeyCopyHeader, false),
		SkipHeader:              conf.GetBool(KeySkipHeader, false),
		Delimiter:               conf.GetString(KeyDelimiter, ""),
		TimestampMicros:         conf.GetBool(KeyTimestampMicros, false),
	}
	if _, err := d.ParsedSchema(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// ParsedSchema parses the schema text. It returns nil when the schema is
// inferred.
func (d Descriptor) ParsedSchema() (*schema.Schema, error) {
	if d.Schema == "" {
		return nil, nil
	}
	s, err := schema.Parse(d.Schema)
	if err != nil {
		return nil, &filereader.SchemaMismatchError{Offset: -1, Reason: "invalid configured schema", Err: err}
	}
	return s, nil
}

// PathFor is the value written to the path field for a file.
func (d Descriptor) PathFor(p string) string {
	if d.FilenameOnly {
		return cloudstorage.Base(p)
	}
	return p
}

func (d Descriptor) decoderOptions(s *schema.Schema) filereader.DecoderOptions {
	return filereader.DecoderOptions{
		Schema:          s,
		PathField:       d.PathField,
		Delimiter:       d.Delimiter,
		TextDelegate:    d.DelegateTextInputFormat,
		SkipFirstLine:   d.SkipHeader,
		TimestampMicros: d.TimestampMicros,
	}
}

// SetInputPaths replaces the input paths. Directories are expanded when
// splits are computed.
func SetInputPaths(conf *jobconf.Configuration, paths ...string) {
	conf.SetStrings(KeyInputPaths, paths)
}

// InputPaths returns the configured input paths.
func InputPaths(conf *jobconf.Configuration) []string {
	return conf.GetStrings(KeyInputPaths)
}

// SplitSizes are the bounds used when cutting files into splits.
type SplitSizes struct {
	Min, Max int64
}

// SetSplitSizes writes the split size bounds. Zero leaves a bound unset.
func SetSplitSizes(conf *jobconf.Configuration, sizes SplitSizes) {
	if sizes.Min > 0 {
		conf.SetInt64(KeySplitMinSize, sizes.Min)
	}
	if sizes.Max > 0 {
		conf.SetInt64(KeySplitMaxSize, sizes.Max)
	}
}

func splitSize(conf *jobconf.Configuration) (int64, error) {
	minSize := conf.GetInt64(KeySplitMinSize, 1)
	maxSize := conf.GetInt64(KeySplitMaxSize, DefaultMaxSplitSize)
	if minSize <= 0 || maxSize <= 0 {
		return 0, fmt.Errorf("split sizes must be positive, got min %d max %d", minSize, maxSize)
	}
	return max(minSize, maxSize), nil
}
