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

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cardinalhq/fileinput/config"
	"github.com/cardinalhq/fileinput/internal/filereader"
	"github.com/cardinalhq/fileinput/internal/inputformat"
)

// addInputFlags registers the flags describing the input. Their values
// reach the job through config.Load, which binds them over the
// environment and the configuration file.
func addInputFlags(fs *pflag.FlagSet) {
	fs.String("format", filereader.FormatText.String(), "input format: text, csv, tsv, delimited, avro or parquet")
	fs.String("schema", "", "output schema as Avro JSON; inferred when empty")
	fs.String("path-field", "", "field that receives the path of the source file")
	fs.Bool("filename-only", false, "write only the base name to the path field")
	fs.String("delegate-text-input-format", "", fmt.Sprintf("text delegate, one of %v", filereader.TextDelegates()))
	fs.Bool("copy-header", false, "share the first line of the first file across combined splits")
	fs.Bool("skip-header", false, "drop the first line of every file")
	fs.String("delimiter", "", "field delimiter for delimited input")
	fs.Bool("timestamp-micros", false, "emit timestamps in microseconds")
	fs.Bool("recursive", false, "descend into subdirectories of input paths")
	fs.String("tag-start", "", "start tag for the tag-delimited delegate")
	fs.String("tag-end", "", "end tag for the tag-delimited delegate")
}

// addSplitFlags registers the flags controlling split computation.
func addSplitFlags(fs *pflag.FlagSet) {
	fs.Bool("combine", false, "pack files into combined splits")
	fs.Int64("min-split-size", 1, "minimum split size in bytes")
	fs.Int64("max-split-size", inputformat.DefaultMaxSplitSize, "maximum split size in bytes")
	fs.Int64("combine-max-size", inputformat.DefaultMaxSplitSize, "maximum combined split size in bytes")
}

// loadConfig loads the configuration with the command's flags bound.
func loadConfig(c *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(c.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
