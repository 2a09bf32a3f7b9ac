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
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cardinalhq/fileinput/config"
	"github.com/cardinalhq/fileinput/internal/cloudstorage"
	"github.com/cardinalhq/fileinput/internal/inputformat"
	"github.com/cardinalhq/fileinput/internal/schema"
)

func init() {
	cmd := &cobra.Command{
		Use:   "schema [inputs...]",
		Short: "Print the schema records of a job would have",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			output, _ := c.Flags().GetString("output")
			return withTelemetry("fileinput-schema", func(ctx context.Context) error {
				storage := cloudstorage.NewRouter(cfg.StorageOptions())
				defer func() { _ = storage.Close() }()

				s, err := detectSchema(ctx, cfg, storage, args)
				if err != nil {
					return err
				}
				return writeSchema(c.OutOrStdout(), s, output)
			})
		},
	}
	addInputFlags(cmd.Flags())
	cmd.Flags().StringP("output", "o", "json", "output format: json or yaml")
	rootCmd.AddCommand(cmd)
}

func detectSchema(ctx context.Context, cfg *config.Config, storage cloudstorage.FileSystem, inputs []string) (*schema.Schema, error) {
	conf, err := newJob(cfg, inputs)
	if err != nil {
		return nil, err
	}
	f := &inputformat.PathTrackingInputFormat{Storage: storage}
	return f.DetectSchema(ctx, conf)
}

// writeSchema prints s as indented JSON or as YAML, keeping the field
// order of the JSON form.
func writeSchema(w io.Writer, s *schema.Schema, output string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	switch output {
	case "json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(w)
		return err
	case "yaml":
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return err
		}
		blockStyle(&doc)
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q, want json or yaml", output)
}

// blockStyle drops the flow and quoting styles yaml.v3 keeps from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
