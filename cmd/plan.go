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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/fileinput/config"
	"github.com/cardinalhq/fileinput/internal/cloudstorage"
	"github.com/cardinalhq/fileinput/internal/inputformat"
	"github.com/cardinalhq/fileinput/internal/jobconf"
	"github.com/cardinalhq/fileinput/internal/logctx"
)

func init() {
	cmd := &cobra.Command{
		Use:   "plan [inputs...]",
		Short: "Compute the splits of a job and write them as a plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			out, _ := c.Flags().GetString("out")
			return withTelemetry("fileinput-plan", func(ctx context.Context) error {
				storage := cloudstorage.NewRouter(cfg.StorageOptions())
				defer func() { _ = storage.Close() }()

				plan, err := buildPlan(ctx, cfg, storage, args)
				if err != nil {
					return err
				}
				return writePlan(plan, out, c.OutOrStdout())
			})
		},
	}
	addInputFlags(cmd.Flags())
	addSplitFlags(cmd.Flags())
	cmd.Flags().String("out", "", "plan file to write; stdout when empty")
	rootCmd.AddCommand(cmd)
}

// newJob writes the configured job for inputs into a fresh configuration.
func newJob(cfg *config.Config, inputs []string) (*jobconf.Configuration, error) {
	conf := jobconf.New()
	if err := cfg.Apply(conf, inputs); err != nil {
		return nil, err
	}
	return conf, nil
}

func buildPlan(ctx context.Context, cfg *config.Config, storage cloudstorage.FileSystem, inputs []string) (*inputformat.Plan, error) {
	conf, err := newJob(cfg, inputs)
	if err != nil {
		return nil, err
	}
	splits, err := inputformat.ForConfiguration(conf, storage).GetSplits(ctx, conf)
	if err != nil {
		return nil, err
	}
	plan, err := inputformat.NewPlan(conf, splits)
	if err != nil {
		return nil, err
	}
	logctx.FromContext(ctx).Info("Planned job",
		logctx.JobID(plan.JobID),
		slog.Int("splits", len(plan.Splits)))
	return plan, nil
}

func writePlan(plan *inputformat.Plan, path string, stdout io.Writer) error {
	if path == "" {
		return inputformat.EncodePlan(stdout, plan)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plan file: %w", err)
	}
	if err := inputformat.EncodePlan(f, plan); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// readPlan loads a plan from any path the storage can open.
func readPlan(ctx context.Context, storage cloudstorage.FileSystem, path string) (*inputformat.Plan, error) {
	f, err := storage.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	defer func() { _ = f.Close() }()
	return inputformat.DecodePlan(f)
}
