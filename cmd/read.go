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
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
	"github.com/cardinalhq/fileinput/internal/filereader"
	"github.com/cardinalhq/fileinput/internal/inputformat"
	"github.com/cardinalhq/fileinput/internal/jobconf"
	"github.com/cardinalhq/fileinput/internal/logctx"
	"github.com/cardinalhq/fileinput/internal/record"
)

func init() {
	cmd := &cobra.Command{
		Use:   "read [inputs...]",
		Short: "Read every split of a job and print the records as JSON lines",
		Long: `Read every split of a job and print the records as JSON lines.

The job is either planned from the inputs and flags, or loaded from a plan
written by "fileinput plan". With more than one reader the order of records
from different splits is not defined.`,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			planPath, _ := c.Flags().GetString("plan")
			if planPath == "" && len(args) == 0 {
				return errors.New("either inputs or --plan are required")
			}
			return withTelemetry("fileinput-read", func(ctx context.Context) error {
				storage := cloudstorage.NewRouter(cfg.StorageOptions())
				defer func() { _ = storage.Close() }()

				var plan *inputformat.Plan
				if planPath != "" {
					plan, err = readPlan(ctx, storage, planPath)
				} else {
					plan, err = buildPlan(ctx, cfg, storage, args)
				}
				if err != nil {
					return err
				}
				ctx = logctx.With(ctx, logctx.JobID(plan.JobID))
				n, err := runPlan(ctx, storage, plan, cfg.Read.Parallel, c.OutOrStdout())
				logctx.FromContext(ctx).Info("Read job", slog.Int64("records", n), slog.Bool("ok", err == nil))
				return err
			})
		},
	}
	addInputFlags(cmd.Flags())
	addSplitFlags(cmd.Flags())
	cmd.Flags().String("plan", "", "plan file written by the plan command")
	cmd.Flags().Int("parallel", 4, "number of splits read at once")
	rootCmd.AddCommand(cmd)
}

// recordWriter serializes records from concurrent readers onto one stream.
type recordWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	n   int64
}

func newRecordWriter(w io.Writer) *recordWriter {
	return &recordWriter{enc: json.NewEncoder(w)}
}

func (w *recordWriter) write(rec *record.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(rec); err != nil {
		return err
	}
	w.n++
	return nil
}

// runPlan reads the splits of a plan, at most parallel at a time, and
// writes every record to out. The first error cancels the other readers.
func runPlan(ctx context.Context, storage cloudstorage.FileSystem, plan *inputformat.Plan, parallel int, out io.Writer) (int64, error) {
	conf := plan.Configuration()
	splits, err := plan.SplitList()
	if err != nil {
		return 0, err
	}
	format := inputformat.ForConfiguration(conf, storage)
	w := newRecordWriter(out)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for _, split := range splits {
		g.Go(func() error {
			return readSplit(gctx, format, split, conf, storage, w)
		})
	}
	err = g.Wait()
	return w.n, err
}

func readSplit(ctx context.Context, format inputformat.InputFormat, split filereader.Split, conf *jobconf.Configuration, storage cloudstorage.FileSystem, w *recordWriter) (err error) {
	ctx, span := tracer.Start(ctx, "fileinput.read.split", trace.WithAttributes(
		attribute.StringSlice("paths", split.Paths()),
		attribute.Int64("bytes", split.Len()),
	))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		attrs := metric.WithAttributeSet(attribute.NewSet(
			append(commonAttributes.ToSlice(), attribute.String("outcome", outcome))...,
		))
		splitsRead.Add(ctx, 1, attrs)
		splitDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		span.End()
	}()

	tc := &filereader.TaskContext{Conf: conf.Clone(), Storage: storage}
	r, err := format.CreateRecordReader(ctx, split, tc)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := r.Initialize(ctx, split); err != nil {
		return err
	}
	for {
		ok, err := r.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		rec, err := r.Current()
		if err != nil {
			return err
		}
		if err := w.write(rec); err != nil {
			return err
		}
	}
}
