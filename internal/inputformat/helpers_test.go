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

package inputformat

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
	"github.com/cardinalhq/fileinput/internal/filereader"
	"github.com/cardinalhq/fileinput/internal/jobconf"
	"github.com/cardinalhq/fileinput/internal/record"
)

// writeTree creates files below a new temp dir. Names may contain slashes.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func newConf(t *testing.T, d Descriptor, inputs ...string) *jobconf.Configuration {
	t.Helper()
	conf := jobconf.New()
	require.NoError(t, Configure(conf, d))
	SetInputPaths(conf, inputs...)
	return conf
}

// readAll runs a reader over every split, in order, the way a task would.
func readAll(t *testing.T, f InputFormat, conf *jobconf.Configuration) []*record.Record {
	t.Helper()
	ctx := context.Background()
	splits, err := f.GetSplits(ctx, conf)
	require.NoError(t, err)

	var out []*record.Record
	for _, split := range splits {
		tc := &filereader.TaskContext{Conf: conf.Clone(), Storage: cloudstorage.LocalFS{}}
		r, err := f.CreateRecordReader(ctx, split, tc)
		require.NoError(t, err)
		require.NoError(t, r.Initialize(ctx, split))
		for {
			ok, err := r.Next(ctx)
			require.NoError(t, err)
			if !ok {
				break
			}
			rec, err := r.Current()
			require.NoError(t, err)
			out = append(out, rec)
		}
		require.NoError(t, r.Close())
	}
	return out
}

func bodies(recs []*record.Record) []any {
	out := make([]any, len(recs))
	for i, r := range recs {
		out[i] = r.Get(filereader.BodyField)
	}
	return out
}
