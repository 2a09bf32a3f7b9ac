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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
	"github.com/cardinalhq/fileinput/internal/jobconf"
	"github.com/cardinalhq/fileinput/internal/record"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, content, 0o644))
	return p
}

func wholeFile(t *testing.T, p string) *FileSplit {
	t.Helper()
	st, err := os.Stat(p)
	require.NoError(t, err)
	return &FileSplit{Path: p, Start: 0, Length: st.Size()}
}

func newTask(conf map[string]string) *TaskContext {
	return &TaskContext{
		Conf:    jobconf.FromMap(conf),
		Storage: cloudstorage.LocalFS{},
	}
}

type textValue struct {
	offset int64
	line   string
}

func drainDelegate(t *testing.T, d TextDelegate, split *FileSplit) []textValue {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, d.Initialize(ctx, split))
	defer func() { require.NoError(t, d.Close()) }()

	var out []textValue
	for {
		ok, err := d.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, textValue{d.CurrentOffset(), d.CurrentLine()})
	}
	return out
}

func drainReader(t *testing.T, r RecordReader, split Split) []*record.Record {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.Initialize(ctx, split))
	defer func() { require.NoError(t, r.Close()) }()

	var out []*record.Record
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
	return out
}
