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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
	"github.com/cardinalhq/fileinput/internal/filereader"
	"github.com/cardinalhq/fileinput/internal/jobconf"
)

func TestFileSplits(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		splitLen int64
		slop     float64
		canSplit bool
		want     [][2]int64
	}{
		{"empty file", 0, 10, splitSlop, true, [][2]int64{{0, 0}}},
		{"smaller than a split", 5, 10, splitSlop, true, [][2]int64{{0, 5}}},
		{"tail within slop", 105, 100, splitSlop, true, [][2]int64{{0, 105}}},
		{"tail beyond slop", 250, 100, splitSlop, true, [][2]int64{{0, 100}, {100, 100}, {200, 50}}},
		{"exact multiple", 28, 7, splitSlop, true, [][2]int64{{0, 7}, {7, 7}, {14, 7}, {21, 7}}},
		{"unsplittable", 250, 100, splitSlop, false, [][2]int64{{0, 250}}},
		{"no slop cuts the tail", 105, 100, 1, true, [][2]int64{{0, 100}, {100, 5}}},
		{"no slop exact multiple", 200, 100, 1, true, [][2]int64{{0, 100}, {100, 100}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fileSplits(cloudstorage.FileInfo{Path: "f", Size: tt.size}, tt.splitLen, tt.slop, tt.canSplit)
			require.Len(t, got, len(tt.want))
			for i, w := range tt.want {
				assert.Equal(t, "f", got[i].Path)
				assert.Equal(t, w[0], got[i].Start, "split %d start", i)
				assert.Equal(t, w[1], got[i].Length, "split %d length", i)
			}
		})
	}
}

func TestSplittable(t *testing.T) {
	assert.True(t, splittable(filereader.FormatText, "a.log"))
	assert.True(t, splittable(filereader.FormatCSV, "a.csv"))
	assert.False(t, splittable(filereader.FormatCSV, "a.csv.gz"))
	assert.False(t, splittable(filereader.FormatText, "a.log.zst"))
	assert.False(t, splittable(filereader.FormatAvro, "a.avro"))
	assert.False(t, splittable(filereader.FormatParquet, "a.parquet"))
}

func TestIsHidden(t *testing.T) {
	assert.False(t, isHidden("a.txt"))
	assert.False(t, isHidden("dir/a_b.txt"))
	assert.True(t, isHidden("_SUCCESS"))
	assert.True(t, isHidden(".crc"))
	assert.True(t, isHidden("_tmp/a.txt"))
	assert.True(t, isHidden("dir/.staging/a.txt"))
}

func splitPaths(splits []filereader.Split) []string {
	var out []string
	for _, s := range splits {
		out = append(out, s.Paths()...)
	}
	return out
}

func TestGetSplits_Listing(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.txt":          "a\n",
		"b.txt":          "b\n",
		"_SUCCESS":       "",
		".a.txt.crc":     "x",
		"sub/c.txt":      "c\n",
		"_tmp/d.txt":     "d\n",
		"sub/.e/e.txt":   "e\n",
		"sub/deep/f.txt": "f\n",
	})
	p := func(name string) string { return filepath.Join(dir, name) }

	tests := []struct {
		name      string
		inputs    []string
		recursive bool
		want      []string
	}{
		{"top level only", []string{dir}, false, []string{p("a.txt"), p("b.txt")}},
		{"recursive", []string{dir}, true, []string{p("a.txt"), p("b.txt"), p("sub/c.txt"), p("sub/deep/f.txt")}},
		{"single file", []string{p("b.txt")}, false, []string{p("b.txt")}},
		{"duplicates listed once", []string{p("a.txt"), dir, p("a.txt")}, false, []string{p("a.txt"), p("b.txt")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := newConf(t, Descriptor{Format: filereader.FormatText}, tt.inputs...)
			conf.SetBool(KeyInputRecursive, tt.recursive)
			f := &PathTrackingInputFormat{Storage: cloudstorage.LocalFS{}}
			splits, err := f.GetSplits(context.Background(), conf)
			require.NoError(t, err)
			assert.Equal(t, tt.want, splitPaths(splits))
		})
	}
}

func TestGetSplits_Errors(t *testing.T) {
	f := &PathTrackingInputFormat{Storage: cloudstorage.LocalFS{}}

	_, err := f.GetSplits(context.Background(), newConf(t, Descriptor{}))
	assert.ErrorContains(t, err, "no input paths")

	missing := filepath.Join(t.TempDir(), "missing")
	_, err = f.GetSplits(context.Background(), newConf(t, Descriptor{}, missing))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPathTracking_ReadsEveryLineOnce(t *testing.T) {
	dir := writeTree(t, map[string]string{"in.txt": "one\ntwo\nthree\nfour\nfive\nsix\n"})
	path := filepath.Join(dir, "in.txt")

	tests := []struct {
		name         string
		filenameOnly bool
		want         string
	}{
		{"full path", false, path},
		{"filename only", true, "in.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := newConf(t, Descriptor{Format: filereader.FormatText, PathField: "file", FilenameOnly: tt.filenameOnly}, dir)
			SetSplitSizes(conf, SplitSizes{Max: 7})
			f := &PathTrackingInputFormat{Storage: cloudstorage.LocalFS{}}

			splits, err := f.GetSplits(context.Background(), conf)
			require.NoError(t, err)
			assert.Len(t, splits, 4)

			recs := readAll(t, f, conf)
			assert.Equal(t, []any{"one", "two", "three", "four", "five", "six"}, bodies(recs))
			for _, r := range recs {
				assert.Equal(t, tt.want, r.Get("file"))
			}
			assert.Equal(t, int64(8), recs[2].Get(filereader.OffsetField))
		})
	}
}

func TestPathTracking_CompressedSingleSplit(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("x\ny\nz\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	dir := writeTree(t, map[string]string{"in.log.gz": buf.String()})

	conf := newConf(t, Descriptor{Format: filereader.FormatText}, dir)
	SetSplitSizes(conf, SplitSizes{Max: 2})
	f := &PathTrackingInputFormat{Storage: cloudstorage.LocalFS{}}

	splits, err := f.GetSplits(context.Background(), conf)
	require.NoError(t, err)
	assert.Len(t, splits, 1)
	assert.Equal(t, []any{"x", "y", "z"}, bodies(readAll(t, f, conf)))
}

func TestPathTracking_SkipHeader(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.csv": "h1,h2\n1,2\n3,4\n"})
	conf := newConf(t, Descriptor{Format: filereader.FormatCSV, SkipHeader: true}, dir)
	f := &PathTrackingInputFormat{Storage: cloudstorage.LocalFS{}}

	recs := readAll(t, f, conf)
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].Get("body_1"))
	assert.Equal(t, "4", recs[1].Get("body_2"))
}

func TestPathTracking_CreateRecordReaderWrongSplit(t *testing.T) {
	f := &PathTrackingInputFormat{Storage: cloudstorage.LocalFS{}}
	tc := &filereader.TaskContext{Conf: newConf(t, Descriptor{}), Storage: cloudstorage.LocalFS{}}
	_, err := f.CreateRecordReader(context.Background(), &filereader.CombinedSplit{}, tc)
	assert.Error(t, err)
}

func TestDetectSchema(t *testing.T) {
	t.Run("inferred from first record", func(t *testing.T) {
		dir := writeTree(t, map[string]string{"a.csv": "", "b.csv": "1,x\n2,y\n"})
		conf := newConf(t, Descriptor{Format: filereader.FormatCSV, PathField: "file"}, dir)
		f := &PathTrackingInputFormat{Storage: cloudstorage.LocalFS{}}

		s, err := f.DetectSchema(context.Background(), conf)
		require.NoError(t, err)
		var names []string
		for _, fld := range s.Fields() {
			names = append(names, fld.Name())
		}
		assert.Equal(t, []string{"body_1", "body_2", "file"}, names)
	})

	t.Run("configured schema", func(t *testing.T) {
		conf := newConf(t, Descriptor{Format: filereader.FormatText, PathField: "file"}, "/does/not/matter")
		f := &PathTrackingInputFormat{Storage: cloudstorage.LocalFS{}}

		s, err := f.DetectSchema(context.Background(), conf)
		require.NoError(t, err)
		assert.True(t, s.Equal(filereader.TextOutputSchema("file")))
	})

	t.Run("no records", func(t *testing.T) {
		dir := writeTree(t, map[string]string{"a.csv": ""})
		conf := newConf(t, Descriptor{Format: filereader.FormatCSV}, dir)
		f := &PathTrackingInputFormat{Storage: cloudstorage.LocalFS{}}

		_, err := f.DetectSchema(context.Background(), conf)
		assert.ErrorIs(t, err, ErrNoRecords)
	})
}

func TestForConfiguration(t *testing.T) {
	conf := jobconf.New()
	assert.IsType(t, &PathTrackingInputFormat{}, ForConfiguration(conf, cloudstorage.LocalFS{}))
	conf.SetBool(KeyCombine, true)
	assert.IsType(t, &CombineTextInputFormat{}, ForConfiguration(conf, cloudstorage.LocalFS{}))
}
