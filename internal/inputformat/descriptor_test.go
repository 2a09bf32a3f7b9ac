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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/fileinput/internal/filereader"
	"github.com/cardinalhq/fileinput/internal/jobconf"
	"github.com/cardinalhq/fileinput/internal/schema"
)

func TestConfigure_RoundTrip(t *testing.T) {
	d := Descriptor{
		Format:                  filereader.FormatCSV,
		Schema:                  `{"type":"record","name":"r","fields":[{"name":"a","type":"long"}]}`,
		PathField:               "file",
		FilenameOnly:            true,
		DelegateTextInputFormat: filereader.TagDelimitedDelegate,
		CopyHeader:              true,
		SkipHeader:              true,
		Delimiter:               ";",
		TimestampMicros:         true,
	}
	conf := jobconf.New()
	require.NoError(t, Configure(conf, d))

	got, err := DescriptorFromConfiguration(conf)
	require.NoError(t, err)

	wantSchema, err := schema.Parse(`{"type":"record","name":"r","fields":[{"name":"a","type":"long"},{"name":"file","type":["null","string"]}]}`)
	require.NoError(t, err)
	gotSchema, err := got.ParsedSchema()
	require.NoError(t, err)
	assert.True(t, wantSchema.Equal(gotSchema), "got %s", got.Schema)

	want := d
	want.Schema = got.Schema
	assert.Equal(t, want, got)
	assert.Equal(t, "csv", conf.GetString(KeyFormat, ""))
}

func TestConfigure_TextDefaultSchema(t *testing.T) {
	conf := jobconf.New()
	require.NoError(t, Configure(conf, Descriptor{Format: filereader.FormatText, PathField: "file"}))

	d, err := DescriptorFromConfiguration(conf)
	require.NoError(t, err)
	s, err := d.ParsedSchema()
	require.NoError(t, err)
	assert.True(t, s.Equal(filereader.TextOutputSchema("file")))
	assert.Equal(t, "file.record", s.Name())
}

func TestConfigure_InferredSchema(t *testing.T) {
	conf := jobconf.New()
	conf.Set(KeySchema, "stale")
	require.NoError(t, Configure(conf, Descriptor{Format: filereader.FormatAvro}))

	_, ok := conf.Get(KeySchema)
	assert.False(t, ok)
	d, err := DescriptorFromConfiguration(conf)
	require.NoError(t, err)
	s, err := d.ParsedSchema()
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestConfigure_ExistingPathFieldKept(t *testing.T) {
	text := `{"type":"record","name":"r","fields":[{"name":"file","type":["null","string"]}]}`
	conf := jobconf.New()
	require.NoError(t, Configure(conf, Descriptor{Format: filereader.FormatParquet, Schema: text, PathField: "file"}))
	s, err := schema.Parse(conf.GetString(KeySchema, ""))
	require.NoError(t, err)
	assert.Len(t, s.Fields(), 1)
}

func TestConfigure_InvalidSchema(t *testing.T) {
	err := Configure(jobconf.New(), Descriptor{Format: filereader.FormatAvro, Schema: "{not json"})
	assert.ErrorIs(t, err, filereader.ErrSchemaMismatch)

	err = Configure(jobconf.New(), Descriptor{Format: filereader.FormatAvro, Schema: `"string"`, PathField: "file"})
	assert.ErrorIs(t, err, filereader.ErrSchemaMismatch, "path field needs a record")

	conf := jobconf.New()
	conf.Set(KeySchema, "{broken")
	_, err = DescriptorFromConfiguration(conf)
	assert.ErrorIs(t, err, filereader.ErrSchemaMismatch)
}

func TestDescriptor_PathFor(t *testing.T) {
	assert.Equal(t, "s3://b/dir/a.csv", Descriptor{}.PathFor("s3://b/dir/a.csv"))
	assert.Equal(t, "a.csv", Descriptor{FilenameOnly: true}.PathFor("s3://b/dir/a.csv"))
	assert.Equal(t, "a.csv", Descriptor{FilenameOnly: true}.PathFor("/tmp/a.csv"))
}

func TestSplitSizes(t *testing.T) {
	conf := jobconf.New()
	size, err := splitSize(conf)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxSplitSize, size)

	SetSplitSizes(conf, SplitSizes{Min: 10, Max: 5})
	size, err = splitSize(conf)
	require.NoError(t, err)
	assert.Equal(t, int64(10), size, "min wins over max")

	conf.SetInt64(KeySplitMaxSize, -1)
	_, err = splitSize(conf)
	assert.Error(t, err)
}
