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
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/fileinput/internal/schema"
)

type metricRow struct {
	Name  string  `parquet:"name"`
	Value float64 `parquet:"value"`
	Count int64   `parquet:"count"`
	Unit  *string `parquet:"unit,optional"`
}

func writeParquet(t *testing.T, dir, name string, rows []metricRow) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, parquet.WriteFile(p, rows))
	return p
}

func TestParquetDecoder(t *testing.T) {
	unit := "ms"
	rows := make([]metricRow, 600)
	for i := range rows {
		rows[i] = metricRow{Name: "latency", Value: float64(i) / 2, Count: int64(i)}
	}
	rows[3].Unit = &unit
	p := writeParquet(t, t.TempDir(), "metrics.parquet", rows)

	got, s := readFile(t, FormatParquet, newTask(nil), DecoderOptions{PathField: "file"}, p)
	require.Len(t, got, len(rows), "rows span several read batches")

	for i, row := range got {
		assert.Equal(t, "latency", row["name"])
		assert.Equal(t, float64(i)/2, row["value"])
		assert.Equal(t, int64(i), row["count"])
		assert.Equal(t, p, row["file"])
	}
	assert.Equal(t, "ms", got[3]["unit"])
	assert.Nil(t, got[4]["unit"])

	require.NotNil(t, s)
	assert.Equal(t, schema.Record, s.Type())
	assert.Equal(t, schema.Double, s.Field("value").Schema().NonNullable().Type())
	assert.True(t, s.Field("unit").Schema().IsNullable())
	assert.NotNil(t, s.Field("file"))
}

func TestParquetDecoder_SchemaResolvedOnce(t *testing.T) {
	p := writeParquet(t, t.TempDir(), "metrics.parquet", []metricRow{{Name: "a"}, {Name: "b"}, {Name: "c"}})

	dec, err := NewDecoder(FormatParquet, newTask(nil), DecoderOptions{})
	require.NoError(t, err)
	pd := dec.(*parquetDecoder)

	r := NewPathTrackingReader(dec, FormatParquet, "", p)
	recs := drainReader(t, r, wholeFile(t, p))
	require.Len(t, recs, 3)
	assert.Equal(t, 1, pd.resolver.Conversions())
	assert.Same(t, recs[0].Schema(), recs[2].Schema())
}
