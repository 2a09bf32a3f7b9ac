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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/fileinput/internal/cbor"
	"github.com/cardinalhq/fileinput/internal/filereader"
)

func TestPlan_RoundTrip(t *testing.T) {
	conf := newConf(t, Descriptor{Format: filereader.FormatCSV, PathField: "file", CopyHeader: true}, "s3://bucket/in/")
	header := "a,b"
	splits := []filereader.Split{
		&filereader.FileSplit{Path: "s3://bucket/in/x.csv", Start: 0, Length: 100},
		&filereader.CombinedSplit{
			Files: []filereader.FileSplit{
				{Path: "s3://bucket/in/y.csv", Start: 0, Length: 10},
				{Path: "s3://bucket/in/z.csv", Start: 0, Length: 20},
			},
			Header: &header,
		},
		&filereader.CombinedSplit{Files: []filereader.FileSplit{{Path: "s3://bucket/in/w.csv", Length: 5}}},
	}
	p, err := NewPlan(conf, splits)
	require.NoError(t, err)
	assert.NotEmpty(t, p.JobID)

	var buf bytes.Buffer
	require.NoError(t, EncodePlan(&buf, p))
	got, err := DecodePlan(&buf)
	require.NoError(t, err)

	assert.Equal(t, p.JobID, got.JobID)
	assert.Equal(t, conf.Map(), got.Configuration().Map())
	gotSplits, err := got.SplitList()
	require.NoError(t, err)
	assert.Equal(t, splits, gotSplits)

	d, err := DescriptorFromConfiguration(got.Configuration())
	require.NoError(t, err)
	assert.Equal(t, filereader.FormatCSV, d.Format)
	assert.True(t, d.CopyHeader)
}

func TestPlan_Rejects(t *testing.T) {
	c, err := cbor.NewConfig()
	require.NoError(t, err)

	tests := []struct {
		name string
		plan Plan
		want string
	}{
		{"unknown version", Plan{Version: PlanVersion + 1}, "unsupported plan version"},
		{"empty split", Plan{Version: PlanVersion, Splits: []PlanSplit{{}}}, "exactly one split"},
		{"two splits in one entry", Plan{Version: PlanVersion, Splits: []PlanSplit{{
			File:     &filereader.FileSplit{Path: "a"},
			Combined: &filereader.CombinedSplit{},
		}}}, "exactly one split"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := c.Marshal(tt.plan)
			require.NoError(t, err)
			_, err = DecodePlan(bytes.NewReader(data))
			assert.ErrorContains(t, err, tt.want)
		})
	}

	_, err = DecodePlan(bytes.NewReader([]byte{0xff}))
	assert.Error(t, err)
}

func TestNewPlan_UnknownSplit(t *testing.T) {
	_, err := NewPlan(newConf(t, Descriptor{}), []filereader.Split{unknownSplit{}})
	assert.Error(t, err)
}

type unknownSplit struct{}

func (unknownSplit) Len() int64      { return 0 }
func (unknownSplit) Paths() []string { return nil }
