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

package cbor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Kind   string            `cbor:"kind"`
	Paths  []string          `cbor:"paths"`
	Start  int64             `cbor:"start"`
	Header *string           `cbor:"header,omitempty"`
	Conf   map[string]string `cbor:"conf"`
}

func TestNewConfig(t *testing.T) {
	config, err := NewConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	require.NotNil(t, config.encMode)
	require.NotNil(t, config.decMode)
}

func TestMarshalUnmarshal(t *testing.T) {
	config, err := NewConfig()
	require.NoError(t, err)

	header := "a,b,c"
	tests := []struct {
		name string
		in   envelope
	}{
		{"empty", envelope{}},
		{"full", envelope{
			Kind:   "combined",
			Paths:  []string{"s3://b/one.csv", "s3://b/two.csv"},
			Start:  1 << 40,
			Header: &header,
			Conf:   map[string]string{"k": "v", "path.tracking.format": "csv"},
		}},
		{"empty header is kept", envelope{Kind: "combined", Header: new(string)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := config.Marshal(tt.in)
			require.NoError(t, err)

			var out envelope
			require.NoError(t, config.Unmarshal(data, &out))
			assert.Equal(t, tt.in.Kind, out.Kind)
			assert.Equal(t, tt.in.Start, out.Start)
			assert.Equal(t, tt.in.Header, out.Header)
			assert.Equal(t, len(tt.in.Paths), len(out.Paths))
			assert.Equal(t, len(tt.in.Conf), len(out.Conf))
		})
	}
}

func TestMarshal_Deterministic(t *testing.T) {
	config, err := NewConfig()
	require.NoError(t, err)

	conf := map[string]string{}
	for _, k := range []string{"z", "a", "m", "b", "y"} {
		conf[k] = k
	}
	first, err := config.Marshal(conf)
	require.NoError(t, err)
	for range 10 {
		again, err := config.Marshal(conf)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestStreaming(t *testing.T) {
	config, err := NewConfig()
	require.NoError(t, err)

	var buf bytes.Buffer
	enc := config.NewEncoder(&buf)
	require.NoError(t, enc.Encode(envelope{Kind: "file", Start: 1}))
	require.NoError(t, enc.Encode(envelope{Kind: "file", Start: 2}))

	dec := config.NewDecoder(&buf)
	var a, b envelope
	require.NoError(t, dec.Decode(&a))
	require.NoError(t, dec.Decode(&b))
	assert.Equal(t, int64(1), a.Start)
	assert.Equal(t, int64(2), b.Start)
}
