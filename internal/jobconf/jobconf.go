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

// Package jobconf is the string key/value configuration handed from the
// planning side of a job to every task.
//
// A Configuration is not safe for concurrent mutation. Each task works on
// its own Clone.
package jobconf

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

type Configuration struct {
	values map[string]string
}

// New returns an empty configuration.
func New() *Configuration {
	return &Configuration{values: map[string]string{}}
}

// FromMap returns a configuration holding a copy of m.
func FromMap(m map[string]string) *Configuration {
	c := New()
	maps.Copy(c.values, m)
	return c
}

func (c *Configuration) Set(key, value string) {
	c.values[key] = value
}

func (c *Configuration) Unset(key string) {
	delete(c.values, key)
}

func (c *Configuration) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetString returns the value for key, or def when unset.
func (c *Configuration) GetString(key, def string) string {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

func (c *Configuration) SetBool(key string, v bool) {
	c.values[key] = strconv.FormatBool(v)
}

// GetBool returns def when the key is unset or not a boolean.
func (c *Configuration) GetBool(key string, def bool) bool {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func (c *Configuration) SetInt64(key string, v int64) {
	c.values[key] = strconv.FormatInt(v, 10)
}

// GetInt64 returns def when the key is unset or not an integer.
func (c *Configuration) GetInt64(key string, def int64) int64 {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return def
	}
	return n
}

// SetStrings stores a comma separated list.
func (c *Configuration) SetStrings(key string, vs []string) {
	c.values[key] = strings.Join(vs, ",")
}

// GetStrings returns the non-empty elements of a comma separated list.
func (c *Configuration) GetStrings(key string) []string {
	v, ok := c.values[key]
	if !ok || v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns an independent copy.
func (c *Configuration) Clone() *Configuration {
	return FromMap(c.values)
}

// Map returns a copy of all entries.
func (c *Configuration) Map() map[string]string {
	return maps.Clone(c.values)
}

// Keys returns the keys in sorted order.
func (c *Configuration) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}
