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
	"fmt"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
	"github.com/cardinalhq/fileinput/internal/jobconf"
)

// Split is a unit of input handed to one reader.
type Split interface {
	// Len is the number of bytes covered by the split.
	Len() int64
	Paths() []string
}

// FileSplit is a byte range of one file.
type FileSplit struct {
	Path   string `cbor:"path"`
	Start  int64  `cbor:"start"`
	Length int64  `cbor:"length"`
}

var _ Split = (*FileSplit)(nil)

func (s *FileSplit) Len() int64      { return s.Length }
func (s *FileSplit) Paths() []string { return []string{s.Path} }
func (s *FileSplit) End() int64      { return s.Start + s.Length }

func (s *FileSplit) String() string {
	return fmt.Sprintf("%s:%d+%d", s.Path, s.Start, s.Length)
}

// CombinedSplit groups whole files, or chunks of large files, into one
// unit of work. Header, when set, is the shared first line of every file.
type CombinedSplit struct {
	Files  []FileSplit `cbor:"files"`
	Header *string     `cbor:"header,omitempty"`
}

var _ Split = (*CombinedSplit)(nil)

func (s *CombinedSplit) Len() int64 {
	var n int64
	for _, f := range s.Files {
		n += f.Length
	}
	return n
}

func (s *CombinedSplit) Paths() []string {
	out := make([]string, len(s.Files))
	for i, f := range s.Files {
		out[i] = f.Path
	}
	return out
}

// TaskContext is what a reader gets from the task running it.
type TaskContext struct {
	Conf    *jobconf.Configuration
	Storage cloudstorage.FileSystem
}
