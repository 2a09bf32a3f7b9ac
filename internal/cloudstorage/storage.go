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

// Package cloudstorage gives readers one view over local files and objects
// in S3, GCS and Azure Blob Storage.
//
// Paths are URIs: s3://bucket/key, gs://bucket/key, az://container/key.
// Anything else, including file:// URIs, is a local path. Remote objects
// are downloaded to a temp file when opened, and the temp file is removed
// when the File is closed.
package cloudstorage

import (
	"context"
	"io"
	"strings"
	"time"
)

// FileInfo describes a file or an object.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// File is an open, seekable, random access file.
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
	Size() int64
}

// FileSystem opens, describes and lists paths.
type FileSystem interface {
	Open(ctx context.Context, path string) (File, error)
	Stat(ctx context.Context, path string) (FileInfo, error)
	// List returns the entries below a directory. Object stores have no
	// directories, so listing a prefix yields every object beneath it.
	List(ctx context.Context, path string) ([]FileInfo, error)
}

// ParseURI splits a path into scheme, bucket and key. Local paths return
// an empty scheme and the path as key.
func ParseURI(p string) (scheme, bucket, key string) {
	i := strings.Index(p, "://")
	if i <= 0 {
		return "", "", p
	}
	scheme = strings.ToLower(p[:i])
	rest := p[i+3:]
	if scheme == "file" {
		return "", "", rest
	}
	bucket, key, _ = strings.Cut(rest, "/")
	return scheme, bucket, key
}

// Base returns the last element of a path or object key.
func Base(p string) string {
	_, _, key := ParseURI(p)
	key = strings.TrimRight(key, "/")
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}

func objectURI(scheme, bucket, key string) string {
	return scheme + "://" + bucket + "/" + key
}
