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

package cloudstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// objectStore is the provider specific part of a remote FileSystem.
// Implementations return an error wrapping fs.ErrNotExist for missing objects.
type objectStore interface {
	download(ctx context.Context, bucket, key string, dst *os.File) (int64, error)
	stat(ctx context.Context, bucket, key string) (FileInfo, error)
	list(ctx context.Context, bucket, prefix string) ([]FileInfo, error)
}

type remoteFS struct {
	scheme  string
	store   objectStore
	tempDir string
}

func notFound(scheme, bucket, key string) error {
	return fmt.Errorf("%s: %w", objectURI(scheme, bucket, key), fs.ErrNotExist)
}

func (r *remoteFS) Open(ctx context.Context, p string) (File, error) {
	_, bucket, key := ParseURI(p)

	// Keep the object name so extension based format detection still works.
	f, err := os.CreateTemp(r.tempDir, "*-"+Base(p))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	attrs := metric.WithAttributes(
		attribute.String("scheme", r.scheme),
		attribute.String("bucket", bucket),
	)
	size, err := r.store.download(ctx, bucket, key, f)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		reason := "unknown"
		if errors.Is(err, fs.ErrNotExist) {
			reason = "not_found"
		}
		downloadErrors.Add(ctx, 1, attrs, metric.WithAttributes(attribute.String("reason", reason)))
		return nil, err
	}
	downloadCount.Add(ctx, 1, attrs)
	downloadBytes.Add(ctx, size, attrs)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}
	return &tempFile{osFile{File: f, size: size}}, nil
}

func (r *remoteFS) Stat(ctx context.Context, p string) (FileInfo, error) {
	_, bucket, key := ParseURI(p)
	if key != "" && !strings.HasSuffix(key, "/") {
		info, err := r.store.stat(ctx, bucket, key)
		if err == nil {
			info.Path = p
			return info, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return FileInfo{}, err
		}
	}

	children, err := r.List(ctx, p)
	if err != nil {
		return FileInfo{}, err
	}
	if len(children) == 0 {
		return FileInfo{}, notFound(r.scheme, bucket, key)
	}
	return FileInfo{Path: p, IsDir: true}, nil
}

func (r *remoteFS) List(ctx context.Context, p string) ([]FileInfo, error) {
	_, bucket, key := ParseURI(p)
	prefix := key
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	objects, err := r.store.list(ctx, bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p, err)
	}
	out := objects[:0]
	for _, o := range objects {
		// Zero byte keys ending in a slash are folder markers.
		if strings.HasSuffix(o.Path, "/") {
			continue
		}
		o.Path = objectURI(r.scheme, bucket, o.Path)
		out = append(out, o)
	}
	return out, nil
}
