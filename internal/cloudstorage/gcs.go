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
	"os"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/iterator"

	"github.com/cardinalhq/fileinput/internal/gcpclient"
)

type gcsStore struct {
	client *gcpclient.StorageClient
}

func (s *gcsStore) download(ctx context.Context, bucket, key string, dst *os.File) (int64, error) {
	ctx, span := s.client.Tracer.Start(ctx, "cloudstorage.gcsDownload",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("key", key),
		),
	)
	defer span.End()

	// ReadCompressed keeps gzip encoded objects compressed so the
	// extension still matches the content.
	reader, err := s.client.Client.Bucket(bucket).Object(key).ReadCompressed(true).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return 0, notFound("gs", bucket, key)
		}
		span.RecordError(err)
		return 0, fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	defer func() { _ = reader.Close() }()

	size, err := io.Copy(dst, reader)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("copy object content: %w", err)
	}
	return size, nil
}

func (s *gcsStore) stat(ctx context.Context, bucket, key string) (FileInfo, error) {
	attrs, err := s.client.Client.Bucket(bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return FileInfo{}, notFound("gs", bucket, key)
		}
		return FileInfo{}, fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}
	return FileInfo{Path: key, Size: attrs.Size, ModTime: attrs.Updated}, nil
}

func (s *gcsStore) list(ctx context.Context, bucket, prefix string) ([]FileInfo, error) {
	ctx, span := s.client.Tracer.Start(ctx, "cloudstorage.gcsList",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("prefix", prefix),
		),
	)
	defer span.End()

	var out []FileInfo
	it := s.client.Client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		out = append(out, FileInfo{Path: attrs.Name, Size: attrs.Size, ModTime: attrs.Updated})
	}
	return out, nil
}
