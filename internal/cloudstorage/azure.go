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
	"fmt"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/fileinput/internal/azureclient"
)

type azureStore struct {
	client *azureclient.BlobClient
}

func (s *azureStore) download(ctx context.Context, container, key string, dst *os.File) (int64, error) {
	ctx, span := s.client.Tracer.Start(ctx, "cloudstorage.azureDownload",
		trace.WithAttributes(
			attribute.String("container", container),
			attribute.String("key", key),
		),
	)
	defer span.End()

	resp, err := s.client.Client.DownloadStream(ctx, container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return 0, notFound("az", container, key)
		}
		span.RecordError(err)
		return 0, fmt.Errorf("download blob %s/%s: %w", container, key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	size, err := io.Copy(dst, resp.Body)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("copy blob content: %w", err)
	}
	return size, nil
}

func (s *azureStore) stat(ctx context.Context, container, key string) (FileInfo, error) {
	props, err := s.client.Client.ServiceClient().
		NewContainerClient(container).
		NewBlobClient(key).
		GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return FileInfo{}, notFound("az", container, key)
		}
		return FileInfo{}, fmt.Errorf("stat blob %s/%s: %w", container, key, err)
	}
	info := FileInfo{Path: key}
	if props.ContentLength != nil {
		info.Size = *props.ContentLength
	}
	if props.LastModified != nil {
		info.ModTime = *props.LastModified
	}
	return info, nil
}

func (s *azureStore) list(ctx context.Context, container, prefix string) ([]FileInfo, error) {
	ctx, span := s.client.Tracer.Start(ctx, "cloudstorage.azureList",
		trace.WithAttributes(
			attribute.String("container", container),
			attribute.String("prefix", prefix),
		),
	)
	defer span.End()

	var out []FileInfo
	pager := s.client.Client.NewListBlobsFlatPager(container, &azblob.ListBlobsFlatOptions{
		Prefix: to.Ptr(prefix),
	})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		for _, item := range resp.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			info := FileInfo{Path: *item.Name}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					info.Size = *item.Properties.ContentLength
				}
				if item.Properties.LastModified != nil {
					info.ModTime = *item.Properties.LastModified
				}
			}
			out = append(out, info)
		}
	}
	return out, nil
}
