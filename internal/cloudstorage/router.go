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
	"sync"

	"github.com/cardinalhq/fileinput/internal/awsclient"
	"github.com/cardinalhq/fileinput/internal/azureclient"
	"github.com/cardinalhq/fileinput/internal/gcpclient"
)

// Options configures the remote providers. Providers are only contacted
// when a path with their scheme is first used.
type Options struct {
	TempDir string

	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
	S3Role      string
	S3AccessKey string
	S3SecretKey string

	GCSEndpoint       string
	GCSServiceAccount string

	AzureAccount  string
	AzureEndpoint string
}

// Router is a FileSystem that dispatches on the path scheme.
type Router struct {
	opts  Options
	local LocalFS

	mu      sync.Mutex
	remotes map[string]FileSystem
	gcp     *gcpclient.Manager
}

var _ FileSystem = (*Router)(nil)

func NewRouter(opts Options) *Router {
	return &Router{opts: opts, remotes: map[string]FileSystem{}}
}

// Register installs a FileSystem for a scheme, replacing the built-in one.
func (r *Router) Register(scheme string, fs FileSystem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remotes[scheme] = fs
}

func (r *Router) Open(ctx context.Context, p string) (File, error) {
	fs, err := r.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	return fs.Open(ctx, p)
}

func (r *Router) Stat(ctx context.Context, p string) (FileInfo, error) {
	fs, err := r.resolve(ctx, p)
	if err != nil {
		return FileInfo{}, err
	}
	return fs.Stat(ctx, p)
}

func (r *Router) List(ctx context.Context, p string) ([]FileInfo, error) {
	fs, err := r.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	return fs.List(ctx, p)
}

// Close releases cached provider clients.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gcp != nil {
		return r.gcp.Close()
	}
	return nil
}

func (r *Router) resolve(ctx context.Context, p string) (FileSystem, error) {
	scheme, _, _ := ParseURI(p)
	if scheme == "" {
		return r.local, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if fs, ok := r.remotes[scheme]; ok {
		return fs, nil
	}

	store, err := r.newStore(ctx, scheme)
	if err != nil {
		return nil, err
	}
	fs := &remoteFS{scheme: scheme, store: store, tempDir: r.opts.TempDir}
	r.remotes[scheme] = fs
	return fs, nil
}

func (r *Router) newStore(ctx context.Context, scheme string) (objectStore, error) {
	switch scheme {
	case "s3":
		var mopts []awsclient.ManagerOption
		if r.opts.S3AccessKey != "" {
			mopts = append(mopts, awsclient.WithStaticCredentials(r.opts.S3AccessKey, r.opts.S3SecretKey))
		}
		mgr, err := awsclient.NewManager(ctx, mopts...)
		if err != nil {
			return nil, err
		}
		var opts []awsclient.S3Option
		if r.opts.S3Region != "" {
			opts = append(opts, awsclient.WithRegion(r.opts.S3Region))
		}
		if r.opts.S3Endpoint != "" {
			opts = append(opts, awsclient.WithEndpoint(r.opts.S3Endpoint))
		}
		if r.opts.S3PathStyle {
			opts = append(opts, awsclient.WithPathStyle())
		}
		if r.opts.S3Role != "" {
			opts = append(opts, awsclient.WithRole(r.opts.S3Role))
		}
		client, err := mgr.GetS3(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return &s3Store{client: client}, nil

	case "gs":
		if r.gcp == nil {
			r.gcp = gcpclient.NewManager()
		}
		var opts []gcpclient.StorageOption
		if r.opts.GCSEndpoint != "" {
			opts = append(opts, gcpclient.WithEndpoint(r.opts.GCSEndpoint))
		}
		if r.opts.GCSServiceAccount != "" {
			opts = append(opts, gcpclient.WithImpersonateServiceAccount(r.opts.GCSServiceAccount))
		}
		client, err := r.gcp.GetStorage(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return &gcsStore{client: client}, nil

	case "az":
		mgr, err := azureclient.NewManager()
		if err != nil {
			return nil, err
		}
		client, err := mgr.GetBlob(ctx,
			azureclient.WithBlobStorageAccount(r.opts.AzureAccount),
			azureclient.WithBlobEndpoint(r.opts.AzureEndpoint),
		)
		if err != nil {
			return nil, err
		}
		return &azureStore{client: client}, nil
	}
	return nil, fmt.Errorf("unsupported storage scheme %q", scheme)
}
