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

package gcpclient

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/option"
)

// StorageClient wraps a GCS client with the tracer used for its spans.
type StorageClient struct {
	Client *storage.Client
	Tracer trace.Tracer
}

// identity selects a cached client. Two requests with the same identity
// share one client.
type identity struct {
	serviceAccount string
	endpoint       string
}

// StorageOption adjusts the identity a client is created for.
type StorageOption func(*identity)

// WithImpersonateServiceAccount reads as the given service account.
func WithImpersonateServiceAccount(email string) StorageOption {
	return func(id *identity) { id.serviceAccount = email }
}

// WithEndpoint points the client at an emulator or private endpoint.
// Authentication is disabled for custom endpoints.
func WithEndpoint(endpoint string) StorageOption {
	return func(id *identity) { id.endpoint = endpoint }
}

func newIdentity(opts []StorageOption) identity {
	var id identity
	for _, opt := range opts {
		opt(&id)
	}
	return id
}

// clientOptions translates an identity into read-only GCS client options.
// Application Default Credentials apply when neither field is set.
func clientOptions(ctx context.Context, id identity) ([]option.ClientOption, error) {
	if id.endpoint != "" {
		return []option.ClientOption{option.WithEndpoint(id.endpoint), option.WithoutAuthentication()}, nil
	}
	if id.serviceAccount == "" {
		return []option.ClientOption{option.WithScopes(storage.ScopeReadOnly)}, nil
	}
	ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
		TargetPrincipal: id.serviceAccount,
		Scopes:          []string{storage.ScopeReadOnly},
	})
	if err != nil {
		return nil, fmt.Errorf("impersonate %s: %w", id.serviceAccount, err)
	}
	return []option.ClientOption{option.WithTokenSource(ts)}, nil
}

// GetStorage returns the client for the identity the options describe,
// creating it on first use.
func (m *Manager) GetStorage(ctx context.Context, opts ...StorageOption) (*StorageClient, error) {
	id := newIdentity(opts)

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[id]; ok {
		return c, nil
	}

	copts, err := clientOptions(ctx, id)
	if err != nil {
		return nil, err
	}
	sc, err := storage.NewClient(ctx, copts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	c := &StorageClient{Client: sc, Tracer: m.tracer}
	m.clients[id] = c
	return c, nil
}
