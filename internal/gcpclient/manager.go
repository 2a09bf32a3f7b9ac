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

// Package gcpclient caches Google Cloud Storage clients keyed by the
// identity and endpoint they were created for.
package gcpclient

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Manager owns the GCS clients handed out by GetStorage.
type Manager struct {
	mu      sync.Mutex
	clients map[identity]*StorageClient
	tracer  trace.Tracer
}

func NewManager() *Manager {
	return &Manager{
		clients: map[identity]*StorageClient{},
		tracer:  otel.Tracer("github.com/cardinalhq/fileinput/internal/gcpclient"),
	}
}

// Close releases every cached client. The manager can be reused afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result *multierror.Error
	for id, c := range m.clients {
		result = multierror.Append(result, c.Client.Close())
		delete(m.clients, id)
	}
	return result.ErrorOrNil()
}
