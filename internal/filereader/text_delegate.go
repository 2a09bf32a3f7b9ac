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
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// TextDelegate reads one text value at a time from a FileSplit.
type TextDelegate interface {
	Initialize(ctx context.Context, split *FileSplit) error
	Next(ctx context.Context) (bool, error)
	// CurrentOffset is the byte offset of the current value in the file.
	CurrentOffset() int64
	CurrentLine() string
	Progress() float64
	Close() error
}

// TextDelegateOptions carries per-reader settings to a delegate factory.
type TextDelegateOptions struct {
	// SkipFirstLine drops the value that starts at offset 0.
	SkipFirstLine bool
}

// TextDelegateFactory builds a TextDelegate for a task.
type TextDelegateFactory func(tc *TaskContext, opts TextDelegateOptions) (TextDelegate, error)

// DefaultTextDelegate is used when no delegate is named.
const DefaultTextDelegate = "line"

var (
	textDelegatesMu sync.RWMutex
	textDelegates   = map[string]TextDelegateFactory{}
)

func init() {
	RegisterTextDelegate(DefaultTextDelegate, newLineDelegate)
	RegisterTextDelegate(TagDelimitedDelegate, newTagDelimitedDelegate)
}

// RegisterTextDelegate makes a delegate available by name. It panics on a
// nil factory or a duplicate name.
func RegisterTextDelegate(name string, factory TextDelegateFactory) {
	if factory == nil {
		panic("filereader: RegisterTextDelegate factory is nil")
	}
	name = strings.ToLower(name)
	textDelegatesMu.Lock()
	defer textDelegatesMu.Unlock()
	if _, dup := textDelegates[name]; dup {
		panic("filereader: RegisterTextDelegate called twice for " + name)
	}
	textDelegates[name] = factory
}

// TextDelegates lists the registered delegate names.
func TextDelegates() []string {
	textDelegatesMu.RLock()
	defer textDelegatesMu.RUnlock()
	return slices.Sorted(maps.Keys(textDelegates))
}

// NewTextDelegate instantiates the named delegate. An empty name selects
// the line reader.
func NewTextDelegate(tc *TaskContext, name string, opts TextDelegateOptions) (TextDelegate, error) {
	if name == "" {
		name = DefaultTextDelegate
	}
	textDelegatesMu.RLock()
	factory, ok := textDelegates[strings.ToLower(name)]
	textDelegatesMu.RUnlock()
	if !ok {
		return nil, &DelegateInstantiationError{Name: name}
	}
	d, err := factory(tc, opts)
	if err != nil {
		return nil, fmt.Errorf("text delegate %q: %w", name, err)
	}
	return d, nil
}
