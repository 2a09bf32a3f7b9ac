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
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaMismatch is matched by SchemaMismatchError and FieldMissingError.
// Use errors.As to get at the details.
var ErrSchemaMismatch = errors.New("schema mismatch")

// ErrDelegateInstantiation is matched by DelegateInstantiationError.
var ErrDelegateInstantiation = errors.New("cannot instantiate delegate")

var (
	// ErrNoCurrentRecord is returned by Current when Next has not returned true.
	ErrNoCurrentRecord = errors.New("no current record")
	// ErrReaderClosed is returned by operations on a closed reader.
	ErrReaderClosed = errors.New("reader is closed")
	// ErrNotInitialized is returned by Next before Initialize.
	ErrNotInitialized = errors.New("reader is not initialized")
)

// SchemaMismatchError reports a value or schema that cannot be mapped onto
// the target schema. Offset is -1 when unknown.
type SchemaMismatchError struct {
	Path   string
	Offset int64
	Field  string
	Reason string
	Err    error
}

func (e *SchemaMismatchError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrSchemaMismatch.Error())
	if e.Path != "" {
		fmt.Fprintf(&sb, ": %s", e.Path)
		if e.Offset >= 0 {
			fmt.Fprintf(&sb, " at offset %d", e.Offset)
		}
	}
	if e.Field != "" {
		fmt.Fprintf(&sb, ": field %q", e.Field)
	}
	if e.Reason != "" {
		fmt.Fprintf(&sb, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *SchemaMismatchError) Unwrap() error {
	return e.Err
}

func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// FieldMissingError reports a non-nullable target field that the native
// record does not have.
type FieldMissingError struct {
	Field string
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("%s: required field %q is absent from the source record", ErrSchemaMismatch, e.Field)
}

func (e *FieldMissingError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// DelegateInstantiationError reports a delegate or decoder that could not
// be created from the configured name.
type DelegateInstantiationError struct {
	Name string
	Err  error
}

func (e *DelegateInstantiationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", ErrDelegateInstantiation, e.Name, e.Err)
	}
	return fmt.Sprintf("%s %q: not registered", ErrDelegateInstantiation, e.Name)
}

func (e *DelegateInstantiationError) Unwrap() error {
	return e.Err
}

func (e *DelegateInstantiationError) Is(target error) bool {
	return target == ErrDelegateInstantiation
}

// withLocation fills in the path and offset of a SchemaMismatchError that
// was raised without them.
func withLocation(err error, path string, offset int64) error {
	var sm *SchemaMismatchError
	if errors.As(err, &sm) && sm.Path == "" {
		sm.Path = path
		sm.Offset = offset
		return err
	}
	var fm *FieldMissingError
	if errors.As(err, &fm) {
		return &SchemaMismatchError{Path: path, Offset: offset, Field: fm.Field, Err: err}
	}
	return err
}
