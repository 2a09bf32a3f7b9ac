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

package record

import "fmt"

// MissingFieldError is returned by Build when a non-nullable field was not set.
type MissingFieldError struct {
	Field  string
	Record string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %q of record %q was not set", e.Field, e.Record)
}

// UnknownFieldError reports a field name that is not part of the schema.
type UnknownFieldError struct {
	Field  string
	Record string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("field %q is not part of record %q", e.Field, e.Record)
}
