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

package splitter

import "errors"

// ErrMalformedInput is the sentinel matched by MalformedInputError.
var ErrMalformedInput = errors.New("malformed delimited input")

// MalformedInputError reports a line with an odd number of quotes.
type MalformedInputError struct {
	Line string
}

func (e *MalformedInputError) Error() string {
	return "found a line with an unenclosed quote; ensure that all values are properly quoted, or disable quoted values"
}

func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}
