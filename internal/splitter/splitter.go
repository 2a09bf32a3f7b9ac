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

// Package splitter tokenizes delimited text lines where fields may be
// wrapped in double quotes to protect embedded delimiters.
//
// Quotes toggle a "within quotes" state and are never emitted. A delimiter
// is only honored outside quotes. Without any quotes the result matches a
// plain split on the delimiter, except that empty tokens are always kept and
// a trailing delimiter produces a trailing empty token.
package splitter

import (
	"errors"
	"io"
	"iter"
	"strings"
)

const quote = '"'

// ErrInvalidDelimiter is returned when the delimiter is empty or contains a quote.
var ErrInvalidDelimiter = errors.New("delimiter must be non-empty and must not contain a quote")

// Splitter lazily yields the tokens of one line. It is not safe for
// concurrent use.
type Splitter struct {
	line      string
	delimiter string
	index     int

	endingWithDelimiter bool
	err                 error
}

// New returns a Splitter over line. Validation of the delimiter is deferred
// to the first call to Next.
func New(line, delimiter string) *Splitter {
	s := &Splitter{line: line, delimiter: delimiter}
	if delimiter == "" || strings.ContainsRune(delimiter, quote) {
		s.err = ErrInvalidDelimiter
	}
	return s
}

// Next returns the next token, io.EOF once the line is exhausted, or a
// *MalformedInputError if the final token has an unclosed quote. Errors
// are sticky.
func (s *Splitter) Next() (string, error) {
	if s.err != nil {
		return "", s.err
	}

	if s.endingWithDelimiter {
		s.endingWithDelimiter = false
		return "", nil
	}

	if s.index == len(s.line) {
		s.err = io.EOF
		return "", io.EOF
	}

	withinQuotes := false
	var token strings.Builder
	for s.index < len(s.line) {
		cur := s.line[s.index]
		if cur == quote {
			withinQuotes = !withinQuotes
			s.index++
			continue
		}

		if !strings.HasPrefix(s.line[s.index:], s.delimiter) {
			token.WriteByte(cur)
			s.index++
			continue
		}

		if !withinQuotes {
			s.index += len(s.delimiter)
			if s.index == len(s.line) {
				s.endingWithDelimiter = true
			}
			return token.String(), nil
		}

		// Delimiter inside quotes: keep it one byte at a time.
		token.WriteByte(cur)
		s.index++
	}

	if withinQuotes {
		s.err = &MalformedInputError{Line: s.line}
		return "", s.err
	}
	return token.String(), nil
}

// All returns an iterator over the remaining tokens. Iteration stops after
// the first error is yielded.
func (s *Splitter) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			token, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(token, err) || err != nil {
				return
			}
		}
	}
}

// Split returns every token of line. On error no tokens are returned.
func Split(line, delimiter string) ([]string, error) {
	s := New(line, delimiter)
	var tokens []string
	for token, err := range s.All() {
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}
