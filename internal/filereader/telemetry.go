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
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	recordsInCounter         otelmetric.Int64Counter
	recordsOutCounter        otelmetric.Int64Counter
	recordErrorsCounter      otelmetric.Int64Counter
	schemaConversionsCounter otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/fileinput/internal/filereader")

	var err error
	recordsInCounter, err = meter.Int64Counter(
		"fileinput.reader.records.in",
		otelmetric.WithDescription("Number of raw values read by decoders from their split"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create records.in counter: %w", err))
	}

	recordsOutCounter, err = meter.Int64Counter(
		"fileinput.reader.records.out",
		otelmetric.WithDescription("Number of structured records handed to the caller"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create records.out counter: %w", err))
	}

	recordErrorsCounter, err = meter.Int64Counter(
		"fileinput.reader.records.errors",
		otelmetric.WithDescription("Number of read or decode failures"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create records.errors counter: %w", err))
	}

	schemaConversionsCounter, err = meter.Int64Counter(
		"fileinput.reader.schema.conversions",
		otelmetric.WithDescription("Number of native schemas converted because they were not in the resolver cache"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create schema.conversions counter: %w", err))
	}
}
