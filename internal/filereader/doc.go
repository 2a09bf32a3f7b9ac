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

// Package filereader turns byte ranges of files into structured records.
//
// # Layers
//
// Delegates read a FileSplit in a format specific way:
//
//   - LineReader: newline delimited text, byte-range aware, gzip/zstd aware
//   - TagDelimitedReader: blocks between a start and an end tag
//   - avroReader: Avro object container files via goavro
//   - parquetReader: Parquet files via parquet-go, with the schema taken
//     from arrow-go's Parquet to Arrow mapping
//
// Decoders sit on top of a delegate and build a record.Builder for the
// current value. The decoder for a Format is chosen from a registration
// table filled in init():
//
//	dec, err := filereader.NewDecoder(filereader.FormatCSV, task, opts)
//
// Avro and Parquet decoders resolve the file's native schema through a
// Resolver, which memoizes conversions by fingerprint for the lifetime of
// the decoder.
//
// PathTrackingReader wraps a Decoder, stamps every record with the path of
// the split it came from, and exposes the record reader lifecycle:
//
//	r := filereader.NewPathTrackingReader(dec, filereader.FormatCSV, "file", split.Path)
//	defer r.Close()
//	if err := r.Initialize(ctx, split); err != nil {
//	    return err
//	}
//	for {
//	    ok, err := r.Next(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    if !ok {
//	        break
//	    }
//	    rec, err := r.Current()
//	    ...
//	}
//
// Readers are used by one goroutine at a time and share no mutable state.
package filereader
