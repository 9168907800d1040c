// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the NUL-framed record format used by streaming
// responses.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
)

// frameDelim terminates every record on the wire.
const frameDelim = 0x00

// =============================================================================
// RECORD TYPE
// =============================================================================

// Record is one decoded frame. Terminal is set only on the single synthetic
// record emitted after the source is exhausted; that record carries no
// header or payload.
type Record struct {
	Header   string
	Payload  string
	Terminal bool
}

// RecordCallback is called for each record decoded from the stream, in
// arrival order.
type RecordCallback func(rec Record)

// =============================================================================
// READER
// =============================================================================

// Reader incrementally decodes NUL-framed records from a byte source.
type Reader struct {
	reader *bufio.Reader
	done   bool
}

// NewReader creates a stream reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(r)}
}

// Next returns the next record from the stream. Malformed frames (no colon
// before the NUL) are skipped silently. After the source is exhausted Next
// returns exactly one terminal record, then io.EOF on every later call.
//
// If the underlying read fails, the error propagates and any partially
// consumed buffer is discarded; no partial record is ever emitted.
func (r *Reader) Next() (Record, error) {
	if r.done {
		return Record{}, io.EOF
	}

	for {
		frame, err := r.reader.ReadBytes(frameDelim)
		if err != nil {
			if err == io.EOF {
				// A trailing span with no NUL is an unterminated
				// frame; it is dropped, not emitted.
				r.done = true
				return Record{Terminal: true}, nil
			}
			return Record{}, err
		}

		// Strip the delimiter.
		frame = frame[:len(frame)-1]

		colon := bytes.IndexByte(frame, ':')
		if colon < 0 {
			// Malformed frame: skip without emitting.
			continue
		}

		return Record{
			Header:  strings.TrimSpace(string(frame[:colon])),
			Payload: string(frame[colon+1:]),
		}, nil
	}
}

// Process reads the stream and calls the callback for each record,
// including the final terminal record. Blocks until the stream completes,
// the context is cancelled, or a read fails.
func (r *Reader) Process(ctx context.Context, callback RecordCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := r.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		callback(rec)
		if rec.Terminal {
			return nil
		}
	}
}
