// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the NUL-framed record format used by streaming
// responses.
//
// Each record on the wire is "header:payload" terminated by a single NUL
// byte. Records are concatenated with no other delimiter. A span with no
// colon before its NUL is a malformed frame and is skipped without being
// emitted. When the source is exhausted the reader emits exactly one
// synthetic terminal record so consumers can observe completion in-band.
//
// Decoding is strictly incremental: the reader never buffers more than one
// record, since response bodies can be arbitrarily long-lived.
package stream
