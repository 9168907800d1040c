// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport provides the HTTP layer shared by every remote call.
//
// It owns one cookie jar, one set of identity headers, and two pooled HTTP
// clients: a bounded-timeout client for plain request/response calls and a
// streaming client with no read timeout for long-lived response bodies.
// Callers always receive the raw response body and are responsible for
// closing it.
package transport
