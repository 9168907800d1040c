// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package convo holds the conversation transcript and the reconciliation
// engine that folds streamed protocol events into it.
//
// The engine owns a private mutable transcript and publishes immutable
// snapshots through a single channel; readers never touch the working
// copy. One submission is in flight at a time, and its identity is
// reassigned exactly once, from a client-generated placeholder to the
// server-confirmed id, atomically for both halves of the exchange.
package convo
