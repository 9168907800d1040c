// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks provides a background scheduler for delayed best-effort
// operations.
//
// Its one client-facing use is temporary-thread cleanup: deletions are
// scheduled with a fixed delay and retried a bounded number of times.
// Failures are logged, never surfaced to the user.
package tasks
