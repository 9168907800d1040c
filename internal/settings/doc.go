// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings persists user preferences as a closed set of named
// keys with documented defaults.
//
// The store is constructed once and injected; there is no ambient global
// access. Values live in a TOML file written atomically, and an fsnotify
// watcher picks up external edits.
package settings
