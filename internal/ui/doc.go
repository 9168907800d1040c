// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the terminal interface: chat, thread list,
// profile and companion pickers, and the QR sign-in screen.
//
// Screens are a closed enumeration constructed through an explicit
// factory with injected dependencies. The chat screen renders engine
// snapshots; it never touches the engine's working state.
package ui
