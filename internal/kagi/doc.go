// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kagi implements the protocol client for the Kagi Assistant
// service.
//
// Every request shape the service accepts lives here: the QR sign-in
// ceremony, thread listing/opening/deletion, prompt submission and
// regeneration, and profile/companion listing. Streaming responses are
// decoded by internal/stream and translated into typed domain events; the
// conversation engine in internal/convo folds those events into the
// transcript.
//
// Errors are never retried here. They surface to the caller, who decides.
package kagi
