// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kagi implements the protocol client for the Kagi Assistant
// service.
package kagi

import "errors"

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes protocol errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeDecode
	ErrTypeScrape
	ErrTypeAuth
)

// Error represents a protocol-level failure.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	// ErrNotAuthenticated indicates the session token is missing or no
	// longer accepted.
	ErrNotAuthenticated = &Error{Type: ErrTypeAuth, Message: "not authenticated"}

	// ErrAuthPending indicates the QR ceremony has not been completed on
	// the paired device yet.
	ErrAuthPending = &Error{Type: ErrTypeAuth, Message: "sign-in not confirmed yet"}
)

// IsDecode reports whether err is a localized decode failure.
func IsDecode(err error) bool {
	var kerr *Error
	if errors.As(err, &kerr) {
		return kerr.Type == ErrTypeDecode
	}
	return false
}
