// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport provides the HTTP layer shared by every remote call.
package transport

import "errors"

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes transport errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeStatus
	ErrTypeEmptyBody
)

// Error represents a failed HTTP exchange.
// StatusCode is zero when the request never produced a response.
type Error struct {
	Type       ErrorType
	StatusCode int
	URL        string
	Message    string
	Cause      error
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

// ErrTimeout is the sentinel for deadline and cancellation failures.
var ErrTimeout = &Error{Type: ErrTypeTimeout, Message: "request timed out"}

// IsStatus reports whether err is a transport error carrying the given
// HTTP status code.
func IsStatus(err error, code int) bool {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Type == ErrTypeStatus && terr.StatusCode == code
	}
	return false
}

// IsTimeout reports whether err is a timeout error.
func IsTimeout(err error) bool {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Type == ErrTypeTimeout
	}
	return errors.Is(err, ErrTimeout)
}
