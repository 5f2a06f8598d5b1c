// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
)

// Error variables for common backend failures.
var (
	// ErrAuthFailed indicates a login attempt was rejected (bad credentials).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrSessionExpired indicates the credential pair could not be refreshed
	// and the session is void. Callers must treat this as a forced logout.
	ErrSessionExpired = errors.New("session expired")

	// ErrNetwork indicates the backend could not be reached at all.
	ErrNetwork = errors.New("backend unreachable")

	// ErrValidation indicates the backend rejected the request payload.
	ErrValidation = errors.New("validation failed")
)

// APIError is a backend error response that does not map to a sentinel.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}
