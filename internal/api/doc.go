// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the HR backend.
//
// Every authenticated request carries the current access token. When the
// backend answers 401 the client refreshes the credential pair and retries
// the request exactly once; concurrent 401s share a single in-flight
// refresh so the refresh token is used at most once per expiry. A refresh
// that itself fails voids the session via the OnSessionVoid callback.
//
// SECURITY: token values never appear in logs; use logging.Fingerprint.
package api
