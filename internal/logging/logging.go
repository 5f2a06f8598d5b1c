// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the structured logger.
//
// The TUI owns stdout/stderr, so all logging goes to a file inside the
// state directory. Token values are never logged; callers log the
// Fingerprint of a token when they need to correlate sessions.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Setup opens the log file and returns a configured logger. When the file
// cannot be opened (read-only filesystem, permissions) logging is disabled
// rather than failing startup.
func Setup(path string, debug bool) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	var w io.Writer
	if err := os.MkdirAll(filepath.Dir(path), 0700); err == nil {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600); err == nil {
			w = f
		}
	}
	if w == nil {
		return zerolog.Nop()
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Fingerprint returns a short SHA-256 based identifier for a secret, safe
// to log in place of the secret itself.
func Fingerprint(secret string) string {
	if secret == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:4])
}
