// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for the HR chat client.
//
// Values are resolved in order of precedence:
//   - HRCHAT_* environment variables
//   - ~/.hrchat/config.toml
//   - built-in defaults
//
// The file is read once at startup; there is no hot reload.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete client configuration.
type Config struct {
	// Backend holds HTTP and websocket endpoint settings.
	Backend BackendConfig `toml:"backend"`

	// Chat holds conversation-level settings.
	Chat ChatConfig `toml:"chat"`

	// Storage holds local persistence settings.
	Storage StorageConfig `toml:"storage"`

	// Debug enables verbose logging to the log file.
	Debug bool `toml:"debug"`
}

// BackendConfig describes how to reach the HR backend.
type BackendConfig struct {
	// BaseURL is the HTTP base URL of the backend.
	BaseURL string `toml:"base_url"`
	// WSURL is the websocket endpoint. Empty means "derive from BaseURL"
	// (http -> ws, https -> wss, path /ws).
	WSURL string `toml:"ws_url"`
	// TimeoutSecs is the fixed timeout applied to every HTTP request.
	TimeoutSecs int `toml:"timeout_secs"`
}

// ChatConfig describes conversation behavior.
type ChatConfig struct {
	// ConversationID scopes the realtime transcript.
	ConversationID string `toml:"conversation_id"`
	// SendRatePerSec caps outbound chat messages per second. Guards the
	// backend against paste floods; 0 disables the limiter.
	SendRatePerSec float64 `toml:"send_rate_per_sec"`
	// ReconnectBaseMS is the initial reconnect backoff delay.
	ReconnectBaseMS int `toml:"reconnect_base_ms"`
	// ReconnectMaxSecs caps the reconnect backoff delay.
	ReconnectMaxSecs int `toml:"reconnect_max_secs"`
	// ReconnectMaxAttempts bounds reconnect attempts after a
	// server-initiated disconnect. 0 means retry indefinitely.
	ReconnectMaxAttempts int `toml:"reconnect_max_attempts"`
}

// StorageConfig describes local persistence.
type StorageConfig struct {
	// Dir is the state directory. Default: ~/.hrchat
	Dir string `toml:"dir"`
	// EncryptTokens stores the credential pair encrypted at rest.
	// The key is derived from the passphrase in HRCHAT_STORE_KEY.
	EncryptTokens bool `toml:"encrypt_tokens"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:     "http://localhost:5000",
			TimeoutSecs: 10,
		},
		Chat: ChatConfig{
			ConversationID:       "default",
			SendRatePerSec:       2,
			ReconnectBaseMS:      500,
			ReconnectMaxSecs:     30,
			ReconnectMaxAttempts: 0,
		},
		Storage: StorageConfig{},
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from the default location, applying environment
// overrides. A missing config file is not an error.
func Load() (*Config, error) {
	return LoadFrom(defaultPath())
}

// LoadFrom reads configuration from an explicit path, applying environment
// overrides on top.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = defaultDir()
	}
	if cfg.Backend.WSURL == "" {
		cfg.Backend.WSURL = deriveWSURL(cfg.Backend.BaseURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays HRCHAT_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("HRCHAT_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("HRCHAT_WS_URL"); v != "" {
		c.Backend.WSURL = v
	}
	if v := os.Getenv("HRCHAT_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Backend.TimeoutSecs = n
		}
	}
	if v := os.Getenv("HRCHAT_CONVERSATION_ID"); v != "" {
		c.Chat.ConversationID = v
	}
	if v := os.Getenv("HRCHAT_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("HRCHAT_ENCRYPT_TOKENS"); v != "" {
		c.Storage.EncryptTokens = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HRCHAT_DEBUG"); v != "" {
		c.Debug = v == "1" || strings.EqualFold(v, "true")
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for values the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend base_url %q", c.Backend.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend base_url must be http or https, got %q", u.Scheme)
	}

	w, err := url.Parse(c.Backend.WSURL)
	if err != nil || (w.Scheme != "ws" && w.Scheme != "wss") {
		return fmt.Errorf("invalid websocket ws_url %q", c.Backend.WSURL)
	}

	if c.Backend.TimeoutSecs <= 0 {
		return errors.New("timeout_secs must be positive")
	}
	if c.Chat.ConversationID == "" {
		return errors.New("conversation_id must not be empty")
	}
	if c.Chat.ReconnectBaseMS <= 0 || c.Chat.ReconnectMaxSecs <= 0 {
		return errors.New("reconnect backoff values must be positive")
	}
	if c.Chat.SendRatePerSec < 0 || c.Chat.ReconnectMaxAttempts < 0 {
		return errors.New("rate and attempt limits must not be negative")
	}
	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Timeout returns the HTTP request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// ReconnectBase returns the initial reconnect backoff delay.
func (c *Config) ReconnectBase() time.Duration {
	return time.Duration(c.Chat.ReconnectBaseMS) * time.Millisecond
}

// ReconnectMax returns the reconnect backoff cap.
func (c *Config) ReconnectMax() time.Duration {
	return time.Duration(c.Chat.ReconnectMaxSecs) * time.Second
}

// LogPath returns the log file location inside the state directory.
func (c *Config) LogPath() string {
	return filepath.Join(c.Storage.Dir, "hrchat.log")
}

// TokenPath returns the token store location inside the state directory.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Storage.Dir, "session.json")
}

// HistoryPath returns the transcript cache location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Storage.Dir, "history.db")
}

// =============================================================================
// HELPERS
// =============================================================================

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hrchat"
	}
	return filepath.Join(home, ".hrchat")
}

func defaultPath() string {
	return filepath.Join(defaultDir(), "config.toml")
}

// deriveWSURL maps an HTTP base URL to the backend's websocket endpoint.
func deriveWSURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
