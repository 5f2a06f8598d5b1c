// hrchat TUI - Terminal interface for the HR assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/antibia/hrchat-tui/internal/api"
	"github.com/antibia/hrchat-tui/internal/auth"
	"github.com/antibia/hrchat-tui/internal/config"
	"github.com/antibia/hrchat-tui/internal/history"
	"github.com/antibia/hrchat-tui/internal/hr"
	"github.com/antibia/hrchat-tui/internal/logging"
	"github.com/antibia/hrchat-tui/internal/store"
	"github.com/antibia/hrchat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "version" || os.Args[1] == "--version") {
		fmt.Printf("hrchat %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	// A .env next to the binary is a developer convenience; its absence is
	// not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogPath(), cfg.Debug)
	logger.Info().Str("version", Version).Msg("starting")

	kv, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	tokens := store.NewTokenStore(kv)

	client := api.NewClient(cfg.Backend.BaseURL).
		WithTimeout(cfg.Timeout()).
		WithLogger(logger)

	session := auth.NewSession(client, tokens, logger)
	hrService := hr.NewService(client, logger)

	// The transcript cache is best effort; the chat works without it.
	hist, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logger.Warn().Err(err).Msg("history cache unavailable")
		hist = nil
	} else {
		defer hist.Close()
	}

	if session.RestoreFromStorage() {
		logger.Info().Msg("resuming stored session")
	}

	m := chat.New(chat.Deps{
		Config:  cfg,
		Logger:  logger,
		Client:  client,
		Session: session,
		HR:      hrService,
		History: hist,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running hrchat: %v\n", err)
		os.Exit(1)
	}
}

// openStore builds the key-value store backing the token store, encrypted
// at rest when configured.
func openStore(cfg *config.Config) (store.KV, error) {
	file := store.NewFileKV(cfg.TokenPath())
	if !cfg.Storage.EncryptTokens {
		return file, nil
	}

	passphrase := os.Getenv("HRCHAT_STORE_KEY")
	if passphrase == "" {
		p, err := promptPassphrase()
		if err != nil {
			return nil, fmt.Errorf("token encryption enabled but no passphrase: %w", err)
		}
		passphrase = p
	}
	return store.NewEncryptedKV(file, passphrase)
}

// promptPassphrase reads the store passphrase from the terminal without
// echoing it. Runs before the TUI takes over the screen.
func promptPassphrase() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("stdin is not a terminal, set HRCHAT_STORE_KEY")
	}
	fmt.Fprint(os.Stderr, "Passphrase du coffre de session : ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty passphrase")
	}
	return string(raw), nil
}
