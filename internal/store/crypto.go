// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// SECURITY: tokens encrypted at rest use AES-256-GCM with a key derived
// from a user passphrase via scrypt. The random salt is persisted alongside
// the data; the nonce is prepended to each ciphertext.

const saltKey = "__salt"

// scrypt parameters. N=32768 keeps derivation under ~100ms on current
// hardware while staying expensive for offline guessing.
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
)

// ErrNoPassphrase is returned when an encrypted store is requested without
// a passphrase to derive the key from.
var ErrNoPassphrase = errors.New("store: encryption requested but no passphrase set")

// EncryptedKV wraps another KV and encrypts every value at rest.
type EncryptedKV struct {
	inner KV
	aead  cipher.AEAD
}

// NewEncryptedKV wraps inner with AES-GCM encryption keyed from the
// passphrase. The salt is created on first use and stored in inner, so the
// same passphrase reopens an existing store.
func NewEncryptedKV(inner KV, passphrase string) (*EncryptedKV, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}

	salt, ok, err := inner.Get(saltKey)
	if err != nil {
		return nil, fmt.Errorf("store: read salt: %w", err)
	}
	if !ok {
		salt = make([]byte, saltLen)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("store: generate salt: %w", err)
		}
		if err := inner.Set(saltKey, salt); err != nil {
			return nil, fmt.Errorf("store: persist salt: %w", err)
		}
	}

	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("store: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &EncryptedKV{inner: inner, aead: aead}, nil
}

// Get implements KV. A value that fails to decrypt (wrong passphrase,
// tampering) reads as absent.
func (e *EncryptedKV) Get(key string) ([]byte, bool, error) {
	sealed, ok, err := e.inner.Get(key)
	if err != nil || !ok {
		return nil, false, err
	}
	if len(sealed) < e.aead.NonceSize() {
		return nil, false, nil
	}
	nonce, ct := sealed[:e.aead.NonceSize()], sealed[e.aead.NonceSize():]
	plain, err := e.aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return nil, false, nil
	}
	return plain, true, nil
}

// Set implements KV.
func (e *EncryptedKV) Set(key string, value []byte) error {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("store: generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, value, []byte(key))
	return e.inner.Set(key, sealed)
}

// Delete implements KV.
func (e *EncryptedKV) Delete(key string) error {
	return e.inner.Delete(key)
}
