// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"

	"github.com/antibia/hrchat-tui/internal/model"
)

// Keys mirror what the backend's web client persists, so the vocabulary
// stays consistent across clients.
const (
	keyAccessToken  = "accessToken"
	keyRefreshToken = "refreshToken"
	keyUser         = "user"
)

// TokenStore persists the credential pair and the cached user profile.
//
// The read path never surfaces storage errors to callers: a pair that
// cannot be loaded, parsed, or decrypted is reported as "no stored
// session". The write path does return errors so the session layer can log
// them, but persistence failure never blocks an otherwise successful login.
type TokenStore struct {
	kv KV
}

// NewTokenStore creates a token store over the given KV.
func NewTokenStore(kv KV) *TokenStore {
	return &TokenStore{kv: kv}
}

// Save persists the credential pair and user profile.
func (s *TokenStore) Save(pair model.TokenPair, user *model.User) error {
	if err := s.kv.Set(keyAccessToken, []byte(pair.AccessToken)); err != nil {
		return err
	}
	if err := s.kv.Set(keyRefreshToken, []byte(pair.RefreshToken)); err != nil {
		return err
	}
	if user == nil {
		return s.kv.Delete(keyUser)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.kv.Set(keyUser, data)
}

// SavePair replaces the credential pair, leaving the cached user profile
// untouched. Used after a token refresh.
func (s *TokenStore) SavePair(pair model.TokenPair) error {
	if err := s.kv.Set(keyAccessToken, []byte(pair.AccessToken)); err != nil {
		return err
	}
	return s.kv.Set(keyRefreshToken, []byte(pair.RefreshToken))
}

// Load returns the stored session. ok is false when no complete credential
// pair is stored or it cannot be read; the user may be nil even when ok is
// true (profile cache miss is not fatal, the session layer re-fetches it).
func (s *TokenStore) Load() (pair model.TokenPair, user *model.User, ok bool) {
	access, found, err := s.kv.Get(keyAccessToken)
	if err != nil || !found || len(access) == 0 {
		return model.TokenPair{}, nil, false
	}
	refresh, found, err := s.kv.Get(keyRefreshToken)
	if err != nil || !found || len(refresh) == 0 {
		return model.TokenPair{}, nil, false
	}
	pair = model.TokenPair{AccessToken: string(access), RefreshToken: string(refresh)}

	if raw, found, err := s.kv.Get(keyUser); err == nil && found {
		var u model.User
		if json.Unmarshal(raw, &u) == nil && u.ID != "" {
			user = &u
		}
	}
	return pair, user, true
}

// Clear removes all stored session state. Each key is attempted even when
// an earlier delete fails; the first error is returned.
func (s *TokenStore) Clear() error {
	var first error
	for _, key := range []string{keyAccessToken, keyRefreshToken, keyUser} {
		if err := s.kv.Delete(key); err != nil && first == nil {
			first = err
		}
	}
	return first
}
