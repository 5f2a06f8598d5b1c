// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/antibia/hrchat-tui/internal/model"
)

func testPair() model.TokenPair {
	return model.TokenPair{AccessToken: "access-A", RefreshToken: "refresh-A"}
}

func testUser() *model.User {
	return &model.User{ID: "u1", Name: "Marie Dupont", Email: "marie@example.com", Department: "Engineering"}
}

func TestTokenStore_Roundtrip(t *testing.T) {
	s := NewTokenStore(NewMemoryKV())

	if err := s.Save(testPair(), testUser()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	pair, user, ok := s.Load()
	if !ok {
		t.Fatal("Load should find the saved session")
	}
	if pair.AccessToken != "access-A" || pair.RefreshToken != "refresh-A" {
		t.Errorf("loaded pair = %+v", pair)
	}
	if user == nil || user.ID != "u1" || user.Name != "Marie Dupont" {
		t.Errorf("loaded user = %+v", user)
	}
}

func TestTokenStore_LoadEmpty(t *testing.T) {
	s := NewTokenStore(NewMemoryKV())

	if _, _, ok := s.Load(); ok {
		t.Error("empty store should load as no session")
	}
}

func TestTokenStore_SavePairKeepsUser(t *testing.T) {
	s := NewTokenStore(NewMemoryKV())
	if err := s.Save(testPair(), testUser()); err != nil {
		t.Fatal(err)
	}

	refreshed := model.TokenPair{AccessToken: "access-B", RefreshToken: "refresh-B"}
	if err := s.SavePair(refreshed); err != nil {
		t.Fatalf("SavePair: %v", err)
	}

	pair, user, ok := s.Load()
	if !ok {
		t.Fatal("session should still load")
	}
	if pair.AccessToken != "access-B" {
		t.Errorf("access token = %q, want rotated value", pair.AccessToken)
	}
	if user == nil || user.ID != "u1" {
		t.Error("SavePair must not discard the cached user")
	}
}

func TestTokenStore_Clear(t *testing.T) {
	s := NewTokenStore(NewMemoryKV())
	if err := s.Save(testPair(), testUser()); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, _, ok := s.Load(); ok {
		t.Error("Load after Clear should report no session")
	}
}

func TestFileKV_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	kv := NewFileKV(path)

	if err := kv.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A fresh handle on the same path sees the value.
	val, ok, err := NewFileKV(path).Get("k")
	if err != nil || !ok {
		t.Fatalf("Get = %v, ok=%v", err, ok)
	}
	if string(val) != "v" {
		t.Errorf("value = %q", val)
	}

	if err := kv.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := kv.Get("k"); ok {
		t.Error("deleted key should be absent")
	}
}

func TestFileKV_CorruptFileReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	kv := NewFileKV(path)
	if _, ok, err := kv.Get("k"); ok || err != nil {
		t.Errorf("corrupt store: ok=%v err=%v, want empty read", ok, err)
	}
	if err := kv.Set("k", []byte("v")); err != nil {
		t.Errorf("write after corruption should repair the store: %v", err)
	}
}

func TestFileKV_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	kv := NewFileKV(path)
	if err := kv.Set("k", []byte("v")); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("store file mode = %o, want 0600", perm)
	}
}

func TestEncryptedKV_Roundtrip(t *testing.T) {
	inner := NewMemoryKV()
	enc, err := NewEncryptedKV(inner, "correct horse")
	if err != nil {
		t.Fatalf("NewEncryptedKV: %v", err)
	}

	if err := enc.Set("accessToken", []byte("secret-value")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Plaintext must not appear in the underlying store.
	sealed, ok, _ := inner.Get("accessToken")
	if !ok {
		t.Fatal("ciphertext missing from inner store")
	}
	if string(sealed) == "secret-value" {
		t.Error("value stored in the clear")
	}

	val, ok, err := enc.Get("accessToken")
	if err != nil || !ok {
		t.Fatalf("Get = %v, ok=%v", err, ok)
	}
	if string(val) != "secret-value" {
		t.Errorf("decrypted value = %q", val)
	}
}

func TestEncryptedKV_SamePassphraseReopens(t *testing.T) {
	inner := NewMemoryKV()
	enc1, err := NewEncryptedKV(inner, "pass")
	if err != nil {
		t.Fatal(err)
	}
	if err := enc1.Set("k", []byte("v")); err != nil {
		t.Fatal(err)
	}

	enc2, err := NewEncryptedKV(inner, "pass")
	if err != nil {
		t.Fatal(err)
	}
	val, ok, err := enc2.Get("k")
	if err != nil || !ok || string(val) != "v" {
		t.Errorf("reopen with same passphrase: val=%q ok=%v err=%v", val, ok, err)
	}
}

func TestEncryptedKV_WrongPassphraseReadsAsAbsent(t *testing.T) {
	inner := NewMemoryKV()
	enc1, err := NewEncryptedKV(inner, "right")
	if err != nil {
		t.Fatal(err)
	}
	if err := enc1.Set("accessToken", []byte("secret")); err != nil {
		t.Fatal(err)
	}

	enc2, err := NewEncryptedKV(inner, "wrong")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := enc2.Get("accessToken"); ok || err != nil {
		t.Errorf("wrong passphrase: ok=%v err=%v, want absent without error", ok, err)
	}

	// Through the token store this means: no stored session.
	if _, _, ok := NewTokenStore(enc2).Load(); ok {
		t.Error("undecryptable session should load as no session")
	}
}

func TestEncryptedKV_RequiresPassphrase(t *testing.T) {
	if _, err := NewEncryptedKV(NewMemoryKV(), ""); err != ErrNoPassphrase {
		t.Errorf("err = %v, want ErrNoPassphrase", err)
	}
}
