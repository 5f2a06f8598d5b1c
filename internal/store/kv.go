// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides local persistence for the client session.
//
// Persistence is abstracted behind a small key-value capability so the
// token store can run on a plain file, in memory (tests), or encrypted at
// rest. Storage failures on the read path are deliberately soft: a session
// that cannot be loaded is the same as no stored session.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/antibia/hrchat-tui/internal/util"
)

// KV is the storage capability the session layer depends on.
type KV interface {
	// Get returns the value for key, with ok=false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)
	// Set stores the value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(key string) error
}

// =============================================================================
// FILE-BACKED KV
// =============================================================================

// FileKV keeps all keys in a single JSON document written atomically.
// Suitable for the handful of small values this client persists.
type FileKV struct {
	mu   sync.Mutex
	path string
}

// NewFileKV creates a file-backed KV at the given path. The file is created
// on first write.
func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

func (f *FileKV) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &doc); err != nil {
		// Corrupt store reads as empty; the next write repairs it.
		return map[string]json.RawMessage{}, nil
	}
	return doc, nil
}

func (f *FileKV) write(doc map[string]json.RawMessage) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	// Tokens live here; keep the file owner-only.
	return util.AtomicWriteFile(f.path, data, 0600)
}

// Get implements KV.
func (f *FileKV) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, false, err
	}
	raw, ok := doc[key]
	if !ok {
		return nil, false, nil
	}
	var val []byte
	if err := json.Unmarshal(raw, &val); err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set implements KV.
func (f *FileKV) Set(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	doc[key] = raw
	return f.write(doc)
}

// Delete implements KV.
func (f *FileKV) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return f.write(doc)
}

// =============================================================================
// IN-MEMORY KV
// =============================================================================

// MemoryKV is a KV held entirely in memory. Used in tests and as the
// fallback when the state directory is unavailable.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string][]byte{}}
}

// Get implements KV.
func (m *MemoryKV) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

// Set implements KV.
func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

// Delete implements KV.
func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
