// Package blobstore keeps the saved player and settings blobs.
package blobstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
)

// Well-known keys.
const (
	Player   = "player"
	Settings = "settings"

	// PlayerCorrupt keeps a player blob that failed to decode.
	PlayerCorrupt = "player_corrupt"
)

// Store is a key/value store for encoded blobs.
type Store interface {
	SaveBlob(ctx context.Context, key string, data []byte) error
	// LoadBlob returns ok=false when nothing was saved under key.
	LoadBlob(ctx context.Context, key string) ([]byte, bool, error)
	Close() error
}

// Open picks a backend by name: "sqlite" (default), "file" or "memory".
func Open(backend, dir string) (Store, error) {
	switch backend {
	case "", "sqlite":
		return OpenSQLite(filepath.Join(dir, "idlecraft.sqlite"))
	case "file":
		return OpenFile(filepath.Join(dir, "saves"))
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", backend)
	}
}

type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemory() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}}
}

func (m *MemoryStore) SaveBlob(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) LoadBlob(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (m *MemoryStore) Close() error { return nil }
