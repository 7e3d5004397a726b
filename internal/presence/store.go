// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package presence

import (
	"context"
	"sync"
)

// SnapshotStore defines the contract for last-known snapshot storage.
//
// # Semantics
//
// The store keeps exactly one snapshot per user — the most recently
// published one. It exists so a freshly connected client can be brought
// up to date immediately; there is no presence history.
//
// # Implementations
//
// The canonical implementation is Redis ([RedisSnapshotStore]); tests
// use the in-memory [MemorySnapshotStore].
type SnapshotStore interface {
	// Save replaces the user's last-known snapshot wholesale.
	Save(ctx context.Context, userID string, snapshot Snapshot) error

	// Find returns the user's last-known snapshot.
	// The boolean is false when the user has never published.
	Find(ctx context.Context, userID string) (Snapshot, bool, error)
}

// MemorySnapshotStore is a mutex-guarded in-process SnapshotStore.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewMemorySnapshotStore creates an empty in-memory snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshots: make(map[string]Snapshot)}
}

// Save replaces the user's last-known snapshot.
func (store *MemorySnapshotStore) Save(_ context.Context, userID string, snapshot Snapshot) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.snapshots[userID] = snapshot
	return nil
}

// Find returns the user's last-known snapshot.
func (store *MemorySnapshotStore) Find(_ context.Context, userID string) (Snapshot, bool, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	snapshot, ok := store.snapshots[userID]
	return snapshot, ok, nil
}
