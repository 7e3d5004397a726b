// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package pairing

import (
	"context"
	"sync"
)

// Repository defines the durability contract for pairings.
//
// # Review Process
//
// This interface is placed in a separate file from pairing.go so entity
// changes and storage-contract changes can be reviewed independently.
//
// # Concurrency
//
// Implementations do not need to enforce the one-pairing-per-user
// invariant themselves: all mutations are funneled through [Service],
// which serializes them and performs the conflict check under its own
// lock before touching storage.
type Repository interface {
	// Create persists a new pairing (already in canonical form).
	Create(ctx context.Context, p Pairing) error

	// Delete removes the pairing involving the given user.
	// It is a no-op when no such pairing exists.
	Delete(ctx context.Context, userID string) error

	// All returns every stored pairing. Used once at startup to warm
	// the directory.
	All(ctx context.Context) ([]Pairing, error)
}

// MemoryRepository is a mutex-guarded in-process Repository used in tests.
type MemoryRepository struct {
	mu       sync.Mutex
	pairings []Pairing
}

// NewMemoryRepository creates an empty in-memory pairing repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Create appends the pairing.
func (repository *MemoryRepository) Create(_ context.Context, p Pairing) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.pairings = append(repository.pairings, p)
	return nil
}

// Delete removes the pairing involving userID, if any.
func (repository *MemoryRepository) Delete(_ context.Context, userID string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	kept := repository.pairings[:0]
	for _, p := range repository.pairings {
		if !p.Contains(userID) {
			kept = append(kept, p)
		}
	}
	repository.pairings = kept
	return nil
}

// All returns a copy of the stored pairings.
func (repository *MemoryRepository) All(_ context.Context) ([]Pairing, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	out := make([]Pairing, len(repository.pairings))
	copy(out, repository.pairings)
	return out, nil
}
