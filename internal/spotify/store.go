// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package spotify

import (
	"context"
	"sync"

	"github.com/FaelSemW/LovePingServer/internal/platform/apperr"
)

// TokenRepository defines the durability contract for delegated refresh
// tokens.
//
// # Scope
//
// Only the refresh token is persisted. Access tokens are short-lived
// and live exclusively in the [Manager]'s in-memory cache — writing
// them to storage would just create a second, staler copy.
type TokenRepository interface {
	// Save stores the user's refresh token, overwriting any prior one.
	Save(ctx context.Context, userID, refreshToken string) error

	// Find returns the user's refresh token.
	//
	// Returns [apperr.NotLinked] if the user has no stored token.
	Find(ctx context.Context, userID string) (string, error)

	// Delete removes the user's refresh token. Idempotent.
	Delete(ctx context.Context, userID string) error
}

// StateRepository defines the contract for volatile OAuth CSRF state
// tokens issued by the connect endpoint and consumed by the callback.
type StateRepository interface {
	// Set stores a state token bound to a userID for a limited duration.
	Set(ctx context.Context, state, userID string) error

	// Consume retrieves and deletes the userID bound to a state token.
	//
	// Returns [apperr.ValidationError] if the state is unknown or expired.
	Consume(ctx context.Context, state string) (string, error)
}

// MemoryTokenRepository is a mutex-guarded in-process TokenRepository
// used in tests.
type MemoryTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewMemoryTokenRepository creates an empty in-memory token repository.
func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{tokens: make(map[string]string)}
}

// Save stores the user's refresh token.
func (repository *MemoryTokenRepository) Save(_ context.Context, userID, refreshToken string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.tokens[userID] = refreshToken
	return nil
}

// Find returns the user's refresh token or [apperr.NotLinked].
func (repository *MemoryTokenRepository) Find(_ context.Context, userID string) (string, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	token, ok := repository.tokens[userID]
	if !ok {
		return "", apperr.NotLinked("Spotify account is not linked")
	}
	return token, nil
}

// Delete removes the user's refresh token.
func (repository *MemoryTokenRepository) Delete(_ context.Context, userID string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	delete(repository.tokens, userID)
	return nil
}
