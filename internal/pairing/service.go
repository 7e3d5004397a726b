// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package pairing

import (
	"context"
	"fmt"
	"sync"

	"github.com/FaelSemW/LovePingServer/internal/platform/apperr"
)

// Service is the pairing directory: the single owner of the
// (user → partner) mapping.
//
// # Concurrency Model
//
// The directory is read on every presence publish, so reads come from
// an in-memory map under an RWMutex. Mutations hold the write lock for
// the whole check-persist-apply sequence: pairing changes are rare and
// human-initiated, and holding the lock across the storage write is
// what makes "no reader ever sees a half pairing" trivially true —
// both directions of the map change within one critical section.
type Service struct {
	mu         sync.RWMutex
	partners   map[string]string // both directions materialized
	repository Repository
}

// NewService constructs the directory and warms it from storage.
func NewService(ctx context.Context, repository Repository) (*Service, error) {
	service := &Service{
		partners:   make(map[string]string),
		repository: repository,
	}

	existing, err := repository.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("pairing_service_warmup_failed: %w", err)
	}
	for _, p := range existing {
		service.partners[p.UserA] = p.UserB
		service.partners[p.UserB] = p.UserA
	}

	return service, nil
}

// Pair creates a mutual pairing between two users.
//
// # Returns
//   - [apperr.ValidationError] when a user tries to pair with themselves.
//   - [apperr.AlreadyPaired] when either user already has a partner.
//     The existing pairing must be dissolved explicitly first — Pair
//     never silently replaces it.
func (service *Service) Pair(ctx context.Context, userID, partnerID string) error {
	if userID == partnerID {
		return apperr.ValidationError("Cannot pair with yourself")
	}

	service.mu.Lock()
	defer service.mu.Unlock()

	if _, taken := service.partners[userID]; taken {
		return apperr.AlreadyPaired("You already have a partner")
	}
	if _, taken := service.partners[partnerID]; taken {
		return apperr.AlreadyPaired("That user already has a partner")
	}

	if err := service.repository.Create(ctx, NewPairing(userID, partnerID)); err != nil {
		return fmt.Errorf("pairing_service_pair_failed: %w", err)
	}

	// Both directions land in the same critical section.
	service.partners[userID] = partnerID
	service.partners[partnerID] = userID

	return nil
}

// Unpair dissolves the pairing involving the given user.
//
// # Returns
//   - [apperr.NotPaired] when the user has no partner.
func (service *Service) Unpair(ctx context.Context, userID string) error {
	service.mu.Lock()
	defer service.mu.Unlock()

	partnerID, paired := service.partners[userID]
	if !paired {
		return apperr.NotPaired("You have no partner to unpair from")
	}

	if err := service.repository.Delete(ctx, userID); err != nil {
		return fmt.Errorf("pairing_service_unpair_failed: %w", err)
	}

	delete(service.partners, userID)
	delete(service.partners, partnerID)

	return nil
}

// PartnerOf returns the partner of the given user, or false when the
// user is unpaired. This is the hot read path used by the presence
// broadcaster on every publish.
func (service *Service) PartnerOf(userID string) (string, bool) {
	service.mu.RLock()
	defer service.mu.RUnlock()

	partnerID, paired := service.partners[userID]
	return partnerID, paired
}
