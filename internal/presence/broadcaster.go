// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package presence

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// PartnerResolver tells the broadcaster who observes a user's presence.
//
// # Why an interface?
//
// The pairing directory lives in its own package; depending on it here
// would invert the dependency direction (pairing already imports
// nothing from presence). The resolver also makes broadcaster tests
// trivial to set up.
type PartnerResolver interface {
	// PartnerOf returns the partner's user id, or false when unpaired.
	PartnerOf(userID string) (string, bool)
}

// Broadcaster is the orchestration core of presence synchronization.
//
// On every publish it stores the new snapshot and pushes it to each of
// the partner's open connections.
//
// # Ordering
//
// A single mutex serializes the store-then-fan-out sequence, so for any
// one source user, partners observe snapshots in exactly the order
// Publish was called. No cross-user order is promised.
type Broadcaster struct {
	mu       sync.Mutex
	store    SnapshotStore
	registry *Registry
	partners PartnerResolver
	logger   *slog.Logger
}

// NewBroadcaster constructs a [Broadcaster] with its dependencies.
func NewBroadcaster(store SnapshotStore, registry *Registry, partners PartnerResolver, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		store:    store,
		registry: registry,
		partners: partners,
		logger:   logger,
	}
}

// Publish stores the user's new snapshot and pushes it to every open
// connection of the user's partner.
//
// # Delivery
//
// Delivery is best effort: a connection whose outbound buffer is full
// has the push dropped (and logged). Duplicate pushes are tolerated by
// receivers, so no suppression of identical snapshots is attempted.
//
// # Errors
//
// A storage failure is returned so callers can log it, but fan-out
// still proceeds — live partners should not go stale because the
// snapshot cache hiccuped.
func (broadcaster *Broadcaster) Publish(ctx context.Context, userID string, snapshot Snapshot) error {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()

	saveErr := broadcaster.store.Save(ctx, userID, snapshot)
	if saveErr != nil {
		saveErr = fmt.Errorf("broadcaster_snapshot_save_failed: %w", saveErr)
	}

	partnerID, paired := broadcaster.partners.PartnerOf(userID)
	if !paired {
		return saveErr
	}

	for _, connection := range broadcaster.registry.Connections(partnerID) {
		if !connection.SendSnapshot(userID, snapshot) {
			broadcaster.logger.Debug("presence_push_dropped",
				slog.String("source_user", userID),
				slog.String("target_user", partnerID),
				slog.String("connection_id", connection.ID()),
			)
		}
	}

	return saveErr
}

// SyncPartner pushes the partner's last-known snapshot to a single,
// freshly registered connection, so a (re)connecting client is never
// left stale. It is a no-op when the user is unpaired or the partner
// has never published.
func (broadcaster *Broadcaster) SyncPartner(ctx context.Context, userID string, connection Sender) error {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()

	partnerID, paired := broadcaster.partners.PartnerOf(userID)
	if !paired {
		return nil
	}

	snapshot, found, err := broadcaster.store.Find(ctx, partnerID)
	if err != nil {
		return fmt.Errorf("broadcaster_sync_find_failed: %w", err)
	}
	if !found {
		return nil
	}

	connection.SendSnapshot(partnerID, snapshot)
	return nil
}

// LastSnapshot returns the user's own last-known snapshot. Publishers
// use it to carry forward fields they do not own (the gateway keeps the
// now-playing fragment on a status change; the poller keeps the status
// on a track change).
func (broadcaster *Broadcaster) LastSnapshot(ctx context.Context, userID string) (Snapshot, bool, error) {
	return broadcaster.store.Find(ctx, userID)
}
