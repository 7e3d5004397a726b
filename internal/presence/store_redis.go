// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FaelSemW/LovePingServer/internal/platform/constants"
)

// snapshotTTL bounds how long a stale snapshot survives. A day is far
// beyond any reconnect window; the TTL only prevents unbounded growth
// for users who never return.
const snapshotTTL = 24 * time.Hour

// RedisSnapshotStore implements SnapshotStore using Redis.
//
// Snapshots are volatile by design (spec'd as last-known-state only),
// which makes Redis the right home: every write carries a TTL and a
// cold start simply means partners resync on their next event.
type RedisSnapshotStore struct {
	client *redis.Client
}

// NewRedisSnapshotStore creates a new Redis-backed SnapshotStore.
func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client}
}

// Save replaces the user's last-known snapshot wholesale.
func (store *RedisSnapshotStore) Save(ctx context.Context, userID string, snapshot Snapshot) error {

	// Use constants for key prefix
	key := constants.RedisPrefixPresence + userID

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("redis_snapshot_marshal_failed: %w", err)
	}

	if err := store.client.Set(ctx, key, payload, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis_snapshot_save_failed: %w", err)
	}

	return nil
}

// Find returns the user's last-known snapshot, or false when the user
// has never published (or the entry expired).
func (store *RedisSnapshotStore) Find(ctx context.Context, userID string) (Snapshot, bool, error) {

	// Use constants for key prefix
	key := constants.RedisPrefixPresence + userID

	payload, err := store.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("redis_snapshot_find_failed: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return Snapshot{}, false, fmt.Errorf("redis_snapshot_unmarshal_failed: %w", err)
	}

	return snapshot, true, nil
}
