// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package spotify

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/FaelSemW/LovePingServer/internal/platform/apperr"
	"github.com/FaelSemW/LovePingServer/internal/platform/constants"
)

// RedisStateRepository stores OAuth CSRF state tokens in Redis with a
// short TTL. Each state is single-use: Consume deletes it atomically.
type RedisStateRepository struct {
	client *redis.Client
}

// NewRedisStateRepository creates a StateRepository backed by Redis.
func NewRedisStateRepository(client *redis.Client) *RedisStateRepository {
	return &RedisStateRepository{client: client}
}

// Set binds a state token to a userID for [constants.OAuthStateTTL].
func (repository *RedisStateRepository) Set(ctx context.Context, state, userID string) error {
	key := constants.RedisPrefixOAuthState + state
	if err := repository.client.Set(ctx, key, userID, constants.OAuthStateTTL).Err(); err != nil {
		return fmt.Errorf("oauth_state_set_failed: %w", err)
	}
	return nil
}

// Consume retrieves and deletes the userID bound to a state token.
// GETDEL keeps retrieve-and-invalidate a single round trip, so a
// replayed callback cannot race a successful one.
func (repository *RedisStateRepository) Consume(ctx context.Context, state string) (string, error) {
	key := constants.RedisPrefixOAuthState + state
	userID, err := repository.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.ValidationError("Invalid or expired authorization state")
		}
		return "", fmt.Errorf("oauth_state_consume_failed: %w", err)
	}
	return userID, nil
}
