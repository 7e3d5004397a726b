// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package spotify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/FaelSemW/LovePingServer/internal/platform/apperr"
)

// accessSkew is subtracted from a token's expiry when deciding whether
// a cached access token is still usable, so a token is never handed out
// moments before Spotify rejects it.
const accessSkew = 30 * time.Second

// TokenClient is the subset of [Client] the Manager needs.
type TokenClient interface {
	Exchange(ctx context.Context, code string) (*Grant, error)
	Refresh(ctx context.Context, refreshToken string) (*Grant, error)
}

type cachedAccess struct {
	token     string
	expiresAt time.Time
}

func (cached cachedAccess) usable(now time.Time) bool {
	return cached.token != "" && now.Before(cached.expiresAt.Add(-accessSkew))
}

// Manager owns the delegated-credential lifecycle: linking, refresh,
// caching, and unlinking.
//
// # Refresh discipline
//
// Concurrent callers asking for the same user's access token while it
// is expired share a single refresh request via singleflight. A refresh
// the token endpoint definitively rejects severs the link, so every
// later caller gets NOT_LINKED instead of hammering the endpoint with a
// dead refresh token. Timeouts, cancellations and upstream outages keep
// the link: the stored grant is still presumed good and the next tick
// retries.
type Manager struct {
	client     TokenClient
	repository TokenRepository
	logger     *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedAccess

	refreshGroup singleflight.Group
}

// NewManager creates a Manager with an empty access-token cache.
func NewManager(client TokenClient, repository TokenRepository, logger *slog.Logger) *Manager {
	return &Manager{
		client:     client,
		repository: repository,
		logger:     logger,
		cache:      make(map[string]cachedAccess),
	}
}

// Link exchanges an authorization code and persists the resulting
// refresh token for the user. The access token from the exchange is
// cached so the first poll after linking needs no refresh.
func (manager *Manager) Link(ctx context.Context, userID, code string) error {
	grant, err := manager.client.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("spotify_link_exchange_failed: %w", err)
	}
	if grant.RefreshToken == "" {
		return apperr.ValidationError("Authorization grant did not include a refresh token")
	}

	if err := manager.repository.Save(ctx, userID, grant.RefreshToken); err != nil {
		return err
	}

	manager.mu.Lock()
	manager.cache[userID] = cachedAccess{
		token:     grant.AccessToken,
		expiresAt: grant.ExpiresAt(time.Now()),
	}
	manager.mu.Unlock()

	manager.logger.Info("spotify_linked", slog.String("user_id", userID))
	return nil
}

// Unlink removes the user's stored refresh token and cached access token.
func (manager *Manager) Unlink(ctx context.Context, userID string) error {
	if err := manager.repository.Delete(ctx, userID); err != nil {
		return err
	}

	manager.mu.Lock()
	delete(manager.cache, userID)
	manager.mu.Unlock()

	manager.logger.Info("spotify_unlinked", slog.String("user_id", userID))
	return nil
}

// Linked reports whether the user has a stored refresh token.
func (manager *Manager) Linked(ctx context.Context, userID string) (bool, error) {
	_, err := manager.repository.Find(ctx, userID)
	if err != nil {
		if apperr.HasCode(err, "NOT_LINKED") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ValidAccessToken returns an access token for the user, refreshing it
// through the token endpoint if the cached one is missing or near
// expiry.
//
// Returns [apperr.NotLinked] if the user has no delegated grant, and
// [apperr.RefreshFailed] when the token endpoint definitively rejects
// the refresh; the latter also severs the link. A refresh that merely
// could not complete (timeout, cancellation, upstream 5xx) returns a
// plain error and leaves the link intact.
func (manager *Manager) ValidAccessToken(ctx context.Context, userID string) (string, error) {
	manager.mu.Lock()
	cached := manager.cache[userID]
	manager.mu.Unlock()

	now := time.Now()
	if cached.usable(now) {
		return cached.token, nil
	}

	token, err, _ := manager.refreshGroup.Do(userID, func() (any, error) {
		// A concurrent caller may have refreshed while this one waited
		// on the group.
		manager.mu.Lock()
		cached := manager.cache[userID]
		manager.mu.Unlock()
		if cached.usable(time.Now()) {
			return cached.token, nil
		}
		return manager.refresh(ctx, userID)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (manager *Manager) refresh(ctx context.Context, userID string) (string, error) {
	refreshToken, err := manager.repository.Find(ctx, userID)
	if err != nil {
		return "", err
	}

	grant, err := manager.client.Refresh(ctx, refreshToken)
	if err != nil {
		if !grantRejected(err) {
			manager.logger.Warn("spotify_refresh_unavailable",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			return "", fmt.Errorf("spotify_refresh_unavailable: %w", err)
		}
		manager.sever(ctx, userID, err)
		return "", apperr.RefreshFailed(err)
	}

	issuedAt := time.Now()
	manager.mu.Lock()
	manager.cache[userID] = cachedAccess{
		token:     grant.AccessToken,
		expiresAt: grant.ExpiresAt(issuedAt),
	}
	manager.mu.Unlock()

	// Spotify may rotate the refresh token on use.
	if grant.RefreshToken != "" && grant.RefreshToken != refreshToken {
		if err := manager.repository.Save(ctx, userID, grant.RefreshToken); err != nil {
			manager.logger.Error("spotify_refresh_token_rotate_failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
		}
	}
	return grant.AccessToken, nil
}

// grantRejected reports whether a refresh error is a definitive
// rejection of the grant itself. Cancellation and deadline errors are
// never rejections, whatever wrapped them.
func grantRejected(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rejected *GrantRejectedError
	return errors.As(err, &rejected)
}

// sever removes a dead link after a rejected refresh so subsequent
// callers see NOT_LINKED rather than repeated upstream failures.
func (manager *Manager) sever(ctx context.Context, userID string, cause error) {
	manager.logger.Warn("spotify_refresh_failed_unlinking",
		slog.String("user_id", userID),
		slog.String("error", cause.Error()))

	manager.mu.Lock()
	delete(manager.cache, userID)
	manager.mu.Unlock()

	if err := manager.repository.Delete(ctx, userID); err != nil && !errors.Is(err, context.Canceled) {
		manager.logger.Error("spotify_sever_delete_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}
}
