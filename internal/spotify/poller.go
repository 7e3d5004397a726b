// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package spotify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/FaelSemW/LovePingServer/internal/platform/apperr"
	"github.com/FaelSemW/LovePingServer/internal/presence"
)

// PlayerClient is the subset of [Client] the Poller needs.
type PlayerClient interface {
	CurrentlyPlaying(ctx context.Context, accessToken string) (*presence.NowPlaying, error)
}

// TokenSource is the subset of [Manager] the Poller needs.
type TokenSource interface {
	ValidAccessToken(ctx context.Context, userID string) (string, error)
	Linked(ctx context.Context, userID string) (bool, error)
}

// Occupancy reports how many live connections a user currently has.
// Satisfied by [presence.Registry].
type Occupancy interface {
	Count(userID string) int
}

// Publisher is the subset of [presence.Broadcaster] the Poller needs.
type Publisher interface {
	Publish(ctx context.Context, userID string, snapshot presence.Snapshot) error
	LastSnapshot(ctx context.Context, userID string) (presence.Snapshot, bool, error)
}

// Poller runs one polling loop per linked, connected user, fetching the
// currently-playing track and publishing a presence update only when
// the playback fragment materially changes.
//
// # Lifecycle
//
// The gateway calls Start when a user's first connection registers and
// Stop when the last one leaves; the OAuth callback also calls Start so
// a user who links while already connected starts polling immediately.
// Start is idempotent and checks both the link and the user's
// connection count itself, so redundant calls are harmless.
type Poller struct {
	manager     TokenSource
	client      PlayerClient
	broadcaster Publisher
	occupancy   Occupancy
	interval    time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewPoller creates a Poller. No loops run until Start is called.
func NewPoller(manager TokenSource, client PlayerClient, broadcaster Publisher, occupancy Occupancy, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		manager:     manager,
		client:      client,
		broadcaster: broadcaster,
		occupancy:   occupancy,
		interval:    interval,
		cancels:     make(map[string]context.CancelFunc),
		logger:      logger,
	}
}

// Start launches a polling loop for the user if one is not already
// running, the user has a Spotify link, and the user has at least one
// live connection. Idempotent.
func (poller *Poller) Start(ctx context.Context, userID string) {
	if poller.occupancy.Count(userID) == 0 {
		return
	}
	linked, err := poller.manager.Linked(ctx, userID)
	if err != nil {
		poller.logger.Error("poller_link_check_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return
	}
	if !linked {
		return
	}

	poller.mu.Lock()
	defer poller.mu.Unlock()
	if _, running := poller.cancels[userID]; running {
		return
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	poller.cancels[userID] = cancel
	go poller.loop(loopCtx, userID)

	poller.logger.Info("poller_started", slog.String("user_id", userID))
}

// Stop cancels the user's polling loop if one is running. Idempotent.
func (poller *Poller) Stop(userID string) {
	poller.mu.Lock()
	cancel, running := poller.cancels[userID]
	if running {
		delete(poller.cancels, userID)
	}
	poller.mu.Unlock()

	if running {
		cancel()
		poller.logger.Info("poller_stopped", slog.String("user_id", userID))
	}
}

// StopAll cancels every running loop. Called during shutdown.
func (poller *Poller) StopAll() {
	poller.mu.Lock()
	cancels := poller.cancels
	poller.cancels = make(map[string]context.CancelFunc)
	poller.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Running reports whether a loop is active for the user.
func (poller *Poller) Running(userID string) bool {
	poller.mu.Lock()
	defer poller.mu.Unlock()
	_, running := poller.cancels[userID]
	return running
}

func (poller *Poller) loop(ctx context.Context, userID string) {
	ticker := time.NewTicker(poller.interval)
	defer ticker.Stop()

	var lastPublished *presence.NowPlaying

	// First fetch immediately rather than waiting a full interval.
	lastPublished = poller.tick(ctx, userID, lastPublished)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if poller.occupancy.Count(userID) == 0 {
				// Connection went away between the gateway's Stop and
				// this tick.
				poller.Stop(userID)
				return
			}
			lastPublished = poller.tick(ctx, userID, lastPublished)
		}
	}
}

// tick fetches the user's playback state once and publishes a presence
// update if the fragment changed. Returns the fragment now considered
// published, which the caller threads into the next tick.
func (poller *Poller) tick(ctx context.Context, userID string, lastPublished *presence.NowPlaying) *presence.NowPlaying {
	accessToken, err := poller.manager.ValidAccessToken(ctx, userID)
	if err != nil {
		if apperr.HasCode(err, "NOT_LINKED") || apperr.HasCode(err, "REFRESH_FAILED") {
			// Link is gone. Clear any published fragment once, then
			// stop this loop.
			if lastPublished != nil {
				poller.publish(ctx, userID, nil)
			}
			poller.Stop(userID)
			return nil
		}
		poller.logger.Warn("poller_token_unavailable",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return lastPublished
	}

	nowPlaying, err := poller.client.CurrentlyPlaying(ctx, accessToken)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return lastPublished
		}
		// Transient upstream failure. Keep the last fragment and try
		// again next tick.
		poller.logger.Debug("poller_fetch_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return lastPublished
	}

	if nowPlaying.Equivalent(lastPublished) {
		return lastPublished
	}

	poller.publish(ctx, userID, nowPlaying)
	return nowPlaying
}

// publish composes a full snapshot around the new playback fragment,
// preserving the user's current status so a track change never flips an
// away user back to online.
func (poller *Poller) publish(ctx context.Context, userID string, nowPlaying *presence.NowPlaying) {
	status := presence.StatusOnline
	if last, ok, err := poller.broadcaster.LastSnapshot(ctx, userID); err == nil && ok {
		status = last.Status
	}
	snapshot := presence.NewSnapshot(status, nowPlaying)

	if err := poller.broadcaster.Publish(ctx, userID, snapshot); err != nil {
		poller.logger.Error("poller_publish_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}
}
