// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

// Package presence implements the live-presence core of LovePing: the
// session registry of open connections, the snapshot store, and the
// broadcaster that mirrors one partner's state to the other.
//
// # Architecture
//
// Entities in this package represent the "Truth" of live state. They
// have no dependencies on transports or third-party services; the
// gateway and the Spotify poller feed events in, the broadcaster pushes
// snapshots out through the [Sender] abstraction.
package presence

import (
	"time"
)

// Status is a user's coarse observable state.
type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusOffline Status = "offline"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusOffline:
		return true
	}
	return false
}

// NowPlaying is a normalized fragment of a user's current playback,
// produced by the Spotify poller. It is immutable once attached to a
// snapshot.
type NowPlaying struct {
	Track     string    `json:"track"`
	Artist    string    `json:"artist"`
	Playing   bool      `json:"playing"`
	Progress  int64     `json:"progress_ms"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Equivalent reports whether two fragments describe the same playback
// state for diffing purposes. Progress and fetch time are ignored:
// position advances on every poll and would defeat diff-based emission.
func (n *NowPlaying) Equivalent(other *NowPlaying) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.Track == other.Track && n.Artist == other.Artist && n.Playing == other.Playing
}

// Snapshot is a user's complete observable presence at a point in time.
//
// Snapshots are replaced wholesale on every update — never merged
// field-by-field — so a reader can never observe a torn state.
type Snapshot struct {
	Status     Status      `json:"status"`
	NowPlaying *NowPlaying `json:"now_playing,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NewSnapshot builds a snapshot stamped with the current time.
func NewSnapshot(status Status, nowPlaying *NowPlaying) Snapshot {
	return Snapshot{
		Status:     status,
		NowPlaying: nowPlaying,
		UpdatedAt:  time.Now(),
	}
}

// Sender is one live transport to one authenticated user.
//
// # Contract
//
// SendSnapshot must never block: implementations enqueue into a bounded
// buffer and report false when the push had to be dropped. The
// broadcaster treats a drop as best-effort delivery, not an error.
type Sender interface {
	// ID returns a unique identifier for this connection.
	ID() string

	// SendSnapshot enqueues a presence push describing userID's state.
	// It returns false if the push was dropped.
	SendSnapshot(userID string, snapshot Snapshot) bool
}
