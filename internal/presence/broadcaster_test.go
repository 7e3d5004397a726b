// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package presence_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FaelSemW/LovePingServer/internal/presence"
)

// fakePartners is a static partner directory for tests.
type fakePartners map[string]string

func (partners fakePartners) PartnerOf(userID string) (string, bool) {
	partner, ok := partners[userID]
	return partner, ok
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestBroadcaster_Publish verifies that a published snapshot is stored and
fanned out to every partner connection, and only to the partner.
*/
func TestBroadcaster_Publish(t *testing.T) {
	registry := presence.NewRegistry()
	store := presence.NewMemorySnapshotStore()
	broadcaster := presence.NewBroadcaster(store, registry, fakePartners{"alice": "bob", "bob": "alice"}, discardLogger())

	bobPhone := newFakeSender("bob-phone")
	bobLaptop := newFakeSender("bob-laptop")
	registry.Register("bob", bobPhone)
	registry.Register("bob", bobLaptop)

	stranger := newFakeSender("carol-phone")
	registry.Register("carol", stranger)

	snapshot := presence.NewSnapshot(presence.StatusOnline, nil)
	require.NoError(t, broadcaster.Publish(context.Background(), "alice", snapshot))

	// Both of bob's connections got it; carol got nothing.
	require.Len(t, bobPhone.snapshots(), 1)
	require.Len(t, bobLaptop.snapshots(), 1)
	assert.Empty(t, stranger.snapshots())

	// Stored as last-known state.
	stored, ok, err := store.Find(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, presence.StatusOnline, stored.Status)
}

/*
TestBroadcaster_Publish_NoPartner verifies that a snapshot from an
unpaired user is stored but fanned out to nobody.
*/
func TestBroadcaster_Publish_NoPartner(t *testing.T) {
	registry := presence.NewRegistry()
	store := presence.NewMemorySnapshotStore()
	broadcaster := presence.NewBroadcaster(store, registry, fakePartners{}, discardLogger())

	require.NoError(t, broadcaster.Publish(context.Background(), "alice", presence.NewSnapshot(presence.StatusOnline, nil)))

	_, ok, err := store.Find(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

/*
TestBroadcaster_Ordering verifies per-source ordering: two snapshots
published in sequence from the same user arrive in that sequence, even
under concurrent publishers elsewhere.
*/
func TestBroadcaster_Ordering(t *testing.T) {
	registry := presence.NewRegistry()
	store := presence.NewMemorySnapshotStore()
	broadcaster := presence.NewBroadcaster(store, registry, fakePartners{"alice": "bob", "noise": "bob2"}, discardLogger())

	bob := newFakeSender("bob-phone")
	registry.Register("bob", bob)

	// Background noise from an unrelated source.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = broadcaster.Publish(context.Background(), "noise", presence.NewSnapshot(presence.StatusAway, nil))
		}
	}()

	first := presence.NewSnapshot(presence.StatusOnline, &presence.NowPlaying{Track: "one"})
	second := presence.NewSnapshot(presence.StatusAway, &presence.NowPlaying{Track: "two"})
	require.NoError(t, broadcaster.Publish(context.Background(), "alice", first))
	require.NoError(t, broadcaster.Publish(context.Background(), "alice", second))
	wg.Wait()

	received := bob.snapshots()
	require.Len(t, received, 2)
	assert.Equal(t, "one", received[0].NowPlaying.Track)
	assert.Equal(t, "two", received[1].NowPlaying.Track)

	// Last-known state is the second snapshot.
	stored, ok, err := broadcaster.LastSnapshot(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", stored.NowPlaying.Track)
}

/*
TestBroadcaster_SyncPartner verifies that a late-joining connection
receives the partner's last stored snapshot, and nothing when the
partner has never published or no pairing exists.
*/
func TestBroadcaster_SyncPartner(t *testing.T) {
	registry := presence.NewRegistry()
	store := presence.NewMemorySnapshotStore()
	broadcaster := presence.NewBroadcaster(store, registry, fakePartners{"alice": "bob", "bob": "alice"}, discardLogger())

	// Alice publishes while bob is absent.
	require.NoError(t, broadcaster.Publish(context.Background(), "alice", presence.NewSnapshot(presence.StatusAway, nil)))

	// Bob connects later and syncs.
	bob := newFakeSender("bob-phone")
	registry.Register("bob", bob)
	require.NoError(t, broadcaster.SyncPartner(context.Background(), "bob", bob))

	received := bob.snapshots()
	require.Len(t, received, 1)
	assert.Equal(t, presence.StatusAway, received[0].Status)

	// A partner with no stored state syncs nothing.
	alice := newFakeSender("alice-phone")
	require.NoError(t, broadcaster.SyncPartner(context.Background(), "alice", alice))

	// An unpaired user syncs nothing.
	carol := newFakeSender("carol-phone")
	require.NoError(t, broadcaster.SyncPartner(context.Background(), "carol", carol))
	assert.Empty(t, carol.snapshots())
}

/*
TestBroadcaster_DropOnFull verifies that a saturated connection drops
the push without failing the publish.
*/
func TestBroadcaster_DropOnFull(t *testing.T) {
	registry := presence.NewRegistry()
	store := presence.NewMemorySnapshotStore()
	broadcaster := presence.NewBroadcaster(store, registry, fakePartners{"alice": "bob"}, discardLogger())

	bob := newFakeSender("bob-phone")
	bob.full = true
	registry.Register("bob", bob)

	require.NoError(t, broadcaster.Publish(context.Background(), "alice", presence.NewSnapshot(presence.StatusOnline, nil)))

	// The state was still stored; the reconnect sync path recovers it.
	_, ok, err := broadcaster.LastSnapshot(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}
