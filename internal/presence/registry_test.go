// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package presence_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FaelSemW/LovePingServer/internal/presence"
)

// fakeSender records snapshots it was asked to deliver.
type fakeSender struct {
	id string

	mu       sync.Mutex
	received []presence.Snapshot
	full     bool
}

func newFakeSender(id string) *fakeSender {
	return &fakeSender{id: id}
}

func (sender *fakeSender) ID() string { return sender.id }

func (sender *fakeSender) SendSnapshot(_ string, snapshot presence.Snapshot) bool {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if sender.full {
		return false
	}
	sender.received = append(sender.received, snapshot)
	return true
}

func (sender *fakeSender) snapshots() []presence.Snapshot {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	return append([]presence.Snapshot(nil), sender.received...)
}

/*
TestRegistry_RegisterFirst verifies that only the first connection for a
user reports first=true.
*/
func TestRegistry_RegisterFirst(t *testing.T) {
	registry := presence.NewRegistry()

	assert.True(t, registry.Register("alice", newFakeSender("c1")))
	assert.False(t, registry.Register("alice", newFakeSender("c2")))
	assert.Equal(t, 2, registry.Count("alice"))

	// A different user starts its own count.
	assert.True(t, registry.Register("bob", newFakeSender("c3")))
}

/*
TestRegistry_Deregister verifies the remaining count and idempotency.
*/
func TestRegistry_Deregister(t *testing.T) {
	registry := presence.NewRegistry()
	registry.Register("alice", newFakeSender("c1"))
	registry.Register("alice", newFakeSender("c2"))

	assert.Equal(t, 1, registry.Deregister("alice", "c1"))
	assert.Equal(t, 0, registry.Deregister("alice", "c2"))

	// Unknown connection and empty user are harmless.
	assert.Equal(t, 0, registry.Deregister("alice", "c2"))
	assert.Equal(t, 0, registry.Deregister("nobody", "cX"))
}

/*
TestRegistry_Connections verifies that the returned slice is a snapshot,
not a live view.
*/
func TestRegistry_Connections(t *testing.T) {
	registry := presence.NewRegistry()
	first := newFakeSender("c1")
	registry.Register("alice", first)

	connections := registry.Connections("alice")
	require.Len(t, connections, 1)

	registry.Deregister("alice", "c1")
	assert.Len(t, connections, 1, "previously returned slice must be unaffected")
	assert.Empty(t, registry.Connections("alice"))
}

/*
TestRegistry_ExactlyOneZero verifies that under concurrent deregisters
exactly one caller observes the count reaching zero. That caller owns
the user's offline transition.
*/
func TestRegistry_ExactlyOneZero(t *testing.T) {
	registry := presence.NewRegistry()

	const connections = 64
	for i := 0; i < connections; i++ {
		registry.Register("alice", newFakeSender(fmt.Sprintf("c%d", i)))
	}

	var zeroObservers int64
	var wg sync.WaitGroup
	for i := 0; i < connections; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if registry.Deregister("alice", fmt.Sprintf("c%d", i)) == 0 {
				atomic.AddInt64(&zeroObservers, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, zeroObservers)
	assert.Equal(t, 0, registry.Count("alice"))
}
