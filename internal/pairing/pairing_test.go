// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package pairing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FaelSemW/LovePingServer/internal/pairing"
)

/*
TestNewPairing_Canonical verifies that pairings store their members in a
fixed order regardless of who initiated.
*/
func TestNewPairing_Canonical(t *testing.T) {
	forward := pairing.NewPairing("alice", "bob")
	backward := pairing.NewPairing("bob", "alice")

	assert.Equal(t, forward.UserA, backward.UserA)
	assert.Equal(t, forward.UserB, backward.UserB)
	assert.True(t, forward.UserA < forward.UserB)
}

/*
TestPairing_Membership verifies Contains and Other.
*/
func TestPairing_Membership(t *testing.T) {
	p := pairing.NewPairing("alice", "bob")

	assert.True(t, p.Contains("alice"))
	assert.True(t, p.Contains("bob"))
	assert.False(t, p.Contains("carol"))

	assert.Equal(t, "bob", p.Other("alice"))
	assert.Equal(t, "alice", p.Other("bob"))
}
