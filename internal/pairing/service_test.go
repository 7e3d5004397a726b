// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package pairing_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FaelSemW/LovePingServer/internal/pairing"
	"github.com/FaelSemW/LovePingServer/internal/platform/apperr"
)

func newService(t *testing.T) *pairing.Service {
	t.Helper()
	service, err := pairing.NewService(context.Background(), pairing.NewMemoryRepository())
	require.NoError(t, err)
	return service
}

/*
TestService_Pair_Symmetry verifies that pairing is mutual: after a
single Pair call, both sides resolve to each other.
*/
func TestService_Pair_Symmetry(t *testing.T) {
	service := newService(t)

	require.NoError(t, service.Pair(context.Background(), "alice", "bob"))

	partner, ok := service.PartnerOf("alice")
	assert.True(t, ok)
	assert.Equal(t, "bob", partner)

	partner, ok = service.PartnerOf("bob")
	assert.True(t, ok)
	assert.Equal(t, "alice", partner)
}

/*
TestService_Pair_Exclusive verifies that a user already in a pairing
cannot enter another one, from either side.
*/
func TestService_Pair_Exclusive(t *testing.T) {
	service := newService(t)
	require.NoError(t, service.Pair(context.Background(), "alice", "bob"))

	tests := []struct {
		name    string
		userID  string
		partner string
	}{
		{"initiator_taken", "alice", "carol"},
		{"partner_taken", "carol", "bob"},
		{"both_taken", "bob", "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.Pair(context.Background(), tt.userID, tt.partner)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, "ALREADY_PAIRED"))
		})
	}

	// Carol must remain unpaired after the rejections.
	_, ok := service.PartnerOf("carol")
	assert.False(t, ok)
}

/*
TestService_Pair_Self verifies that self-pairing is rejected.
*/
func TestService_Pair_Self(t *testing.T) {
	service := newService(t)

	err := service.Pair(context.Background(), "alice", "alice")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "VALIDATION_ERROR"))
}

/*
TestService_Unpair verifies that dissolving a pairing frees both sides.
*/
func TestService_Unpair(t *testing.T) {
	service := newService(t)
	require.NoError(t, service.Pair(context.Background(), "alice", "bob"))

	require.NoError(t, service.Unpair(context.Background(), "bob"))

	_, ok := service.PartnerOf("alice")
	assert.False(t, ok)
	_, ok = service.PartnerOf("bob")
	assert.False(t, ok)

	// Both are free to re-pair.
	require.NoError(t, service.Pair(context.Background(), "alice", "carol"))
}

/*
TestService_Unpair_NotPaired verifies the error for an unpaired caller.
*/
func TestService_Unpair_NotPaired(t *testing.T) {
	service := newService(t)

	err := service.Unpair(context.Background(), "alice")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "NOT_PAIRED"))
}

/*
TestService_Warm verifies that the directory is rebuilt from storage on
construction.
*/
func TestService_Warm(t *testing.T) {
	repository := pairing.NewMemoryRepository()
	require.NoError(t, repository.Create(context.Background(), pairing.NewPairing("alice", "bob")))

	service, err := pairing.NewService(context.Background(), repository)
	require.NoError(t, err)

	partner, ok := service.PartnerOf("alice")
	assert.True(t, ok)
	assert.Equal(t, "bob", partner)
}

/*
TestService_Pair_Concurrent verifies exclusivity under contention: many
users race to pair with the same target and exactly one wins.
*/
func TestService_Pair_Concurrent(t *testing.T) {
	service := newService(t)

	const contenders = 32
	var wg sync.WaitGroup
	var successes int32
	var mu sync.Mutex

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := service.Pair(context.Background(), fmt.Sprintf("user-%d", i), "target")
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				assert.True(t, apperr.HasCode(err, "ALREADY_PAIRED"))
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, successes)

	partner, ok := service.PartnerOf("target")
	require.True(t, ok)

	// The winner's view agrees with the target's.
	reverse, ok := service.PartnerOf(partner)
	require.True(t, ok)
	assert.Equal(t, "target", reverse)
}
