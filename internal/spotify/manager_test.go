// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package spotify_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FaelSemW/LovePingServer/internal/platform/apperr"
	"github.com/FaelSemW/LovePingServer/internal/spotify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tokenEndpoint is a fake accounts server counting token requests by
// grant type.
type tokenEndpoint struct {
	exchanges   int64
	refreshes   int64
	stallMillis atomic.Int64 // response delay, to outlast caller deadlines
	failing     atomic.Bool  // 400 invalid_grant
	unavailable atomic.Bool  // 503
}

func (endpoint *tokenEndpoint) handler() http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/api/token" {
			http.NotFound(writer, request)
			return
		}
		if stall := endpoint.stallMillis.Load(); stall > 0 {
			select {
			case <-request.Context().Done():
				return
			case <-time.After(time.Duration(stall) * time.Millisecond):
			}
		}
		if endpoint.unavailable.Load() {
			http.Error(writer, `{"error":"server_error"}`, http.StatusServiceUnavailable)
			return
		}
		if endpoint.failing.Load() {
			http.Error(writer, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}

		_ = request.ParseForm()
		writer.Header().Set("Content-Type", "application/json")
		switch request.PostForm.Get("grant_type") {
		case "authorization_code":
			count := atomic.AddInt64(&endpoint.exchanges, 1)
			fmt.Fprintf(writer, `{"access_token":"access-x%d","refresh_token":"refresh-1","expires_in":3600,"token_type":"Bearer"}`, count)
		case "refresh_token":
			// Slow enough that concurrent callers overlap.
			time.Sleep(20 * time.Millisecond)
			count := atomic.AddInt64(&endpoint.refreshes, 1)
			fmt.Fprintf(writer, `{"access_token":"access-r%d","expires_in":3600,"token_type":"Bearer"}`, count)
		default:
			http.Error(writer, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
		}
	}
}

func newTestManager(t *testing.T, endpoint *tokenEndpoint) (*spotify.Manager, *spotify.MemoryTokenRepository) {
	t.Helper()

	server := httptest.NewServer(endpoint.handler())
	t.Cleanup(server.Close)

	client := spotify.NewClient("client-id", "client-secret", "https://loveping.app/callback")
	client.AccountsURL = server.URL

	repository := spotify.NewMemoryTokenRepository()
	return spotify.NewManager(client, repository, discardLogger()), repository
}

/*
TestManager_Link verifies that a code exchange persists the refresh
token and primes the access-token cache.
*/
func TestManager_Link(t *testing.T) {
	endpoint := &tokenEndpoint{}
	manager, repository := newTestManager(t, endpoint)

	require.NoError(t, manager.Link(context.Background(), "alice", "auth-code"))

	stored, err := repository.Find(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", stored)

	linked, err := manager.Linked(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, linked)

	// The exchange's access token is served from cache: no refresh hits
	// the endpoint.
	token, err := manager.ValidAccessToken(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "access-x1", token)
	assert.EqualValues(t, 0, atomic.LoadInt64(&endpoint.refreshes))
}

/*
TestManager_ValidAccessToken_NotLinked verifies the error for a user
without a delegated grant.
*/
func TestManager_ValidAccessToken_NotLinked(t *testing.T) {
	manager, _ := newTestManager(t, &tokenEndpoint{})

	_, err := manager.ValidAccessToken(context.Background(), "alice")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "NOT_LINKED"))
}

/*
TestManager_ValidAccessToken_SingleFlight verifies that concurrent
callers with a cold cache share exactly one refresh request.
*/
func TestManager_ValidAccessToken_SingleFlight(t *testing.T) {
	endpoint := &tokenEndpoint{}
	manager, repository := newTestManager(t, endpoint)
	require.NoError(t, repository.Save(context.Background(), "alice", "refresh-1"))

	const callers = 16
	tokens := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := manager.ValidAccessToken(context.Background(), "alice")
			assert.NoError(t, err)
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt64(&endpoint.refreshes))
	for _, token := range tokens {
		assert.Equal(t, tokens[0], token)
	}

	// A later call is served from cache.
	token, err := manager.ValidAccessToken(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, tokens[0], token)
	assert.EqualValues(t, 1, atomic.LoadInt64(&endpoint.refreshes))
}

/*
TestManager_RefreshRejected_Severs verifies that a refresh the token
endpoint definitively rejects unlinks the user: the first caller sees
REFRESH_FAILED, later callers see NOT_LINKED.
*/
func TestManager_RefreshRejected_Severs(t *testing.T) {
	endpoint := &tokenEndpoint{}
	manager, repository := newTestManager(t, endpoint)
	require.NoError(t, repository.Save(context.Background(), "alice", "refresh-dead"))
	endpoint.failing.Store(true)

	_, err := manager.ValidAccessToken(context.Background(), "alice")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "REFRESH_FAILED"))

	// The stored pair is gone.
	_, err = repository.Find(context.Background(), "alice")
	assert.True(t, apperr.HasCode(err, "NOT_LINKED"))

	_, err = manager.ValidAccessToken(context.Background(), "alice")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "NOT_LINKED"))
}

/*
TestManager_RefreshTimeout_KeepsLink verifies that a refresh cut short
by the caller's deadline does not unlink the user: the stored refresh
token survives and a later refresh succeeds.
*/
func TestManager_RefreshTimeout_KeepsLink(t *testing.T) {
	endpoint := &tokenEndpoint{}
	endpoint.stallMillis.Store(500)
	manager, repository := newTestManager(t, endpoint)
	require.NoError(t, repository.Save(context.Background(), "alice", "refresh-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := manager.ValidAccessToken(ctx, "alice")
	require.Error(t, err)
	assert.False(t, apperr.HasCode(err, "REFRESH_FAILED"))
	assert.False(t, apperr.HasCode(err, "NOT_LINKED"))

	// The grant is still stored.
	stored, err := repository.Find(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", stored)

	// Once the endpoint answers in time, the same grant refreshes fine.
	endpoint.stallMillis.Store(0)
	token, err := manager.ValidAccessToken(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "access-r1", token)
}

/*
TestManager_RefreshUpstreamOutage_KeepsLink verifies that a 5xx from
the token endpoint is treated as transient: no unlink, no
REFRESH_FAILED, and recovery works with the original refresh token.
*/
func TestManager_RefreshUpstreamOutage_KeepsLink(t *testing.T) {
	endpoint := &tokenEndpoint{}
	endpoint.unavailable.Store(true)
	manager, repository := newTestManager(t, endpoint)
	require.NoError(t, repository.Save(context.Background(), "alice", "refresh-1"))

	_, err := manager.ValidAccessToken(context.Background(), "alice")
	require.Error(t, err)
	assert.False(t, apperr.HasCode(err, "REFRESH_FAILED"))

	stored, err := repository.Find(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", stored)

	endpoint.unavailable.Store(false)
	token, err := manager.ValidAccessToken(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "access-r1", token)
}

/*
TestManager_Unlink verifies that unlinking clears both storage and the
access-token cache.
*/
func TestManager_Unlink(t *testing.T) {
	endpoint := &tokenEndpoint{}
	manager, _ := newTestManager(t, endpoint)
	require.NoError(t, manager.Link(context.Background(), "alice", "auth-code"))

	require.NoError(t, manager.Unlink(context.Background(), "alice"))

	linked, err := manager.Linked(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, linked)

	// The cached access token from Link must not survive the unlink.
	_, err = manager.ValidAccessToken(context.Background(), "alice")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "NOT_LINKED"))
}
