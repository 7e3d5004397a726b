// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

// Package spotify implements delegated access to the Spotify Web API:
// the OAuth-style token lifecycle (exchange, storage, single-flight
// refresh) and the now-playing poller that enriches presence snapshots.
//
// # Architecture
//
//   - Client: raw HTTP calls to the accounts service and Web API.
//   - Manager: token ownership — exchange, per-user refresh, unlink.
//   - Poller: per-user background fetch loops, active only while the
//     user has a live connection.
//   - Handler: the connect/callback redirect surface.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FaelSemW/LovePingServer/internal/platform/constants"
	"github.com/FaelSemW/LovePingServer/internal/presence"
)

// requestTimeout bounds every outbound call to Spotify. The original
// deployment saw occasional multi-second accounts-service latency, so
// this is generous but still far below the poll interval ceiling.
const requestTimeout = 20 * time.Second

// Grant is a token response from the accounts service.
//
// RefreshToken is empty on refresh responses: Spotify only returns it
// on the initial authorization-code exchange.
type Grant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// ExpiresAt computes the absolute expiry instant of the access token.
func (g *Grant) ExpiresAt(issuedAt time.Time) time.Time {
	return issuedAt.Add(time.Duration(g.ExpiresIn) * time.Second)
}

// GrantRejectedError is a definitive rejection from the token endpoint:
// the accounts service understood the request and refused the grant
// (invalid_grant, revoked consent, bad client credentials). Transport
// failures, timeouts and 5xx answers are plain errors, not rejections.
type GrantRejectedError struct {
	StatusCode int
	Body       string
}

func (e *GrantRejectedError) Error() string {
	return fmt.Sprintf("spotify_token_endpoint_status_%d: %s", e.StatusCode, e.Body)
}

// Client performs raw HTTP calls against the Spotify accounts service
// and Web API.
//
// # Testability
//
// AccountsURL and APIURL default to the production endpoints but are
// plain fields, so tests point them at an httptest server instead of
// mocking the client.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AccountsURL  string
	APIURL       string

	httpClient *http.Client
}

// NewClient constructs a Client wired to the production endpoints.
func NewClient(clientID, clientSecret, redirectURI string) *Client {
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		AccountsURL:  constants.SpotifyAccountsURL,
		APIURL:       constants.SpotifyAPIURL,
		httpClient:   &http.Client{Timeout: requestTimeout},
	}
}

// Configured reports whether provider credentials were supplied. The
// server runs without them, with the link surface disabled.
func (client *Client) Configured() bool {
	return client.ClientID != "" && client.ClientSecret != "" && client.RedirectURI != ""
}

// AuthorizeURL builds the user-facing authorization redirect target.
func (client *Client) AuthorizeURL(state string) string {
	query := url.Values{}
	query.Set("client_id", client.ClientID)
	query.Set("response_type", "code")
	query.Set("redirect_uri", client.RedirectURI)
	query.Set("scope", constants.SpotifyScopes)
	query.Set("state", state)
	query.Set("show_dialog", "false")

	return client.AccountsURL + "/authorize?" + query.Encode()
}

// Exchange trades a one-time authorization code for a token grant.
func (client *Client) Exchange(ctx context.Context, code string) (*Grant, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", client.RedirectURI)

	return client.tokenRequest(ctx, form)
}

// Refresh trades a refresh token for a fresh access token.
//
// Spotify invalidates a refresh token on certain refresh flows, so the
// caller must never issue two Refresh calls for the same user
// concurrently — the [Manager] enforces that with single-flight.
func (client *Client) Refresh(ctx context.Context, refreshToken string) (*Grant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	return client.tokenRequest(ctx, form)
}

// tokenRequest posts a form to the accounts token endpoint with HTTP
// basic authentication, as the accounts service requires.
func (client *Client) tokenRequest(ctx context.Context, form url.Values) (*Grant, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost,
		client.AccountsURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("spotify_token_request_build_failed: %w", err)
	}
	request.SetBasicAuth(client.ClientID, client.ClientSecret)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("spotify_token_request_failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		// 4xx means the endpoint evaluated the grant and said no; 429
		// and 5xx are retryable and must not look like a rejection.
		if response.StatusCode >= 400 && response.StatusCode < 500 && response.StatusCode != http.StatusTooManyRequests {
			return nil, &GrantRejectedError{StatusCode: response.StatusCode, Body: string(body)}
		}
		return nil, fmt.Errorf("spotify_token_endpoint_status_%d: %s", response.StatusCode, string(body))
	}

	grant := &Grant{}
	if err := json.NewDecoder(response.Body).Decode(grant); err != nil {
		return nil, fmt.Errorf("spotify_token_decode_failed: %w", err)
	}
	if grant.AccessToken == "" {
		return nil, fmt.Errorf("spotify_token_response_missing_access_token")
	}

	return grant, nil
}

// playbackResponse mirrors the fields of the currently-playing payload
// that LovePing cares about.
type playbackResponse struct {
	IsPlaying  bool  `json:"is_playing"`
	ProgressMS int64 `json:"progress_ms"`
	Item       *struct {
		Name    string `json:"name"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
	} `json:"item"`
}

// CurrentlyPlaying fetches the user's current playback state and
// normalizes it into a presence fragment.
//
// # Returns
//   - (nil, nil) when nothing is playing (HTTP 204 or an empty item);
//     absence of playback is a valid state, not an error.
func (client *Client) CurrentlyPlaying(ctx context.Context, accessToken string) (*presence.NowPlaying, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet,
		client.APIURL+"/v1/me/player/currently-playing", nil)
	if err != nil {
		return nil, fmt.Errorf("spotify_playback_request_build_failed: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+accessToken)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("spotify_playback_request_failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify_playback_endpoint_status_%d", response.StatusCode)
	}

	var payload playbackResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("spotify_playback_decode_failed: %w", err)
	}
	if payload.Item == nil {
		return nil, nil
	}

	fragment := &presence.NowPlaying{
		Track:     payload.Item.Name,
		Playing:   payload.IsPlaying,
		Progress:  payload.ProgressMS,
		FetchedAt: time.Now(),
	}
	if len(payload.Item.Artists) > 0 {
		fragment.Artist = payload.Item.Artists[0].Name
	}

	return fragment, nil
}
