// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Gateway: WebSocket handshake deadlines and outbound buffer sizing.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: Credential issuer and Spotify OAuth endpoints.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "loveping-server"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	// The websocket endpoint is exempt: a live connection outlives any
	// sane HTTP deadline.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Gateway (live connections)

const (
	// HelloDeadline is how long a freshly accepted connection has to send
	// its hello frame with a valid credential before being closed.
	HelloDeadline = 10 * time.Second

	// WriteDeadline bounds a single outbound frame write.
	WriteDeadline = 10 * time.Second

	// PongDeadline is the read deadline extended on every received pong.
	PongDeadline = 60 * time.Second

	// PingInterval is how often the server pings an idle connection.
	// Must be shorter than PongDeadline.
	PingInterval = 45 * time.Second

	// OutboundBufferSize is the per-connection buffered push queue.
	// A full buffer drops the push: delivery is best effort and a
	// reconnecting client resyncs from the last-known snapshot.
	OutboundBufferSize = 16

	// MaxInboundMessageSize caps a single client frame.
	MaxInboundMessageSize = 1 << 12

	// InboundMessagesPerSecond limits status updates per connection.
	InboundMessagesPerSecond = 5.0

	// InboundMessageBurst is the token bucket burst for inbound frames.
	InboundMessageBurst = 10
)

// # Rate Limiting (HTTP)

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in session credentials.
	AuthIssuer = "loveping.app"

	// ProductionOriginSuffix identifies first-party browser origins for
	// CORS and websocket handshake checks.
	ProductionOriginSuffix = "loveping.app"
)

// # Spotify Delegated Access

const (
	// SpotifyAccountsURL is the base URL of the token/authorize endpoints.
	SpotifyAccountsURL = "https://accounts.spotify.com"

	// SpotifyAPIURL is the base URL of the Web API.
	SpotifyAPIURL = "https://api.spotify.com"

	// SpotifyScopes are the delegated permissions requested on connect.
	SpotifyScopes = "user-read-currently-playing user-read-playback-state"

	// OAuthStateTTL bounds how long an issued CSRF state token is accepted.
	OAuthStateTTL = 10 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldStatus  = "status"
	FieldChecks  = "checks"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixPresence   = "presence:snapshot:"
	RedisPrefixOAuthState = "spotify:oauth_state:"
)
