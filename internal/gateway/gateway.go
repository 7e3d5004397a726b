// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FaelSemW/LovePingServer/internal/platform/constants"
	"github.com/FaelSemW/LovePingServer/internal/platform/sec"
	"github.com/FaelSemW/LovePingServer/internal/presence"
)

// Verifier checks session credentials presented in hello frames.
// Satisfied by [sec.TokenService].
type Verifier interface {
	Verify(credential string) (*sec.SessionClaims, error)
}

// PollerControl starts and stops a user's now-playing loop. Satisfied
// by [spotify.Poller].
type PollerControl interface {
	Start(ctx context.Context, userID string)
	Stop(userID string)
}

// Gateway owns the websocket endpoint and drives each connection
// through its lifecycle.
type Gateway struct {
	verifier    Verifier
	registry    *presence.Registry
	broadcaster *presence.Broadcaster
	poller      PollerControl
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewGateway constructs a Gateway. allowedOrigins are extra origins
// accepted during the upgrade handshake alongside the production
// domain; development mode accepts everything.
func NewGateway(verifier Verifier, registry *presence.Registry, broadcaster *presence.Broadcaster, poller PollerControl, allowedOrigins []string, development bool, logger *slog.Logger) *Gateway {
	gateway := &Gateway{
		verifier:    verifier,
		registry:    registry,
		broadcaster: broadcaster,
		poller:      poller,
		logger:      logger,
	}
	gateway.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins, development),
	}
	return gateway
}

func originChecker(allowedOrigins []string, development bool) func(*http.Request) bool {
	return func(request *http.Request) bool {
		if development {
			return true
		}
		origin := request.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no Origin header.
			return true
		}
		if strings.HasSuffix(origin, constants.ProductionOriginSuffix) {
			return true
		}
		for _, allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}
		return false
	}
}

// HandleWS handles GET /ws upgrade requests.
//
// The route is mounted outside the request-timeout middleware; the
// connection outlives any sane HTTP deadline.
func (gateway *Gateway) HandleWS(writer http.ResponseWriter, request *http.Request) {
	socket, err := gateway.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		gateway.logger.Debug("gateway_upgrade_failed", slog.String("error", err.Error()))
		return
	}

	conn := newConnection(socket, gateway.logger)

	// ── 1. Hello Authentication (Connecting) ──────────────────────────────

	claims, reason := gateway.awaitHello(conn)
	if claims == nil {
		// writePump has not started yet, so a direct write is safe.
		_ = socket.SetWriteDeadline(time.Now().Add(constants.WriteDeadline))
		_ = socket.WriteJSON(newAuthError(reason))
		conn.close()
		return
	}
	conn.userID = claims.UserID
	conn.logger = conn.logger.With(slog.String("user_id", claims.UserID))

	// ── 2. Registration & Sync (Authenticated) ────────────────────────────

	go conn.writePump()

	ctx := context.WithoutCancel(request.Context())
	first := gateway.registry.Register(claims.UserID, conn)
	if first {
		gateway.poller.Start(ctx, claims.UserID)
	}

	// The fresh connection learns the partner's last known state before
	// any live pushes arrive.
	if err := gateway.broadcaster.SyncPartner(ctx, claims.UserID, conn); err != nil {
		conn.logger.Error("gateway_partner_sync_failed", slog.String("error", err.Error()))
	}

	gateway.publishStatus(ctx, claims.UserID, presence.StatusOnline)
	conn.logger.Info("gateway_connected", slog.Bool("first_connection", first))

	// ── 3. Read Loop (Active) ─────────────────────────────────────────────

	gateway.readLoop(ctx, conn)

	// ── 4. Teardown (Closed) ──────────────────────────────────────────────

	conn.close()
	remaining := gateway.registry.Deregister(claims.UserID, conn.ID())
	if remaining == 0 {
		// Last connection gone. Offline clears the playback fragment.
		offline := presence.NewSnapshot(presence.StatusOffline, nil)
		if err := gateway.broadcaster.Publish(ctx, claims.UserID, offline); err != nil {
			conn.logger.Error("gateway_offline_publish_failed", slog.String("error", err.Error()))
		}
		gateway.poller.Stop(claims.UserID)
	}
	conn.logger.Info("gateway_disconnected", slog.Int("remaining_connections", remaining))
}

// awaitHello reads the first client frame and verifies its credential.
// Returns nil claims and a close reason on any failure.
func (gateway *Gateway) awaitHello(conn *connection) (*sec.SessionClaims, string) {
	conn.socket.SetReadLimit(constants.MaxInboundMessageSize)
	if err := conn.socket.SetReadDeadline(time.Now().Add(constants.HelloDeadline)); err != nil {
		return nil, "handshake failed"
	}

	var hello ClientMessage
	if err := conn.socket.ReadJSON(&hello); err != nil {
		return nil, "expected hello frame"
	}
	if hello.Type != TypeHello || hello.Credential == "" {
		return nil, "expected hello frame"
	}

	claims, err := gateway.verifier.Verify(hello.Credential)
	if err != nil {
		return nil, "invalid credential"
	}
	return claims, ""
}

// readLoop consumes client frames until the socket fails or the peer
// disconnects.
func (gateway *Gateway) readLoop(ctx context.Context, conn *connection) {
	resetDeadline := func() {
		_ = conn.socket.SetReadDeadline(time.Now().Add(constants.PongDeadline))
	}
	resetDeadline()
	conn.socket.SetPongHandler(func(string) error {
		resetDeadline()
		return nil
	})

	for {
		var message ClientMessage
		if err := conn.socket.ReadJSON(&message); err != nil {
			return
		}
		resetDeadline()

		if !conn.limiter.Allow() {
			conn.logger.Debug("gateway_inbound_rate_limited")
			continue
		}

		switch message.Type {
		case TypeStatusUpdate:
			// Offline is server-derived from disconnects, never
			// client-declared.
			if !message.Status.Valid() || message.Status == presence.StatusOffline {
				conn.logger.Debug("gateway_invalid_status", slog.String("status", string(message.Status)))
				continue
			}
			gateway.publishStatus(ctx, conn.userID, message.Status)
		default:
			conn.logger.Debug("gateway_unknown_frame", slog.String("type", string(message.Type)))
		}
	}
}

// publishStatus publishes a status change while preserving the user's
// current playback fragment; only the poller and teardown touch it.
func (gateway *Gateway) publishStatus(ctx context.Context, userID string, status presence.Status) {
	var nowPlaying *presence.NowPlaying
	if last, ok, err := gateway.broadcaster.LastSnapshot(ctx, userID); err == nil && ok {
		nowPlaying = last.NowPlaying
	}

	snapshot := presence.NewSnapshot(status, nowPlaying)
	if err := gateway.broadcaster.Publish(ctx, userID, snapshot); err != nil {
		gateway.logger.Error("gateway_status_publish_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}
}
