// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

// Package gateway implements the websocket endpoint that couples live
// connections to the presence engine.
//
// # Connection Lifecycle
//
// Every connection walks a fixed state machine:
//
//	Connecting → Authenticated → Active → Closed
//
// Connecting lasts until the client's hello frame arrives (bounded by
// [constants.HelloDeadline]); hello carries the session credential.
// Authenticated covers registration, partner sync, and the initial
// online publish. Active is the steady state of the read loop. Closed
// is terminal: the connection is deregistered and, when it was the
// user's last one, an offline snapshot is published exactly once.
package gateway

import (
	"github.com/FaelSemW/LovePingServer/internal/presence"
)

// MessageType discriminates wire frames in both directions.
type MessageType string

const (
	// TypeHello is the first client frame, carrying the credential.
	TypeHello MessageType = "hello"

	// TypeStatusUpdate is a client-declared status change (online/away).
	TypeStatusUpdate MessageType = "status_update"

	// TypePresencePush is a server frame carrying a partner's snapshot.
	TypePresencePush MessageType = "presence_push"

	// TypeAuthError is the server's terminal rejection frame.
	TypeAuthError MessageType = "auth_error"
)

// ClientMessage is the envelope for frames read from the client. Only
// the fields relevant to the declared type are populated.
type ClientMessage struct {
	Type       MessageType     `json:"type"`
	Credential string          `json:"credential,omitempty"`
	Status     presence.Status `json:"status,omitempty"`
}

// PresencePush is the server frame delivering a partner's snapshot.
type PresencePush struct {
	Type     MessageType       `json:"type"`
	UserID   string            `json:"user_id"`
	Snapshot presence.Snapshot `json:"snapshot"`
}

// AuthError is the server frame sent before closing an unauthenticated
// or misbehaving connection.
type AuthError struct {
	Type   MessageType `json:"type"`
	Reason string      `json:"reason"`
}

func newPresencePush(userID string, snapshot presence.Snapshot) PresencePush {
	return PresencePush{Type: TypePresencePush, UserID: userID, Snapshot: snapshot}
}

func newAuthError(reason string) AuthError {
	return AuthError{Type: TypeAuthError, Reason: reason}
}
