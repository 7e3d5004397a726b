// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

// Package pairing implements the partner directory: the mutual,
// exclusive link between exactly two users that enables presence
// sharing.
//
// # Architecture
//
//   - Service: Owns the authoritative in-memory map and serializes all
//     mutations; every read and write goes through its operations.
//   - Repository: Durability behind an interface (PostgreSQL in
//     production, in-memory in tests).
//
// # Invariants
//
//   - A user appears in at most one pairing at a time.
//   - Both directions of a pairing become visible atomically; no reader
//     ever observes a one-sided link.
package pairing

import (
	"time"
)

// Pairing is the symmetric relation between exactly two users.
//
// # Canonical Form
//
// UserA is always the lexicographically smaller id. Storage keeps one
// row per pairing; the directory materializes both directions.
type Pairing struct {
	UserA     string    `json:"user_a"`
	UserB     string    `json:"user_b"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPairing builds a pairing in canonical form from two user ids.
func NewPairing(a, b string) Pairing {
	if b < a {
		a, b = b, a
	}
	return Pairing{UserA: a, UserB: b, CreatedAt: time.Now()}
}

// Contains reports whether the pairing involves the given user.
func (p Pairing) Contains(userID string) bool {
	return p.UserA == userID || p.UserB == userID
}

// Other returns the partner of the given user within this pairing.
func (p Pairing) Other(userID string) string {
	if p.UserA == userID {
		return p.UserB
	}
	return p.UserA
}
