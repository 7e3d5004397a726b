// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

// Package auth implements the identity layer of LovePing: account
// registration, login, and session-credential issuance.
//
// # Architecture
//
//   - Service: Orchestrates business logic (Register, Login).
//   - Repository: Abstracted interface for PostgreSQL user storage.
//   - Security: Bcrypt hashing and HS256 credentials via [sec].
//
// Session credentials are stateless: nothing is stored server-side and
// there is no revocation list. A credential dies only by expiry.
package auth

import (
	"strings"
	"time"
)

// User represents a registered LovePing account.
//
// # Rules
//   - Username is unique, lowercase, 3–32 characters.
//   - PasswordHash is generated via bcrypt exclusively by the Service.
//   - The presence snapshot is NOT stored here; live state lives in the
//     presence package and its volatile store.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeUsername canonicalizes a username the way the login and
// registration paths expect it: trimmed and lowercased.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
