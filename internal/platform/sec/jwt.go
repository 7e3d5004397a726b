// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

// Package sec provides cryptographic primitives and session-credential management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, credential signing)
// from the domain logic. It acts as an Infrastructure service injected into
// the Application layer via small interfaces.
package sec

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FaelSemW/LovePingServer/internal/platform/apperr"
)

// SessionClaims represents the payload embedded inside a session credential.
//
// # Why custom claims?
//
// By embedding the UserID and Username directly inside the credential,
// the gateway and the HTTP middleware can reconstruct the active user
// context WITHOUT querying the database on every request or frame.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the token payload small.
	UserID   string `json:"uid"`
	Username string `json:"unm"`
}

// TokenService issues and verifies session credentials signed with HS256.
//
// The signing key is loaded once at startup and never mutated afterwards,
// so the service is safe for concurrent use without locking.
type TokenService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

// errCredential is the single failure surface for Verify. Signature
// forgery and expiry intentionally produce the same error so callers
// cannot probe which one occurred.
var errCredential = apperr.Unauthorized("Invalid or expired credential")

// NewTokenService creates a new TokenService with the given HMAC secret,
// issuer, and credential time-to-live.
func NewTokenService(secret, issuer string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("sec: signing secret must not be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("sec: credential ttl must be positive")
	}

	return &TokenService{
		signingKey: []byte(secret),
		issuer:     issuer,
		ttl:        ttl,
	}, nil
}

// Issue creates a signed session credential for a user.
func (service *TokenService) Issue(userID, username string) (string, error) {
	currentTime := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.ttl)),
		},
		UserID:   userID,
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.signingKey)
	if err != nil {
		return "", errors.Join(errors.New("sec: failed to sign credential"), err)
	}

	return signedToken, nil
}

// Verify checks the signature and validity window of a credential string.
//
// # Returns
//   - The embedded [*SessionClaims] when the credential is authentic and unexpired.
//   - The same [apperr.Unauthorized] error for every failure mode: forged
//     signature, wrong algorithm, malformed token, or expiry. A credential
//     whose expiry instant has been reached is already invalid (no leeway),
//     which keeps the boundary deterministic.
func (service *TokenService) Verify(credential string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(credential, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("sec: unexpected signing method")
		}
		return service.signingKey, nil
	})

	if err != nil {
		return nil, errCredential
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errCredential
	}

	return claims, nil
}
