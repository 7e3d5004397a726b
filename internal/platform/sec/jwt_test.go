// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package sec_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FaelSemW/LovePingServer/internal/platform/apperr"
	"github.com/FaelSemW/LovePingServer/internal/platform/sec"
)

const testSecret = "test-secret-key-at-least-32-bytes-long"

// expiredCredential hand-signs a token whose expiry is already in the
// past, using the same secret the service verifies with.
func expiredCredential(t *testing.T) string {
	t.Helper()

	claims := sec.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "loveping.app",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		UserID:   "user-123",
		Username: "alice",
	}

	credential, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return credential
}

/*
TestTokenService_RoundTrip verifies that an issued credential verifies
back to the same identity.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service, err := sec.NewTokenService(testSecret, "loveping.app", time.Hour)
	require.NoError(t, err)

	credential, err := service.Issue("user-123", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, credential)

	claims, err := service.Verify(credential)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "loveping.app", claims.Issuer)
}

/*
TestTokenService_Constructor verifies the startup guards.
*/
func TestTokenService_Constructor(t *testing.T) {
	_, err := sec.NewTokenService("", "loveping.app", time.Hour)
	assert.Error(t, err)

	_, err = sec.NewTokenService(testSecret, "loveping.app", 0)
	assert.Error(t, err)
}

/*
TestTokenService_Expired verifies that a credential past its TTL is
rejected.
*/
func TestTokenService_Expired(t *testing.T) {
	service, err := sec.NewTokenService(testSecret, "loveping.app", time.Hour)
	require.NoError(t, err)

	_, err = service.Verify(expiredCredential(t))
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "UNAUTHORIZED"))
}

/*
TestTokenService_ExpiryBoundary verifies that a credential is invalid
from its expiry instant onward: there is no leeway, so exp == now is
already rejected while a later expiry still verifies.
*/
func TestTokenService_ExpiryBoundary(t *testing.T) {
	service, err := sec.NewTokenService(testSecret, "loveping.app", time.Hour)
	require.NoError(t, err)

	now := time.Now()
	sign := func(expiresAt time.Time) string {
		claims := sec.SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-123",
				Issuer:    "loveping.app",
				IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			UserID:   "user-123",
			Username: "alice",
		}
		credential, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return credential
	}

	// Expiry exactly now: the instant has been reached, so the
	// credential is already dead.
	_, err = service.Verify(sign(now))
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "UNAUTHORIZED"))

	// A future expiry with otherwise identical claims still verifies.
	claims, err := service.Verify(sign(now.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
}

/*
TestTokenService_ForgedSignature verifies that a credential signed with
a different key is rejected.
*/
func TestTokenService_ForgedSignature(t *testing.T) {
	issuer, err := sec.NewTokenService("another-secret-key-32-bytes-long!!", "loveping.app", time.Hour)
	require.NoError(t, err)
	verifier, err := sec.NewTokenService(testSecret, "loveping.app", time.Hour)
	require.NoError(t, err)

	forged, err := issuer.Issue("user-123", "alice")
	require.NoError(t, err)

	_, err = verifier.Verify(forged)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "UNAUTHORIZED"))
}

/*
TestTokenService_SingleErrorSurface verifies that every rejection looks
the same to a caller, whatever the underlying cause.
*/
func TestTokenService_SingleErrorSurface(t *testing.T) {
	service, err := sec.NewTokenService(testSecret, "loveping.app", time.Hour)
	require.NoError(t, err)

	expired := expiredCredential(t)

	tests := []struct {
		name       string
		credential string
	}{
		{"garbage", "not-a-jwt"},
		{"empty", ""},
		{"expired", expired},
		{"truncated", expired[:len(expired)/2]},
	}

	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Verify(tt.credential)
			require.Error(t, err)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, "UNAUTHORIZED", ae.Code)
			messages = append(messages, ae.Message)
		})
	}

	// Same client-visible message for every failure mode.
	for _, message := range messages {
		assert.Equal(t, messages[0], message)
	}
}
