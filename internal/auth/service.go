// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package auth

import (
	"context"
	"fmt"

	"github.com/FaelSemW/LovePingServer/internal/platform/apperr"
	"github.com/FaelSemW/LovePingServer/internal/platform/sec"
	"github.com/FaelSemW/LovePingServer/internal/platform/validate"
	"github.com/FaelSemW/LovePingServer/pkg/uuidv7"
)

// CredentialIssuer defines the contract for issuing session credentials.
//
// # Why an interface?
//
// The concrete [sec.TokenService] carries the signing key; hiding it
// behind this interface keeps the key out of the identity service and
// makes tests independent of real cryptography.
type CredentialIssuer interface {
	// Issue creates a signed session credential for the given user.
	Issue(userID, username string) (string, error)
}

// Service implements account registration and login use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing,
// registration, or login logic must be reviewed carefully.
type Service struct {
	userRepository UserRepository
	credentials    CredentialIssuer
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(userRepository UserRepository, credentials CredentialIssuer) *Service {
	return &Service{
		userRepository: userRepository,
		credentials:    credentials,
	}
}

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
}

// LoginSession represents a successfully established session: the
// signed credential plus the account it belongs to.
type LoginSession struct {
	Credential string
	User       *User
}

// Register validates, hashes, and persists a brand new user account,
// then issues a session credential so the client is logged in
// immediately.
//
// # Returns
//   - [apperr.Conflict] if the username already exists.
//   - [apperr.ValidationError] for malformed input.
//
// # Business Rules
//   - Usernames are unique, normalized to lowercase, 3–32 characters.
//   - Passwords are at least 6 characters and stored only as bcrypt hashes.
func (service *Service) Register(ctx context.Context, input RegisterInput) (*LoginSession, error) {
	// ── 1. Normalization & Validation ─────────────────────────────────────

	username := NormalizeUsername(input.Username)

	v := &validate.Validator{}
	v.Required("username", username).
		MinLen("username", username, 3).
		MaxLen("username", username, 32).
		Username("username", username).
		MinLen("password", input.Password, 6)
	if err := v.Err(); err != nil {
		return nil, err
	}

	// ── 2. Uniqueness Check ───────────────────────────────────────────────

	// Verify username uniqueness. Return a client-safe Conflict error.
	_, err := service.userRepository.FindByUsername(ctx, username)
	if err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// ── 3. Security ───────────────────────────────────────────────────────

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 4. Entity Construction & Persistence ──────────────────────────────

	displayName := input.DisplayName
	if displayName == "" {
		displayName = username
	}

	user := &User{
		ID:           uuidv7.New(), // Time-sortable ID to prevent PG index fragmentation.
		Username:     username,
		PasswordHash: hashedPassword,
		DisplayName:  displayName,
	}

	if err := service.userRepository.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	// ── 5. Credential Issuance ────────────────────────────────────────────

	credential, err := service.credentials.Issue(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("auth_service_credential_failed: %w", err)
	}

	return &LoginSession{Credential: credential, User: user}, nil
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Username string
	Password string
}

// Login validates account credentials and issues a session credential.
//
// # Returns
//   - [apperr.Unauthorized] if the credentials do not match. The same
//     error covers unknown usernames and wrong passwords to prevent
//     account enumeration.
func (service *Service) Login(ctx context.Context, input LoginInput) (*LoginSession, error) {
	// ── 1. Fetch Account ──────────────────────────────────────────────────

	user, err := service.userRepository.FindByUsername(ctx, NormalizeUsername(input.Username))
	if err != nil {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// ── 2. Security Verification ──────────────────────────────────────────

	// bcrypt comparison is constant-time, preventing timing attacks.
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// ── 3. Credential Issuance ────────────────────────────────────────────

	credential, err := service.credentials.Issue(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("auth_service_credential_failed: %w", err)
	}

	return &LoginSession{Credential: credential, User: user}, nil
}
