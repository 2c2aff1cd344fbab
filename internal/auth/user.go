// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

/*
Package auth implements the identity core: registration, email verification,
credential login, refresh-token rotation, logout, and password recovery.

# Architecture

  - Entities: User (credential store row) and RefreshToken (ledger row).
  - Service: Orchestrates the authentication flows.
  - Repositories: Abstracted interfaces for Postgres (users, ledger) and
    Redis (session cache, blacklist).

This layer is the "Truth" of the system. Entities defined here have no
transport dependencies and encapsulate all business rules related to identity.
*/
package auth

import (
	"time"

	"github.com/kienvo/identra/internal/platform/sec"
)

// # Domain Entities

// User represents a registered account in the credential store.
//
// Sensitive columns (password hash, single-use tokens) are explicitly omitted
// from JSON so a serialized User is always safe to return to clients or to
// place in the profile snapshot cache.
type User struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Role         sec.UserRole `json:"role"`
	IsVerified   bool         `json:"isVerified"`

	// VerificationToken is the pending single-use email-verification token.
	// Nil once the account has been verified.
	VerificationToken *string `json:"-"`

	// ResetToken and ResetExpiresAt form the nullable password-reset pair.
	// The token is only honored while ResetExpiresAt is in the future.
	ResetToken     *string    `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`

	ProfileImage *string   `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RefreshToken is a row of the refresh-token ledger: the persisted mapping
// from a token value to its owning user and expiry.
//
// Rotation replaces Token and ExpiresAt in place, so at most one ledger row
// exists per logical session.
type RefreshToken struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// # Field Identifiers

// Wire-level field names for validation and response mapping in the
// authentication domain.
const (
	FieldName         = "name"
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldRole         = "role"
	FieldToken        = "token"
	FieldProfileImage = "profileImage"
	FieldAccessToken  = "accessToken"
	FieldRefreshToken = "refreshToken"
	FieldUser         = "user"
	FieldMessage      = "message"
)
