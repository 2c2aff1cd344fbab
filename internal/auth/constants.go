// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package auth

import "time"

// # Token Lifetimes

const (
	// AccessTokenTTL is the lifetime of short-lived access JWTs. Revocation
	// before this window expires goes through the Redis blacklist.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the lifetime of a ledger row. Each successful
	// rotation restarts the window.
	RefreshTokenTTL = 7 * 24 * time.Hour

	// ResetTokenTTL bounds how long a password-reset token is honored.
	ResetTokenTTL = time.Hour
)

// # Opaque Token Sizes

// Byte lengths of the random single-use tokens, before hex encoding.
const (
	VerificationTokenLength = 32
	ResetTokenLength        = 32
)

// # Cache Lifetimes

const (
	// ProfileCacheTTL is the lifetime of a user:{id} profile snapshot.
	ProfileCacheTTL = time.Hour
)

// # Validation Limits

const (
	MinPasswordLength = 8
	MaxNameLength     = 100
	MaxEmailLength    = 255
)
