// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/kienvo/identra/internal/platform/sec"
)

// # Storage Contracts

// UserRepository persists accounts in the credential store.
//
// Lookup methods return apperr.NotFound when no row matches; Create returns
// ErrEmailTaken on a duplicate email.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByVerificationToken resolves a pending verification token.
	// Verified accounts have a NULL token, so a consumed token never
	// matches again.
	FindByVerificationToken(ctx context.Context, token string) (*User, error)

	// MarkVerified flips the account to verified and clears the
	// verification token in the same statement.
	MarkVerified(ctx context.Context, userID string) error

	// SetResetToken stores a fresh reset token with its expiry,
	// overwriting any previous pending reset.
	SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error

	// FindByActiveResetToken resolves a reset token that has not expired
	// at the given instant. The comparison fails closed: a token at or
	// past its expiry never matches.
	FindByActiveResetToken(ctx context.Context, token string, now time.Time) (*User, error)

	// UpdatePassword replaces the password hash and clears the reset
	// token pair in the same statement, making the token single-use.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// RefreshTokenRepository is the refresh-token ledger.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	Find(ctx context.Context, token string) (*RefreshToken, error)

	// Rotate atomically replaces oldToken with newToken in place, guarded
	// by a not-yet-expired check. It reports false when no live row
	// matched, which is how concurrent rotations of the same token
	// resolve to a single winner.
	Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) (bool, error)

	// Delete removes a ledger row. Deleting an absent token is not an
	// error, so logout stays idempotent.
	Delete(ctx context.Context, token string) error
}

// SessionCache is the Redis-backed session layer: profile snapshots plus the
// access-token blacklist. Every entry is reconstructible from Postgres, so
// callers may treat cache failures as non-fatal where the flow allows it.
type SessionCache interface {
	SetProfile(ctx context.Context, user *User) error
	DeleteProfile(ctx context.Context, userID string) error

	// BlacklistAccessToken marks an access token revoked for the given
	// remaining lifetime, after which the entry expires on its own.
	BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error
	IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error)
}

// # Collaborator Contracts

// TokenIssuer is the subset of sec.TokenService the auth service needs.
type TokenIssuer interface {
	IssueTokenPair(userID, role string) (sec.TokenPair, error)
	VerifyRefreshToken(token string) (*sec.AuthClaims, error)
	AccessTokenTTL() time.Duration
}

// Mailer dispatches account notifications. Implementations must be safe for
// concurrent use; the service invokes them from detached goroutines.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, recipient, token string) error
	SendPasswordResetEmail(ctx context.Context, recipient, token string) error
}
