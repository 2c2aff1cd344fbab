// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package auth

import (
	"net/http"

	"github.com/kienvo/identra/internal/platform/apperr"
)

// # Domain Errors

// Sentinel errors of the authentication domain. Handlers pass them straight
// to respond.Error; services compare them with errors.Is.
var (
	// ErrEmailTaken is returned when registration hits an existing email,
	// either at the pre-check or at the unique index.
	ErrEmailTaken = apperr.New(http.StatusBadRequest, "EMAIL_TAKEN",
		"User already exists with this email")

	// ErrInvalidCredentials deliberately covers both unknown-email and
	// wrong-password so login never reveals which part failed.
	ErrInvalidCredentials = apperr.New(http.StatusUnauthorized, "INVALID_CREDENTIALS",
		"Invalid credentials")

	// ErrNotVerified rejects logins for accounts that have not completed
	// email verification.
	ErrNotVerified = apperr.New(http.StatusUnauthorized, "NOT_VERIFIED",
		"Please verify your email before logging in")

	// ErrInvalidVerificationToken covers missing, unknown and already-used
	// verification tokens.
	ErrInvalidVerificationToken = apperr.New(http.StatusBadRequest, "INVALID_TOKEN",
		"Invalid or already used verification token")

	// ErrInvalidResetToken covers unknown, expired and already-used
	// password-reset tokens.
	ErrInvalidResetToken = apperr.New(http.StatusBadRequest, "INVALID_OR_EXPIRED_TOKEN",
		"Invalid or expired reset token")

	// ErrInvalidRefreshToken covers every refresh failure mode: bad
	// signature, unknown ledger row, expired row, or losing a rotation race.
	ErrInvalidRefreshToken = apperr.New(http.StatusForbidden, "INVALID_OR_EXPIRED_TOKEN",
		"Invalid or expired refresh token")
)
