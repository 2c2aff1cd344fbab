// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/kienvo/identra/internal/platform/apperr"
	"github.com/kienvo/identra/internal/platform/ctxutil"
	"github.com/kienvo/identra/internal/platform/sec"
	"github.com/kienvo/identra/pkg/uuidv7"
)

// # Service

// Service orchestrates the authentication flows over the credential store,
// the refresh-token ledger, the session cache and the mail dispatcher.
type Service struct {
	users   UserRepository
	ledger  RefreshTokenRepository
	cache   SessionCache
	tokens  TokenIssuer
	mailer  Mailer
	nowFunc func() time.Time
}

func NewService(
	users UserRepository,
	ledger RefreshTokenRepository,
	cache SessionCache,
	tokens TokenIssuer,
	mailer Mailer,
) *Service {
	return &Service{
		users:   users,
		ledger:  ledger,
		cache:   cache,
		tokens:  tokens,
		mailer:  mailer,
		nowFunc: time.Now,
	}
}

// # Inputs and Outputs

type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	ProfileImage *string
}

type LoginInput struct {
	Email    string
	Password string
}

// Session is the result of a successful login or refresh: the freshly minted
// token pair plus the authenticated user.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// LogoutInput carries everything logout can clean up. All fields are
// optional; logout is best-effort and always succeeds.
type LogoutInput struct {
	UserID       string
	AccessToken  string
	RefreshToken string

	// AccessExpiresAt bounds the blacklist TTL. Zero means "unknown", in
	// which case the full access-token lifetime is used.
	AccessExpiresAt time.Time
}

// # Registration and Verification

// Register creates an unverified account and dispatches the verification
// email. New accounts always get the user role; there is no registration
// path to admin.
func (service *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	// ── 1. Reject duplicate emails early ──────────────────────────────
	// The unique index in the repository backs this up under races.
	existing, err := service.users.FindByEmail(ctx, input.Email)
	if err != nil && !apperr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	// ── 2. Hash the password and mint the verification token ──────────
	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal("Failed to hash password", err)
	}

	verificationToken, err := sec.GenerateSecureToken(VerificationTokenLength)
	if err != nil {
		return nil, apperr.Internal("Failed to generate verification token", err)
	}

	// ── 3. Persist the unverified account ─────────────────────────────
	now := service.nowFunc()
	user := &User{
		ID:                uuidv7.New(),
		Name:              input.Name,
		Email:             input.Email,
		PasswordHash:      passwordHash,
		Role:              sec.RoleUser,
		IsVerified:        false,
		VerificationToken: &verificationToken,
		ProfileImage:      input.ProfileImage,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := service.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// ── 4. Dispatch the verification email off the request path ───────
	service.dispatch(ctx, "verification email", user.Email, func(sendCtx context.Context) error {
		return service.mailer.SendVerificationEmail(sendCtx, user.Email, verificationToken)
	})

	return user, nil
}

// VerifyEmail consumes a single-use verification token. Marking the account
// verified clears the token, so replaying it fails with the same error as an
// unknown token.
func (service *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidVerificationToken
	}

	user, err := service.users.FindByVerificationToken(ctx, token)
	if err != nil {
		if apperr.IsNotFound(err) {
			return ErrInvalidVerificationToken
		}
		return err
	}

	return service.users.MarkVerified(ctx, user.ID)
}

// # Login

// Login checks credentials, requires a verified account, mints a token pair,
// opens a ledger row and warms the profile snapshot cache.
//
// Password and not-verified checks run in that order, so an unverified
// account with a wrong password reports invalid credentials rather than
// confirming the account exists.
func (service *Service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	// ── 1. Resolve the account without leaking its existence ──────────
	user, err := service.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// ── 2. Password first, verification second ────────────────────────
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, ErrNotVerified
	}

	// ── 3. Mint the pair and open the ledger row ──────────────────────
	pair, err := service.tokens.IssueTokenPair(user.ID, string(user.Role))
	if err != nil {
		return nil, apperr.Internal("Failed to issue token pair", err)
	}

	row := &RefreshToken{
		Token:     pair.RefreshToken,
		UserID:    user.ID,
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: service.nowFunc(),
	}
	if err := service.ledger.Create(ctx, row); err != nil {
		return nil, err
	}

	// ── 4. Warm the profile snapshot ──────────────────────────────────
	if err := service.cache.SetProfile(ctx, user); err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	}, nil
}

// # Refresh Rotation

// Refresh exchanges a live refresh token for a new pair, rotating the ledger
// row in place. Any failure mode maps to ErrInvalidRefreshToken; under
// concurrent use of the same token exactly one caller wins.
func (service *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	// ── 1. Signature before storage ───────────────────────────────────
	if _, err := service.tokens.VerifyRefreshToken(refreshToken); err != nil {
		return nil, ErrInvalidRefreshToken
	}

	// ── 2. The ledger row must exist and be live ──────────────────────
	row, err := service.ledger.Find(ctx, refreshToken)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !service.nowFunc().Before(row.ExpiresAt) {
		return nil, ErrInvalidRefreshToken
	}

	user, err := service.users.FindByID(ctx, row.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	// ── 3. Mint, then swap in place ───────────────────────────────────
	pair, err := service.tokens.IssueTokenPair(user.ID, string(user.Role))
	if err != nil {
		return nil, apperr.Internal("Failed to issue token pair", err)
	}

	rotated, err := service.ledger.Rotate(ctx, refreshToken, pair.RefreshToken, pair.RefreshExpiresAt)
	if err != nil {
		return nil, err
	}
	if !rotated {
		// Lost the race, or the row expired between Find and Rotate.
		return nil, ErrInvalidRefreshToken
	}

	return &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	}, nil
}

// # Logout

// Logout tears a session down: closes the ledger row, blacklists the access
// token for its remaining lifetime and evicts the profile snapshot. Every
// step is best-effort and logged; Logout itself never fails, so repeated
// calls with the same tokens are harmless.
func (service *Service) Logout(ctx context.Context, input LogoutInput) {
	logger := ctxutil.GetLogger(ctx)

	if input.RefreshToken != "" {
		if err := service.ledger.Delete(ctx, input.RefreshToken); err != nil {
			logger.Warn("logout: failed to delete refresh token", slog.Any("error", err))
		}
	}

	if input.AccessToken != "" {
		ttl := service.tokens.AccessTokenTTL()
		if !input.AccessExpiresAt.IsZero() {
			ttl = input.AccessExpiresAt.Sub(service.nowFunc())
		}
		if err := service.cache.BlacklistAccessToken(ctx, input.AccessToken, ttl); err != nil {
			logger.Warn("logout: failed to blacklist access token", slog.Any("error", err))
		}
	}

	if input.UserID != "" {
		if err := service.cache.DeleteProfile(ctx, input.UserID); err != nil {
			logger.Warn("logout: failed to evict profile snapshot", slog.Any("error", err))
		}
	}
}

// # Password Recovery

// RequestPasswordReset stores a fresh reset token and emails it out. Unknown
// emails return nil just like known ones, so the endpoint cannot be used to
// enumerate accounts.
func (service *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := service.users.FindByEmail(ctx, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return err
	}

	resetToken, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return apperr.Internal("Failed to generate reset token", err)
	}

	expiresAt := service.nowFunc().Add(ResetTokenTTL)
	if err := service.users.SetResetToken(ctx, user.ID, resetToken, expiresAt); err != nil {
		return err
	}

	service.dispatch(ctx, "password reset email", user.Email, func(sendCtx context.Context) error {
		return service.mailer.SendPasswordResetEmail(sendCtx, user.Email, resetToken)
	})

	return nil
}

// ResetPassword consumes a live reset token and replaces the password.
// Clearing the token pair alongside the hash makes the token single-use.
func (service *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := service.users.FindByActiveResetToken(ctx, token, service.nowFunc())
	if err != nil {
		if apperr.IsNotFound(err) {
			return ErrInvalidResetToken
		}
		return err
	}

	passwordHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal("Failed to hash password", err)
	}

	return service.users.UpdatePassword(ctx, user.ID, passwordHash)
}

// # Notification Dispatch

// dispatch runs a mail send on a detached goroutine. The context is freed
// from the request's cancellation but keeps its logger and request ID, so a
// failed send is still traceable to the request that triggered it.
func (service *Service) dispatch(ctx context.Context, kind, recipient string, send func(context.Context) error) {
	sendCtx := context.WithoutCancel(ctx)

	go func() {
		if err := send(sendCtx); err != nil {
			ctxutil.GetLogger(sendCtx).Error("failed to send "+kind,
				slog.String("recipient", recipient),
				slog.Any("error", err),
			)
		}
	}()
}
