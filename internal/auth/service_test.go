// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kienvo/identra/internal/platform/apperr"
	"github.com/kienvo/identra/internal/platform/sec"
)

// # In-Memory Fakes

type fakeUserRepository struct {
	mu    sync.Mutex
	users map[string]*User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[string]*User)}
}

func (repo *fakeUserRepository) Create(_ context.Context, user *User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, existing := range repo.users {
		if existing.Email == user.Email {
			return ErrEmailTaken
		}
	}
	clone := *user
	repo.users[user.ID] = &clone
	return nil
}

func (repo *fakeUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (repo *fakeUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) FindByVerificationToken(_ context.Context, token string) (*User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if user.VerificationToken != nil && *user.VerificationToken == token {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) MarkVerified(_ context.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.IsVerified = true
	user.VerificationToken = nil
	return nil
}

func (repo *fakeUserRepository) SetResetToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.ResetToken = &token
	user.ResetExpiresAt = &expiresAt
	return nil
}

func (repo *fakeUserRepository) FindByActiveResetToken(_ context.Context, token string, now time.Time) (*User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if user.ResetToken != nil && *user.ResetToken == token &&
			user.ResetExpiresAt != nil && user.ResetExpiresAt.After(now) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.PasswordHash = passwordHash
	user.ResetToken = nil
	user.ResetExpiresAt = nil
	return nil
}

func (repo *fakeUserRepository) get(id string) *User {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	clone := *repo.users[id]
	return &clone
}

type fakeLedger struct {
	mu   sync.Mutex
	rows map[string]*RefreshToken
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[string]*RefreshToken)}
}

func (ledger *fakeLedger) Create(_ context.Context, token *RefreshToken) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	clone := *token
	ledger.rows[token.Token] = &clone
	return nil
}

func (ledger *fakeLedger) Find(_ context.Context, token string) (*RefreshToken, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	row, ok := ledger.rows[token]
	if !ok {
		return nil, apperr.NotFound("Refresh token")
	}
	clone := *row
	return &clone, nil
}

func (ledger *fakeLedger) Rotate(_ context.Context, oldToken, newToken string, expiresAt time.Time) (bool, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	row, ok := ledger.rows[oldToken]
	if !ok || !row.ExpiresAt.After(time.Now()) {
		return false, nil
	}
	delete(ledger.rows, oldToken)
	ledger.rows[newToken] = &RefreshToken{
		Token:     newToken,
		UserID:    row.UserID,
		ExpiresAt: expiresAt,
		CreatedAt: row.CreatedAt,
	}
	return true, nil
}

func (ledger *fakeLedger) Delete(_ context.Context, token string) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	delete(ledger.rows, token)
	return nil
}

func (ledger *fakeLedger) has(token string) bool {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	_, ok := ledger.rows[token]
	return ok
}

type fakeSessionCache struct {
	mu        sync.Mutex
	profiles  map[string]*User
	blacklist map[string]time.Duration
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{
		profiles:  make(map[string]*User),
		blacklist: make(map[string]time.Duration),
	}
}

func (cache *fakeSessionCache) SetProfile(_ context.Context, user *User) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	clone := *user
	cache.profiles[user.ID] = &clone
	return nil
}

func (cache *fakeSessionCache) DeleteProfile(_ context.Context, userID string) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	delete(cache.profiles, userID)
	return nil
}

func (cache *fakeSessionCache) BlacklistAccessToken(_ context.Context, token string, ttl time.Duration) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.blacklist[token] = ttl
	return nil
}

func (cache *fakeSessionCache) IsAccessTokenBlacklisted(_ context.Context, token string) (bool, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	_, ok := cache.blacklist[token]
	return ok, nil
}

func (cache *fakeSessionCache) hasProfile(userID string) bool {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	_, ok := cache.profiles[userID]
	return ok
}

// fakeIssuer mints deterministic token strings so rotation tests never see
// two identical tokens, which real second-resolution JWT timestamps allow.
type fakeIssuer struct {
	mu      sync.Mutex
	counter int
	issued  map[string]bool
}

func newFakeIssuer() *fakeIssuer {
	return &fakeIssuer{issued: make(map[string]bool)}
}

func (issuer *fakeIssuer) IssueTokenPair(userID, role string) (sec.TokenPair, error) {
	issuer.mu.Lock()
	defer issuer.mu.Unlock()
	issuer.counter++
	now := time.Now()
	pair := sec.TokenPair{
		AccessToken:      fmt.Sprintf("access-%s-%d", userID, issuer.counter),
		RefreshToken:     fmt.Sprintf("refresh-%s-%d", userID, issuer.counter),
		AccessExpiresAt:  now.Add(AccessTokenTTL),
		RefreshExpiresAt: now.Add(RefreshTokenTTL),
	}
	issuer.issued[pair.RefreshToken] = true
	return pair, nil
}

func (issuer *fakeIssuer) VerifyRefreshToken(token string) (*sec.AuthClaims, error) {
	issuer.mu.Lock()
	defer issuer.mu.Unlock()
	if !issuer.issued[token] {
		return nil, errors.New("invalid signature")
	}
	return &sec.AuthClaims{}, nil
}

func (issuer *fakeIssuer) AccessTokenTTL() time.Duration { return AccessTokenTTL }

type mailRecord struct {
	kind      string
	recipient string
	token     string
}

type fakeMailer struct {
	mu    sync.Mutex
	sends []mailRecord
}

func (mailer *fakeMailer) SendVerificationEmail(_ context.Context, recipient, token string) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	mailer.sends = append(mailer.sends, mailRecord{"verification", recipient, token})
	return nil
}

func (mailer *fakeMailer) SendPasswordResetEmail(_ context.Context, recipient, token string) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	mailer.sends = append(mailer.sends, mailRecord{"reset", recipient, token})
	return nil
}

func (mailer *fakeMailer) records() []mailRecord {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	out := make([]mailRecord, len(mailer.sends))
	copy(out, mailer.sends)
	return out
}

// # Test Harness

type testEnv struct {
	service *Service
	users   *fakeUserRepository
	ledger  *fakeLedger
	cache   *fakeSessionCache
	issuer  *fakeIssuer
	mailer  *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		users:  newFakeUserRepository(),
		ledger: newFakeLedger(),
		cache:  newFakeSessionCache(),
		issuer: newFakeIssuer(),
		mailer: &fakeMailer{},
	}
	env.service = NewService(env.users, env.ledger, env.cache, env.issuer, env.mailer)
	return env
}

// register creates an account and returns it together with its pending
// verification token.
func (env *testEnv) register(t *testing.T, email string) (*User, string) {
	t.Helper()
	user, err := env.service.Register(context.Background(), RegisterInput{
		Name:     "Ada Lovelace",
		Email:    email,
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NotNil(t, user.VerificationToken)
	return user, *user.VerificationToken
}

func (env *testEnv) registerVerified(t *testing.T, email string) *User {
	t.Helper()
	user, token := env.register(t, email)
	require.NoError(t, env.service.VerifyEmail(context.Background(), token))
	return env.users.get(user.ID)
}

func (env *testEnv) login(t *testing.T, email string) *Session {
	t.Helper()
	session, err := env.service.Login(context.Background(), LoginInput{
		Email:    email,
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return session
}

// waitForMail blocks until the mailer has recorded count sends. Dispatch
// happens on a detached goroutine, so assertions must wait for it.
func (env *testEnv) waitForMail(t *testing.T, count int) []mailRecord {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(env.mailer.records()) >= count
	}, time.Second, 5*time.Millisecond)
	return env.mailer.records()
}

// # Registration and Verification

func TestRegisterCreatesUnverifiedAccount(t *testing.T) {
	env := newTestEnv(t)

	user, token := env.register(t, "ada@example.com")

	assert.False(t, user.IsVerified)
	assert.Equal(t, sec.RoleUser, user.Role)
	assert.NotEmpty(t, user.ID)
	assert.Len(t, token, VerificationTokenLength*2) // hex-encoded

	sends := env.waitForMail(t, 1)
	assert.Equal(t, "verification", sends[0].kind)
	assert.Equal(t, "ada@example.com", sends[0].recipient)
	assert.Equal(t, token, sends[0].token)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada@example.com")

	_, err := env.service.Register(context.Background(), RegisterInput{
		Name:     "Imposter",
		Email:    "ada@example.com",
		Password: "another-pass",
	})

	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestVerifyEmailTokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.register(t, "ada@example.com")

	require.NoError(t, env.service.VerifyEmail(context.Background(), token))
	assert.True(t, env.users.get(user.ID).IsVerified)
	assert.Nil(t, env.users.get(user.ID).VerificationToken)

	// Replaying the consumed token is indistinguishable from an unknown one.
	assert.ErrorIs(t, env.service.VerifyEmail(context.Background(), token), ErrInvalidVerificationToken)
	assert.ErrorIs(t, env.service.VerifyEmail(context.Background(), ""), ErrInvalidVerificationToken)
	assert.ErrorIs(t, env.service.VerifyEmail(context.Background(), "no-such-token"), ErrInvalidVerificationToken)
}

// # Login

func TestLoginRequiresVerification(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "ada@example.com")

	_, err := env.service.Login(context.Background(), LoginInput{
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, ErrNotVerified)

	require.NoError(t, env.service.VerifyEmail(context.Background(), token))

	session := env.login(t, "ada@example.com")
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.True(t, env.ledger.has(session.RefreshToken))
	assert.True(t, env.cache.hasProfile(session.User.ID))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "ada@example.com")

	_, unknownErr := env.service.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "correct-horse",
	})
	_, wrongPassErr := env.service.Login(context.Background(), LoginInput{
		Email:    "ada@example.com",
		Password: "wrong-horse",
	})

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongPassErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr, wrongPassErr)
}

func TestLoginWrongPasswordOnUnverifiedAccount(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada@example.com")

	// Password is checked first, so a wrong password never reveals that the
	// account exists but is unverified.
	_, err := env.service.Login(context.Background(), LoginInput{
		Email:    "ada@example.com",
		Password: "wrong-horse",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// # Refresh Rotation

func TestRefreshRotatesLedgerRowInPlace(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "ada@example.com")
	session := env.login(t, "ada@example.com")

	rotated, err := env.service.Refresh(context.Background(), session.RefreshToken)
	require.NoError(t, err)

	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)
	assert.False(t, env.ledger.has(session.RefreshToken), "old token must leave the ledger")
	assert.True(t, env.ledger.has(rotated.RefreshToken), "new token must be stored")

	// The consumed token is dead: exactly one refresh per token value.
	_, err = env.service.Refresh(context.Background(), session.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefreshRejectsForgedToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Refresh(context.Background(), "forged-token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefreshRejectsExpiredLedgerRow(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerVerified(t, "ada@example.com")

	// A signature-valid token whose ledger row has already expired.
	pair, err := env.issuer.IssueTokenPair(user.ID, string(user.Role))
	require.NoError(t, err)
	require.NoError(t, env.ledger.Create(context.Background(), &RefreshToken{
		Token:     pair.RefreshToken,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
		CreatedAt: time.Now().Add(-RefreshTokenTTL),
	}))

	_, err = env.service.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

// # Logout

func TestLogoutTearsDownSessionAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "ada@example.com")
	session := env.login(t, "ada@example.com")

	input := LogoutInput{
		UserID:          session.User.ID,
		AccessToken:     session.AccessToken,
		RefreshToken:    session.RefreshToken,
		AccessExpiresAt: time.Now().Add(10 * time.Minute),
	}
	env.service.Logout(context.Background(), input)

	assert.False(t, env.ledger.has(session.RefreshToken))
	assert.False(t, env.cache.hasProfile(session.User.ID))

	blacklisted, err := env.cache.IsAccessTokenBlacklisted(context.Background(), session.AccessToken)
	require.NoError(t, err)
	assert.True(t, blacklisted)

	// Replaying the same logout is harmless.
	env.service.Logout(context.Background(), input)
	assert.False(t, env.ledger.has(session.RefreshToken))
}

// # Password Recovery

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerVerified(t, "ada@example.com")
	env.waitForMail(t, 1) // drain the verification email

	require.NoError(t, env.service.RequestPasswordReset(context.Background(), "ada@example.com"))

	sends := env.waitForMail(t, 2)
	resetToken := sends[1].token
	require.Equal(t, "reset", sends[1].kind)
	assert.Len(t, resetToken, ResetTokenLength*2)

	require.NoError(t, env.service.ResetPassword(context.Background(), resetToken, "new-password-123"))

	// The token pair is cleared, so the token is single-use.
	stored := env.users.get(user.ID)
	assert.Nil(t, stored.ResetToken)
	assert.Nil(t, stored.ResetExpiresAt)
	assert.ErrorIs(t,
		env.service.ResetPassword(context.Background(), resetToken, "again-456789"),
		ErrInvalidResetToken)

	// Old password dead, new password live.
	_, err := env.service.Login(context.Background(), LoginInput{
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := env.service.Login(context.Background(), LoginInput{
		Email:    "ada@example.com",
		Password: "new-password-123",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)
}

func TestPasswordResetTokenExpires(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "ada@example.com")
	env.waitForMail(t, 1) // drain the verification email

	start := time.Now()
	env.service.nowFunc = func() time.Time { return start }
	require.NoError(t, env.service.RequestPasswordReset(context.Background(), "ada@example.com"))

	sends := env.waitForMail(t, 2)
	resetToken := sends[1].token

	// One minute past the expiry window the exact token no longer matches.
	env.service.nowFunc = func() time.Time { return start.Add(ResetTokenTTL + time.Minute) }
	err := env.service.ResetPassword(context.Background(), resetToken, "new-password-123")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	env := newTestEnv(t)

	// Unknown email: same nil result, and nothing is dispatched.
	require.NoError(t, env.service.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, env.mailer.records())
}

// # End To End

func TestFullSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, verificationToken := env.register(t, "grace@example.com")
	require.NoError(t, env.service.VerifyEmail(ctx, verificationToken))

	session := env.login(t, "grace@example.com")

	rotated, err := env.service.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.False(t, env.ledger.has(session.RefreshToken))
	assert.True(t, env.ledger.has(rotated.RefreshToken))

	env.service.Logout(ctx, LogoutInput{
		UserID:          user.ID,
		AccessToken:     rotated.AccessToken,
		RefreshToken:    rotated.RefreshToken,
		AccessExpiresAt: time.Now().Add(AccessTokenTTL),
	})

	assert.False(t, env.ledger.has(rotated.RefreshToken))
	blacklisted, err := env.cache.IsAccessTokenBlacklisted(ctx, rotated.AccessToken)
	require.NoError(t, err)
	assert.True(t, blacklisted)
}
