// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the auth package's TokenIssuer interface.
package sec

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents the payload embedded inside a JWT token.
//
// # Why custom claims?
//
// By embedding the UserID and Role directly inside the JWT, the
// authentication middleware can reconstruct the active user context WITHOUT
// querying the database on every single API request. This provides massive
// read-scalability.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID string `json:"uid"`
	Role   string `json:"rol"`
}

// TokenPair bundles the two credentials minted for an authenticated session.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenService handles generation and verification of JWT tokens using HS256.
//
// # Key Separation
//
// Access and refresh tokens are signed with two DISTINCT secrets, so the
// compromise of one class can never be used to forge the other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService creates a new TokenService with distinct signing secrets
// for the access and refresh token classes.
func NewTokenService(accessSecret, refreshSecret []byte, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, fmt.Errorf("sec: signing secrets must not be empty")
	}
	if string(accessSecret) == string(refreshSecret) {
		return nil, fmt.Errorf("sec: access and refresh secrets must differ")
	}

	return &TokenService{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// IssueTokenPair mints a short-lived access token and a longer-lived refresh
// token bound to the given user identity.
//
// It is a pure function of the signing secrets and the current time. Nothing
// is persisted here; the caller records the refresh token in the ledger.
func (service *TokenService) IssueTokenPair(userID, role string) (TokenPair, error) {
	currentTime := time.Now()

	accessExpiry := currentTime.Add(service.accessTTL)
	accessToken, err := service.sign(service.accessSecret, userID, role, currentTime, accessExpiry)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sec: failed to sign access token: %w", err)
	}

	refreshExpiry := currentTime.Add(service.refreshTTL)
	refreshToken, err := service.sign(service.refreshSecret, userID, role, currentTime, refreshExpiry)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sec: failed to sign refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// VerifyAccessToken checks the signature and validity of an access token.
func (service *TokenService) VerifyAccessToken(tokenString string) (*AuthClaims, error) {
	return service.verify(service.accessSecret, tokenString)
}

// VerifyRefreshToken checks the signature and validity of a refresh token.
//
// The refresh-token ledger remains the authority on whether the token is
// still usable; this only rejects forged or expired token strings early.
func (service *TokenService) VerifyRefreshToken(tokenString string) (*AuthClaims, error) {
	return service.verify(service.refreshSecret, tokenString)
}

// AccessTokenTTL returns the configured lifetime of access tokens.
// Used as the blacklist TTL fallback when a token's claims cannot be read.
func (service *TokenService) AccessTokenTTL() time.Duration {
	return service.accessTTL
}

// sign builds and signs an HS256 token for the given identity and window.
func (service *TokenService) sign(secret []byte, userID, role string, issuedAt, expiresAt time.Time) (string, error) {
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Role:   role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// verify parses a token string against the given secret and returns its claims.
func (service *TokenService) verify(secret []byte, tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return claims, nil
}
