// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/kienvo/identra/internal/platform/apperr"
	"github.com/kienvo/identra/internal/platform/ctxutil"
	"github.com/kienvo/identra/internal/platform/respond"
	"github.com/kienvo/identra/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify access tokens.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the sec package's
// concrete TokenService, allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	VerifyAccessToken(tokenString string) (*sec.AuthClaims, error)
}

// BlacklistChecker reports whether an access token has been revoked before
// its natural expiry (e.g. by logout).
type BlacklistChecker interface {
	IsBlacklisted(request *http.Request, token string) bool
}

// BlacklistCheckerFunc adapts a plain function to the [BlacklistChecker] interface.
type BlacklistCheckerFunc func(request *http.Request, token string) bool

// IsBlacklisted implements [BlacklistChecker].
func (f BlacklistCheckerFunc) IsBlacklisted(request *http.Request, token string) bool {
	return f(request, token)
}

// Authenticate extracts and verifies the JWT from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, request proceeds as anonymous.
//  3. If present, parse and verify the JWT via [TokenVerifier].
//  4. Reject tokens present in the revocation blacklist, even when
//     cryptographically valid.
//  5. Inject [*sec.AuthClaims] into the request context for downstream use.
func Authenticate(verifier TokenVerifier, blacklist BlacklistChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get("Authorization")

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			tokenStr := parts[1]
			claims, err := verifier.VerifyAccessToken(tokenStr)
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			// ── 4. Revocation Check ───────────────────────────────────────────
			if blacklist != nil && blacklist.IsBlacklisted(request, tokenStr) {
				respond.Error(writer, request, apperr.Unauthorized("Token has been revoked"))
				return
			}

			// ── 5. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		claims := GetUser(request.Context())
		if claims == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests if the authenticated user doesn't have the required role.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It automatically implies
// [RequireAuth] so you don't need to mount both.
func RequireRole(role sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := GetUser(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			userRole := sec.UserRole(claims.Role)
			if !userRole.AtLeast(role) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// GetUser retrieves the [*sec.AuthClaims] from the [context.Context].
//
// # Returns
//   - A pointer to [*sec.AuthClaims] if the user is authenticated.
//   - nil if the user is anonymous.
func GetUser(ctx context.Context) *sec.AuthClaims {
	return ctxutil.GetAuthUser(ctx)
}
