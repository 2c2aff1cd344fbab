// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kienvo/identra/internal/platform/apperr"
	"github.com/kienvo/identra/internal/platform/ctxutil"
	"github.com/kienvo/identra/internal/platform/sec"
	"github.com/kienvo/identra/internal/platform/validate"
)

// DecodeJSON reads the request body and decodes it into the target structure.
//
// Returns [validate.ErrInvalidJSON] if decoding fails.
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

// Param retrieves a named URL parameter from the request.
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

// Query retrieves a named query-string parameter from the request.
func Query(request *http.Request, name string) string {
	return request.URL.Query().Get(name)
}

// Claims extracts the authenticated user claims from the request context.
//
// Returns nil if the request is not authenticated.
func Claims(request *http.Request) *sec.AuthClaims {
	return ctxutil.GetAuthUser(request.Context())
}

// RequiredClaims ensures the request is authenticated and returns the user claims.
//
// Returns [apperr.Unauthorized] if the request is not authenticated.
func RequiredClaims(request *http.Request) (*sec.AuthClaims, error) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return claims, nil
}

// RequiredUserID returns the User ID of the currently logged-in user.
//
// Returns [apperr.Unauthorized] if not authenticated.
func RequiredUserID(request *http.Request) (string, error) {
	claims, err := RequiredClaims(request)
	if err != nil {
		return "", err
	}

	return claims.UserID, nil
}

// BearerToken returns the raw bearer token from the Authorization header,
// or an empty string when the header is absent or malformed.
//
// Handlers that need the token VALUE (e.g. logout blacklisting) use this;
// verification itself is the middleware's job.
func BearerToken(request *http.Request) string {
	const prefix = "Bearer "
	header := request.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
