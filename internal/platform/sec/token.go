// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package sec

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns a cryptographically random token of byteLength
// bytes of entropy, hex encoded (so the resulting string is twice as long).
//
// It is used for single-use email verification and password reset tokens,
// which must be unguessable but carry no claims.
func GenerateSecureToken(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
