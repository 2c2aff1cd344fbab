// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kienvo/identra/internal/platform/sec"
)

/*
TestHashPassword verifies hashing and comparison round-trip behavior.
*/
func TestHashPassword(t *testing.T) {
	hash, err := sec.HashPassword("correct-horse-battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse-battery", hash, "hash must not equal the plaintext")

	assert.True(t, sec.CheckPasswordHash("correct-horse-battery", hash))
	assert.False(t, sec.CheckPasswordHash("wrong-horse-battery", hash))
	assert.False(t, sec.CheckPasswordHash("correct-horse-battery", "not-a-bcrypt-hash"))
}

/*
TestHashPassword_Salted verifies two hashes of the same input differ.
*/
func TestHashPassword_Salted(t *testing.T) {
	first, err := sec.HashPassword("same-password")
	require.NoError(t, err)
	second, err := sec.HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "bcrypt salts must make hashes unique")
}

/*
TestGenerateSecureToken verifies token length and uniqueness.
*/
func TestGenerateSecureToken(t *testing.T) {
	token, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	assert.Len(t, token, 64, "32 bytes hex-encode to 64 characters")

	other, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
