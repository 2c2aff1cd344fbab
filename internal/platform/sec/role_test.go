// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kienvo/identra/internal/platform/sec"
)

/*
TestUserRole_AtLeast covers the role hierarchy used by the authz middleware.
*/
func TestUserRole_AtLeast(t *testing.T) {
	tests := []struct {
		name     string
		role     sec.UserRole
		target   sec.UserRole
		expected bool
	}{
		{"admin_meets_admin", sec.RoleAdmin, sec.RoleAdmin, true},
		{"admin_meets_user", sec.RoleAdmin, sec.RoleUser, true},
		{"user_fails_admin", sec.RoleUser, sec.RoleAdmin, false},
		{"user_meets_user", sec.RoleUser, sec.RoleUser, true},
		{"unknown_fails_user", sec.UserRole("ghost"), sec.RoleUser, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.role.AtLeast(tt.target))
		})
	}
}

func TestUserRole_IsValid(t *testing.T) {
	assert.True(t, sec.RoleAdmin.IsValid())
	assert.True(t, sec.RoleUser.IsValid())
	assert.False(t, sec.UserRole("moderator").IsValid())
	assert.False(t, sec.UserRole("").IsValid())
}
