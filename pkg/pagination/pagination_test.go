// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package pagination_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kienvo/identra/pkg/pagination"
)

/*
TestFromRequest verifies query parsing and clamping behavior.
*/
func TestFromRequest(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		expectedPage  int
		expectedLimit int
	}{
		{"defaults", "", 1, 10},
		{"explicit", "?page=3&limit=25", 3, 25},
		{"zero_page_clamped", "?page=0&limit=10", 1, 10},
		{"negative_values_clamped", "?page=-2&limit=-5", 1, 10},
		{"excessive_limit_clamped", "?page=1&limit=5000", 1, 10},
		{"garbage_ignored", "?page=abc&limit=xyz", 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest("GET", "/users"+tt.query, nil)
			params := pagination.FromRequest(request)

			assert.Equal(t, tt.expectedPage, params.Page)
			assert.Equal(t, tt.expectedLimit, params.Limit)
		})
	}
}

/*
TestParams_Offset verifies the SQL offset derivation.
*/
func TestParams_Offset(t *testing.T) {
	assert.Equal(t, 0, pagination.Params{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 10, pagination.Params{Page: 2, Limit: 10}.Offset())
	assert.Equal(t, 50, pagination.Params{Page: 3, Limit: 25}.Offset())
	assert.Equal(t, 0, pagination.Params{Page: 0, Limit: 10}.Offset())
}

/*
TestNewMeta verifies total-page computation including partial pages.
*/
func TestNewMeta(t *testing.T) {
	meta := pagination.NewMeta(2, 10, 35)

	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 10, meta.Limit)
	assert.Equal(t, 35, meta.Total)
	assert.Equal(t, 4, meta.TotalPages)

	assert.Equal(t, 0, pagination.NewMeta(1, 10, 0).TotalPages)
}
