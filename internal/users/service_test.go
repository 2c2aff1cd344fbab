// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package users

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kienvo/identra/internal/auth"
	"github.com/kienvo/identra/internal/platform/apperr"
	"github.com/kienvo/identra/internal/platform/sec"
	"github.com/kienvo/identra/pkg/pagination"
	"github.com/kienvo/identra/pkg/uuidv7"
)

// # In-Memory Fakes

type fakeDirectoryRepository struct {
	mu        sync.Mutex
	users     map[string]*auth.User
	listCalls int
	findCalls int
}

func newFakeDirectoryRepository() *fakeDirectoryRepository {
	return &fakeDirectoryRepository{users: make(map[string]*auth.User)}
}

func (repo *fakeDirectoryRepository) add(user *auth.User) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	clone := *user
	repo.users[user.ID] = &clone
}

func (repo *fakeDirectoryRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.findCalls++
	user, ok := repo.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (repo *fakeDirectoryRepository) UpdateProfile(_ context.Context, id string, name, profileImage *string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	if name != nil {
		user.Name = *name
	}
	if profileImage != nil {
		user.ProfileImage = profileImage
	}
	user.UpdatedAt = time.Now()
	clone := *user
	return &clone, nil
}

func (repo *fakeDirectoryRepository) List(_ context.Context, params pagination.Params, search string) ([]*auth.User, int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.listCalls++

	var matched []*auth.User
	for _, user := range repo.users {
		if search == "" || containsFold(user.Name, search) || containsFold(user.Email, search) {
			clone := *user
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	offset := params.Offset()
	if offset > total {
		offset = total
	}
	end := offset + params.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (repo *fakeDirectoryRepository) Delete(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	delete(repo.users, id)
	return nil
}

func containsFold(haystack, needle string) bool {
	h, n := []rune(haystack), []rune(needle)
	for i := 0; i+len(n) <= len(h); i++ {
		match := true
		for j := range n {
			a, b := h[i+j], n[j]
			if 'A' <= a && a <= 'Z' {
				a += 'a' - 'A'
			}
			if 'A' <= b && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

type fakeDirectoryCache struct {
	mu       sync.Mutex
	profiles map[string]*auth.User
	pages    map[string]*Page
}

func newFakeDirectoryCache() *fakeDirectoryCache {
	return &fakeDirectoryCache{
		profiles: make(map[string]*auth.User),
		pages:    make(map[string]*Page),
	}
}

func (cache *fakeDirectoryCache) GetProfile(_ context.Context, userID string) (*auth.User, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	user, ok := cache.profiles[userID]
	if !ok {
		return nil, nil
	}
	clone := *user
	return &clone, nil
}

func (cache *fakeDirectoryCache) SetProfile(_ context.Context, user *auth.User) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	clone := *user
	cache.profiles[user.ID] = &clone
	return nil
}

func (cache *fakeDirectoryCache) DeleteProfile(_ context.Context, userID string) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	delete(cache.profiles, userID)
	return nil
}

func (cache *fakeDirectoryCache) GetPage(_ context.Context, key string) (*Page, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	page, ok := cache.pages[key]
	if !ok {
		return nil, nil
	}
	return page, nil
}

func (cache *fakeDirectoryCache) SetPage(_ context.Context, key string, page *Page) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.pages[key] = page
	return nil
}

func (cache *fakeDirectoryCache) InvalidatePages(_ context.Context) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.pages = make(map[string]*Page)
	return nil
}

func (cache *fakeDirectoryCache) hasProfile(userID string) bool {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	_, ok := cache.profiles[userID]
	return ok
}

func (cache *fakeDirectoryCache) pageCount() int {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return len(cache.pages)
}

// # Test Harness

func newDirectoryEnv() (*Service, *fakeDirectoryRepository, *fakeDirectoryCache) {
	repo := newFakeDirectoryRepository()
	cache := newFakeDirectoryCache()
	return NewService(repo, cache), repo, cache
}

func seedUser(repo *fakeDirectoryRepository, name, email string, createdAt time.Time) *auth.User {
	user := &auth.User{
		ID:         uuidv7.New(),
		Name:       name,
		Email:      email,
		Role:       sec.RoleUser,
		IsVerified: true,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	repo.add(user)
	return user
}

// # Profile

func TestGetProfilePopulatesCacheOnMiss(t *testing.T) {
	service, repo, cache := newDirectoryEnv()
	user := seedUser(repo, "Ada", "ada@example.com", time.Now())

	got, err := service.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.True(t, cache.hasProfile(user.ID), "miss must repopulate the snapshot")

	// Second read is served from the cache, not Postgres.
	before := repo.findCalls
	_, err = service.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, before, repo.findCalls)
}

func TestGetProfileUnknownUser(t *testing.T) {
	service, _, _ := newDirectoryEnv()

	_, err := service.GetProfile(context.Background(), uuidv7.New())
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

func TestUpdateProfileRefreshesSnapshot(t *testing.T) {
	service, repo, cache := newDirectoryEnv()
	user := seedUser(repo, "Ada", "ada@example.com", time.Now())

	newName := "Ada Lovelace"
	updated, err := service.UpdateProfile(context.Background(), user.ID, UpdateInput{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)

	cached, err := cache.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "Ada Lovelace", cached.Name, "snapshot must reflect the update")
}

func TestUpdateProfileNoChangesIsARead(t *testing.T) {
	service, repo, _ := newDirectoryEnv()
	user := seedUser(repo, "Ada", "ada@example.com", time.Now())

	got, err := service.UpdateProfile(context.Background(), user.ID, UpdateInput{})
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
}

// # Directory Listing

func TestListCachesPerPageAndSearch(t *testing.T) {
	service, repo, cache := newDirectoryEnv()
	base := time.Now()
	seedUser(repo, "Ada", "ada@example.com", base.Add(-2*time.Hour))
	newest := seedUser(repo, "Grace", "grace@example.com", base)

	params := pagination.Params{Page: 1, Limit: 10}

	page, err := service.List(context.Background(), params, "")
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.Equal(t, newest.ID, page.Users[0].ID, "newest first")
	assert.Equal(t, 2, page.Meta.Total)
	assert.Equal(t, 1, cache.pageCount())

	// Same query again: served from the cache.
	before := repo.listCalls
	_, err = service.List(context.Background(), params, "")
	require.NoError(t, err)
	assert.Equal(t, before, repo.listCalls)

	// A different search is a different cache entry.
	filtered, err := service.List(context.Background(), params, "grace")
	require.NoError(t, err)
	require.Len(t, filtered.Users, 1)
	assert.Equal(t, newest.ID, filtered.Users[0].ID)
	assert.Equal(t, 2, cache.pageCount())
}

// # Deletion

func TestDeleteForbidsSelfDeletion(t *testing.T) {
	service, repo, _ := newDirectoryEnv()
	admin := seedUser(repo, "Root", "root@example.com", time.Now())

	err := service.Delete(context.Background(), admin.ID, admin.ID)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.As(err).Code)
}

func TestDeleteUnknownUser(t *testing.T) {
	service, repo, _ := newDirectoryEnv()
	admin := seedUser(repo, "Root", "root@example.com", time.Now())

	err := service.Delete(context.Background(), admin.ID, uuidv7.New())
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

func TestDeleteEvictsCaches(t *testing.T) {
	service, repo, cache := newDirectoryEnv()
	admin := seedUser(repo, "Root", "root@example.com", time.Now())
	target := seedUser(repo, "Ada", "ada@example.com", time.Now())

	// Warm both cache layers.
	_, err := service.GetProfile(context.Background(), target.ID)
	require.NoError(t, err)
	_, err = service.List(context.Background(), pagination.Params{Page: 1, Limit: 10}, "")
	require.NoError(t, err)
	require.True(t, cache.hasProfile(target.ID))
	require.Equal(t, 1, cache.pageCount())

	require.NoError(t, service.Delete(context.Background(), admin.ID, target.ID))

	assert.False(t, cache.hasProfile(target.ID), "snapshot must be evicted")
	assert.Equal(t, 0, cache.pageCount(), "page cache must be cleared")

	_, err = service.GetProfile(context.Background(), target.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}
