// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

/*
Package users implements the user directory: profile reads and updates,
the paginated listing, and the admin-only delete.

It builds on the auth package's User entity; this package owns no identity
rules, only the read/update surface that authenticated clients consume.
*/
package users

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kienvo/identra/internal/auth"
	"github.com/kienvo/identra/internal/platform/apperr"
	"github.com/kienvo/identra/internal/platform/ctxutil"
	"github.com/kienvo/identra/pkg/pagination"
)

// ListCacheTTL bounds how stale a cached directory page may get. Deletions
// clear the whole page cache by prefix, so only non-destructive changes
// (renames, new signups) can be stale, and only this long.
const ListCacheTTL = 5 * time.Minute

// # Contracts

// DirectoryRepository is the Postgres surface of the directory.
type DirectoryRepository interface {
	FindByID(ctx context.Context, id string) (*auth.User, error)

	// UpdateProfile applies the non-nil fields and returns the updated row.
	UpdateProfile(ctx context.Context, id string, name, profileImage *string) (*auth.User, error)

	// List returns one page ordered newest first, plus the total match
	// count. A non-empty search filters name and email case-insensitively.
	List(ctx context.Context, params pagination.Params, search string) ([]*auth.User, int, error)

	// Delete removes the account row; refresh-token ledger rows go with it
	// via the foreign key cascade.
	Delete(ctx context.Context, id string) error
}

// DirectoryCache caches profile snapshots and whole directory pages.
// Lookups return (nil, nil) on a miss.
type DirectoryCache interface {
	GetProfile(ctx context.Context, userID string) (*auth.User, error)
	SetProfile(ctx context.Context, user *auth.User) error
	DeleteProfile(ctx context.Context, userID string) error

	GetPage(ctx context.Context, key string) (*Page, error)
	SetPage(ctx context.Context, key string, page *Page) error

	// InvalidatePages drops every cached directory page.
	InvalidatePages(ctx context.Context) error
}

// Page is one cached directory page.
type Page struct {
	Users []*auth.User    `json:"users"`
	Meta  pagination.Meta `json:"meta"`
}

// UpdateInput carries the mutable profile fields. Nil means "leave as is".
type UpdateInput struct {
	Name         *string
	ProfileImage *string
}

// # Service

type Service struct {
	repository DirectoryRepository
	cache      DirectoryCache
}

func NewService(repository DirectoryRepository, cache DirectoryCache) *Service {
	return &Service{repository: repository, cache: cache}
}

// GetProfile returns a user's public profile, serving from the snapshot
// cache when possible and repopulating it on a miss.
func (service *Service) GetProfile(ctx context.Context, userID string) (*auth.User, error) {
	cached, err := service.cache.GetProfile(ctx, userID)
	if err != nil {
		// A broken cache degrades to a Postgres read.
		ctxutil.GetLogger(ctx).Warn("profile cache read failed", slog.Any("error", err))
	}
	if cached != nil {
		return cached, nil
	}

	user, err := service.repository.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := service.cache.SetProfile(ctx, user); err != nil {
		ctxutil.GetLogger(ctx).Warn("profile cache write failed", slog.Any("error", err))
	}
	return user, nil
}

// UpdateProfile applies the given changes to the caller's profile and
// refreshes the snapshot cache with the new state.
func (service *Service) UpdateProfile(ctx context.Context, userID string, input UpdateInput) (*auth.User, error) {
	if input.Name == nil && input.ProfileImage == nil {
		return service.GetProfile(ctx, userID)
	}

	user, err := service.repository.UpdateProfile(ctx, userID, input.Name, input.ProfileImage)
	if err != nil {
		return nil, err
	}

	if err := service.cache.SetProfile(ctx, user); err != nil {
		ctxutil.GetLogger(ctx).Warn("profile cache refresh failed", slog.Any("error", err))
	}
	return user, nil
}

// List returns one directory page, cached per (page, limit, search).
func (service *Service) List(ctx context.Context, params pagination.Params, search string) (*Page, error) {
	key := PageCacheKey(params, search)

	cached, err := service.cache.GetPage(ctx, key)
	if err != nil {
		ctxutil.GetLogger(ctx).Warn("directory page cache read failed", slog.Any("error", err))
	}
	if cached != nil {
		return cached, nil
	}

	entries, total, err := service.repository.List(ctx, params, search)
	if err != nil {
		return nil, err
	}

	page := &Page{
		Users: entries,
		Meta:  pagination.NewMeta(params.Page, params.Limit, total),
	}

	if err := service.cache.SetPage(ctx, key, page); err != nil {
		ctxutil.GetLogger(ctx).Warn("directory page cache write failed", slog.Any("error", err))
	}
	return page, nil
}

// Delete removes a user and every trace of them in the cache layer. Admins
// cannot delete their own account through this path.
func (service *Service) Delete(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return apperr.Forbidden("You cannot delete your own account")
	}

	// Resolve first so an unknown target reports 404 rather than silently
	// succeeding.
	if _, err := service.repository.FindByID(ctx, targetID); err != nil {
		return err
	}

	if err := service.repository.Delete(ctx, targetID); err != nil {
		return err
	}

	if err := service.cache.DeleteProfile(ctx, targetID); err != nil {
		ctxutil.GetLogger(ctx).Warn("profile cache eviction failed", slog.Any("error", err))
	}
	if err := service.cache.InvalidatePages(ctx); err != nil {
		ctxutil.GetLogger(ctx).Warn("directory page cache invalidation failed", slog.Any("error", err))
	}
	return nil
}

// PageCacheKey builds the cache key suffix for one directory page.
func PageCacheKey(params pagination.Params, search string) string {
	return fmt.Sprintf("%d:%d:%s", params.Page, params.Limit, search)
}
