// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package users

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/kienvo/identra/internal/auth"
	"github.com/kienvo/identra/internal/platform/apperr"
	"github.com/kienvo/identra/internal/platform/constants"
)

// # Redis Directory Cache

// RedisDirectoryCache implements DirectoryCache. Profile snapshots share the
// auth package's user:{id} keys so either domain finds the other's writes;
// directory pages live under users:{page}:{limit}:{search}.
type RedisDirectoryCache struct {
	client *redis.Client
}

func NewRedisDirectoryCache(client *redis.Client) *RedisDirectoryCache {
	return &RedisDirectoryCache{client: client}
}

func (cache *RedisDirectoryCache) GetProfile(ctx context.Context, userID string) (*auth.User, error) {
	payload, err := cache.client.Get(ctx, constants.RedisPrefixUser+userID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("Failed to read profile snapshot", err)
	}

	var user auth.User
	if err := json.Unmarshal(payload, &user); err != nil {
		return nil, nil
	}
	return &user, nil
}

func (cache *RedisDirectoryCache) SetProfile(ctx context.Context, user *auth.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return apperr.Internal("Failed to serialize profile snapshot", err)
	}

	key := constants.RedisPrefixUser + user.ID
	if err := cache.client.Set(ctx, key, payload, auth.ProfileCacheTTL).Err(); err != nil {
		return apperr.Internal("Failed to cache profile snapshot", err)
	}
	return nil
}

func (cache *RedisDirectoryCache) DeleteProfile(ctx context.Context, userID string) error {
	if err := cache.client.Del(ctx, constants.RedisPrefixUser+userID).Err(); err != nil {
		return apperr.Internal("Failed to evict profile snapshot", err)
	}
	return nil
}

func (cache *RedisDirectoryCache) GetPage(ctx context.Context, key string) (*Page, error) {
	payload, err := cache.client.Get(ctx, constants.RedisPrefixUserList+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("Failed to read directory page", err)
	}

	var page Page
	if err := json.Unmarshal(payload, &page); err != nil {
		return nil, nil
	}
	return &page, nil
}

func (cache *RedisDirectoryCache) SetPage(ctx context.Context, key string, page *Page) error {
	payload, err := json.Marshal(page)
	if err != nil {
		return apperr.Internal("Failed to serialize directory page", err)
	}

	fullKey := constants.RedisPrefixUserList + key
	if err := cache.client.Set(ctx, fullKey, payload, ListCacheTTL).Err(); err != nil {
		return apperr.Internal("Failed to cache directory page", err)
	}
	return nil
}

// InvalidatePages walks the directory page keyspace with SCAN and deletes
// every match. SCAN keeps Redis responsive where KEYS would block it.
func (cache *RedisDirectoryCache) InvalidatePages(ctx context.Context) error {
	iter := cache.client.Scan(ctx, 0, constants.RedisPrefixUserList+"*", 100).Iterator()

	for iter.Next(ctx) {
		if err := cache.client.Del(ctx, iter.Val()).Err(); err != nil {
			return apperr.Internal("Failed to delete directory page key", err)
		}
	}
	if err := iter.Err(); err != nil {
		return apperr.Internal("Failed to scan directory page keys", err)
	}
	return nil
}
