// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kienvo/identra/internal/platform/apperr"
	"github.com/kienvo/identra/internal/platform/constants"
)

// # Redis Session Cache

// RedisSessionCache implements SessionCache. Profile snapshots live under
// user:{id}; revoked access tokens live under blacklist:{token} with a TTL
// equal to the token's remaining lifetime.
type RedisSessionCache struct {
	client *redis.Client
}

func NewRedisSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

func (cache *RedisSessionCache) SetProfile(ctx context.Context, user *User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return apperr.Internal("Failed to serialize profile snapshot", err)
	}

	key := constants.RedisPrefixUser + user.ID
	if err := cache.client.Set(ctx, key, payload, ProfileCacheTTL).Err(); err != nil {
		return apperr.Internal("Failed to cache profile snapshot", err)
	}
	return nil
}

// GetProfile returns the cached snapshot, or (nil, nil) on a cache miss.
func (cache *RedisSessionCache) GetProfile(ctx context.Context, userID string) (*User, error) {
	key := constants.RedisPrefixUser + userID

	payload, err := cache.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("Failed to read profile snapshot", err)
	}

	var user User
	if err := json.Unmarshal(payload, &user); err != nil {
		// A corrupt snapshot is treated as a miss; the next write heals it.
		return nil, nil
	}
	return &user, nil
}

func (cache *RedisSessionCache) DeleteProfile(ctx context.Context, userID string) error {
	key := constants.RedisPrefixUser + userID
	if err := cache.client.Del(ctx, key).Err(); err != nil {
		return apperr.Internal("Failed to evict profile snapshot", err)
	}
	return nil
}

func (cache *RedisSessionCache) BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired; nothing to revoke.
		return nil
	}

	key := constants.RedisPrefixBlacklist + token
	if err := cache.client.Set(ctx, key, "revoked", ttl).Err(); err != nil {
		return apperr.Internal("Failed to blacklist access token", err)
	}
	return nil
}

func (cache *RedisSessionCache) IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	key := constants.RedisPrefixBlacklist + token

	count, err := cache.client.Exists(ctx, key).Result()
	if err != nil {
		return false, apperr.Internal(fmt.Sprintf("Failed to check blacklist for key %q", key), err)
	}
	return count > 0, nil
}
