// Copyright (c) 2026 Datomika. All rights reserved.
// Author: platform@datomika.io

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/datomika/opsgate/internal/platform/apperr"
	"github.com/datomika/opsgate/internal/platform/constants"
)

// # Snapshot Cache

// RedisSnapshotCache implements SnapshotCache using Redis.
//
// The four keys per token (documented in [constants]) are a stable contract
// read directly by downstream authorization-enforcement middleware; they must
// stay independently addressable and must not be consolidated into one record.
type RedisSnapshotCache struct {
	client *redis.Client
}

// NewSnapshotCache creates a new Redis-backed SnapshotCache.
func NewSnapshotCache(client *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client}
}

/*
Put writes all four snapshot entries for a token with the shared TTL.

Description: The writes are sequential, not transactional. A crash mid-write
may leave a partial snapshot; readers treat a missing user entry as a miss.

Parameters:
  - context: context.Context
  - token: string
  - snapshot: Snapshot

Returns:
  - error: First failing write
*/
func (cache *RedisSnapshotCache) Put(context context.Context, token string, snapshot Snapshot) error {

	allowedJSON, err := json.Marshal(snapshot.AllowedObjectIDs)
	if err != nil {
		return fmt.Errorf("redis_snapshot_marshal_failed: %w", err)
	}

	rating := "0"
	if snapshot.RatingAccess {
		rating = "1"
	}

	writes := []struct {
		key   string
		value string
	}{
		{constants.RedisPrefixAllowedObjects + token, string(allowedJSON)},
		{constants.RedisPrefixActivatedUser + token, snapshot.ActivatedUserID},
		{constants.RedisPrefixRatingAccess + token, rating},
		{constants.RedisPrefixLastActivity + token, snapshot.LastActivity.Format(time.RFC3339)},
	}

	for _, write := range writes {
		if err := cache.client.Set(context, write.key, write.value, SnapshotTTL).Err(); err != nil {
			return fmt.Errorf("redis_snapshot_set_failed: %w", err)
		}
	}

	return nil
}

/*
Get retrieves the snapshot for a token.

Description: The activated-user entry is the anchor — if it is absent the
snapshot is a miss, regardless of the other keys. The remaining entries are
read best-effort so a partially written snapshot still resolves.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *Snapshot: Hydrated snapshot
  - error: apperr.NotFound on miss, or connectivity errors
*/
func (cache *RedisSnapshotCache) Get(context context.Context, token string) (*Snapshot, error) {

	userID, err := cache.client.Get(context, constants.RedisPrefixActivatedUser+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Session snapshot")
		}
		return nil, fmt.Errorf("redis_snapshot_get_failed: %w", err)
	}

	snapshot := &Snapshot{ActivatedUserID: userID}

	if allowedJSON, err := cache.client.Get(context, constants.RedisPrefixAllowedObjects+token).Result(); err == nil {
		_ = json.Unmarshal([]byte(allowedJSON), &snapshot.AllowedObjectIDs)
	}

	if rating, err := cache.client.Get(context, constants.RedisPrefixRatingAccess+token).Result(); err == nil {
		snapshot.RatingAccess = rating == "1"
	}

	if lastActivity, err := cache.client.Get(context, constants.RedisPrefixLastActivity+token).Result(); err == nil {
		snapshot.LastActivity, _ = time.Parse(time.RFC3339, lastActivity)
	}

	return snapshot, nil
}

/*
Invalidate deletes all four snapshot entries for a token in one command.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Deletion failures
*/
func (cache *RedisSnapshotCache) Invalidate(context context.Context, token string) error {

	keys := []string{
		constants.RedisPrefixAllowedObjects + token,
		constants.RedisPrefixActivatedUser + token,
		constants.RedisPrefixRatingAccess + token,
		constants.RedisPrefixLastActivity + token,
	}

	if err := cache.client.Del(context, keys...).Err(); err != nil {
		return fmt.Errorf("redis_snapshot_delete_failed: %w", err)
	}

	return nil
}

/*
Touch refreshes the last-activity entry and its TTL only.

Description: The other three entries keep their original expiry, so an idle
session still ages out 24 hours after login.

Parameters:
  - context: context.Context
  - token: string
  - at: time.Time

Returns:
  - error: Write failures
*/
func (cache *RedisSnapshotCache) Touch(context context.Context, token string, at time.Time) error {

	key := constants.RedisPrefixLastActivity + token
	if err := cache.client.Set(context, key, at.Format(time.RFC3339), SnapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis_snapshot_touch_failed: %w", err)
	}

	return nil
}

// # CSRF State Store

// RedisStateStore implements StateStore using Redis.
type RedisStateStore struct {
	client *redis.Client
}

// NewStateStore creates a new Redis-backed StateStore.
func NewStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

/*
Create stores a logout CSRF nonce with its associated userID and TTL.

Parameters:
  - context: context.Context
  - nonce: string
  - userID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (store *RedisStateStore) Create(context context.Context, nonce string, userID string, ttl time.Duration) error {

	key := constants.RedisPrefixOAuthState + nonce

	if err := store.client.Set(context, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_oauth_state_set_failed: %w", err)
	}

	return nil
}

/*
Consume retrieves AND deletes the nonce atomically (GETDEL).

Description: Read-and-delete in one command means a nonce verifies exactly
once; a replayed callback with the same state always misses.

Parameters:
  - context: context.Context
  - nonce: string

Returns:
  - string: UserID the nonce was created for
  - error: apperr.NotFound if absent or expired, or connectivity errors
*/
func (store *RedisStateStore) Consume(context context.Context, nonce string) (string, error) {

	key := constants.RedisPrefixOAuthState + nonce

	userID, err := store.client.GetDel(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Logout state")
		}
		return "", fmt.Errorf("redis_oauth_state_consume_failed: %w", err)
	}

	return userID, nil
}
