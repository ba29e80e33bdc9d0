// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grantwise-io/grantwise/pkg/retention"
)

// RedisStreams implements the [retention.StreamTrimmer] capability on top of
// Redis Streams.
type RedisStreams struct {
	client *redis.Client

	// CallTimeout bounds each Redis command.
	CallTimeout time.Duration
}

var _ retention.StreamTrimmer = &RedisStreams{}

// NewRedisStreams creates a new [RedisStreams] using the given client.
func NewRedisStreams(client *redis.Client) *RedisStreams {
	return &RedisStreams{
		client:      client,
		CallTimeout: DefaultCallTimeout,
	}
}

func (r *RedisStreams) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := r.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	return context.WithTimeout(ctx, timeout)
}

// Len implements the [retention.StreamTrimmer] interface.
func (r *RedisStreams) Len(ctx context.Context, stream string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.client.XLen(ctx, stream).Result()
}

// TrimToLength implements the [retention.StreamTrimmer] interface. Entries
// are discarded oldest first via XTRIM MAXLEN.
func (r *RedisStreams) TrimToLength(ctx context.Context, stream string, maxLen int64) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.client.XTrimMaxLen(ctx, stream, maxLen).Result()
}

// RedisKeySpace implements the [retention.KeySpace] capability on top of a
// Redis key space. Redis reports the TTL sentinels -1 (no expiry) and -2
// (key absent) directly, which map onto [retention.TTLNoExpiry] and
// [retention.TTLKeyAbsent].
type RedisKeySpace struct {
	client *redis.Client

	// CallTimeout bounds each Redis command.
	CallTimeout time.Duration
}

var _ retention.KeySpace = &RedisKeySpace{}

// NewRedisKeySpace creates a new [RedisKeySpace] using the given client.
func NewRedisKeySpace(client *redis.Client) *RedisKeySpace {
	return &RedisKeySpace{
		client:      client,
		CallTimeout: DefaultCallTimeout,
	}
}

func (r *RedisKeySpace) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := r.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	return context.WithTimeout(ctx, timeout)
}

// Scan implements the [retention.KeySpace] interface.
func (r *RedisKeySpace) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.client.Scan(ctx, cursor, match, count).Result()
}

// TTL implements the [retention.KeySpace] interface.
func (r *RedisKeySpace) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.client.TTL(ctx, key).Result()
}

// Del implements the [retention.KeySpace] interface.
func (r *RedisKeySpace) Del(ctx context.Context, keys ...string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.client.Del(ctx, keys...).Result()
}
