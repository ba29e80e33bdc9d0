// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package clients

import "github.com/redis/go-redis/v9"

// Redis provides the connection to the Redis service, used by the stream
// retention and cache sweep jobs.
var Redis *redis.Client

// SetRedis sets the Redis client to be used by the workers.
func SetRedis(client *redis.Client) {
	Redis = client
}
