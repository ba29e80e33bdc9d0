// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package retention

import (
	"context"
	"strings"
	"time"
)

const (
	// TTLNoExpiry is the sentinel remaining lifetime reported for a key
	// without an expiry set.
	TTLNoExpiry = time.Duration(-1)

	// TTLKeyAbsent is the sentinel remaining lifetime reported for a key
	// which no longer exists.
	TTLKeyAbsent = time.Duration(-2)
)

// KeySpace is the capability consumed by the [CacheSweepJob]. It provides
// cursor-based enumeration of a key space along with TTL introspection and
// deletion. Implementations report [TTLNoExpiry] and [TTLKeyAbsent] as the
// remaining lifetime sentinels.
type KeySpace interface {
	// Scan returns a page of keys matching the given pattern, starting
	// from the given cursor, along with the next cursor. A returned
	// cursor of 0 means the enumeration is complete.
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)

	// TTL returns the remaining lifetime of the given key.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Del deletes the given keys and returns the number of keys removed.
	Del(ctx context.Context, keys ...string) (int64, error)
}

// CacheSweepJob removes orphaned keys from an owned namespace of the
// ephemeral cache. A key is orphaned when it carries no expiry, or is
// already absent by the time its lifetime is inspected. Keys with a positive
// remaining lifetime are left to expire naturally. The key space is walked
// incrementally, one cursor page at a time.
type CacheSweepJob struct {
	// Cache is the cache capability.
	Cache KeySpace

	// Prefix is the owned key namespace. Keys outside of it are never
	// candidates.
	Prefix string

	// ScanCount is the page size hint for the cursor-based enumeration.
	ScanCount int64
}

var _ Job = &CacheSweepJob{}

// CacheSweepJobName is the name of the cache sweep job.
const CacheSweepJobName = "cache_sweep"

// Name implements the [Job] interface.
func (j *CacheSweepJob) Name() string {
	return CacheSweepJobName
}

// Run implements the [Job] interface.
func (j *CacheSweepJob) Run(ctx context.Context) JobResult {
	start := time.Now()
	res := JobResult{Name: j.Name()}

	count := j.ScanCount
	if count <= 0 {
		count = int64(DefaultBatchSize)
	}

	var cursor uint64
	for {
		if err := ctx.Err(); err != nil {
			res.Err = Classify(err)

			break
		}

		keys, next, err := j.Cache.Scan(ctx, cursor, j.Prefix+"*", count)
		if err != nil {
			res.Err = Classify(err)

			break
		}

		doomed := make([]string, 0, len(keys))
		for _, key := range keys {
			if !strings.HasPrefix(key, j.Prefix) {
				continue
			}
			res.Processed++

			ttl, err := j.Cache.TTL(ctx, key)
			if err != nil {
				res.Err = Classify(err)
				res.Duration = time.Since(start)

				return res
			}

			if ttl == TTLNoExpiry || ttl == TTLKeyAbsent {
				doomed = append(doomed, key)
			}
		}

		if len(doomed) > 0 {
			removed, err := j.Cache.Del(ctx, doomed...)
			res.Removed += removed
			if err != nil {
				res.Err = Classify(err)

				break
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	res.Duration = time.Since(start)

	return res
}
