// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package retention

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"
)

// fakeKeySpace is an in-memory key space used by the cache sweep tests. Keys
// are served in pages of fixed size to exercise the cursor discipline.
type fakeKeySpace struct {
	keys     []string
	ttls     map[string]time.Duration
	pageSize int
	deleted  []string
}

func (f *fakeKeySpace) Scan(_ context.Context, cursor uint64, match string, _ int64) ([]string, uint64, error) {
	prefix := strings.TrimSuffix(match, "*")

	matching := make([]string, 0)
	for _, key := range f.keys {
		if strings.HasPrefix(key, prefix) {
			matching = append(matching, key)
		}
	}

	start := int(cursor)
	if start >= len(matching) {
		return nil, 0, nil
	}

	end := start + f.pageSize
	if end >= len(matching) {
		return matching[start:], 0, nil
	}

	return matching[start:end], uint64(end), nil
}

func (f *fakeKeySpace) TTL(_ context.Context, key string) (time.Duration, error) {
	ttl, ok := f.ttls[key]
	if !ok {
		return TTLKeyAbsent, nil
	}

	return ttl, nil
}

func (f *fakeKeySpace) Del(_ context.Context, keys ...string) (int64, error) {
	f.deleted = append(f.deleted, keys...)

	return int64(len(keys)), nil
}

func TestCacheSweepJobRemovesOrphanedKeys(t *testing.T) {
	cache := &fakeKeySpace{
		keys: []string{
			"grantwise:cache:a",
			"grantwise:cache:b",
			"grantwise:cache:c",
			"grantwise:cache:d",
		},
		ttls: map[string]time.Duration{
			"grantwise:cache:a": 10 * time.Minute,
			"grantwise:cache:b": TTLNoExpiry,
			"grantwise:cache:c": TTLKeyAbsent,
		},
		pageSize: 2,
	}
	job := &CacheSweepJob{
		Cache:  cache,
		Prefix: "grantwise:cache:",
	}

	res := job.Run(context.Background())

	if res.Err != nil {
		t.Fatalf("expected no error, got %v", res.Err)
	}
	if res.Processed != 4 {
		t.Fatalf("expected 4 processed keys, got %d", res.Processed)
	}

	slices.Sort(cache.deleted)
	want := []string{"grantwise:cache:b", "grantwise:cache:c", "grantwise:cache:d"}
	if !slices.Equal(cache.deleted, want) {
		t.Fatalf("expected deleted keys %v, got %v", want, cache.deleted)
	}
	if res.Removed != 3 {
		t.Fatalf("expected 3 removed keys, got %d", res.Removed)
	}
}

func TestCacheSweepJobLeavesHealthyKeysAlone(t *testing.T) {
	cache := &fakeKeySpace{
		keys: []string{"grantwise:cache:a"},
		ttls: map[string]time.Duration{
			"grantwise:cache:a": time.Hour,
		},
		pageSize: 10,
	}
	job := &CacheSweepJob{Cache: cache, Prefix: "grantwise:cache:"}

	res := job.Run(context.Background())

	if res.Err != nil {
		t.Fatalf("expected no error, got %v", res.Err)
	}
	if len(cache.deleted) != 0 {
		t.Fatalf("expected no deleted keys, got %v", cache.deleted)
	}
}

func TestCacheSweepJobIgnoresForeignKeys(t *testing.T) {
	cache := &fakeKeySpace{
		keys: []string{
			"grantwise:cache:a",
			"other:namespace:key",
		},
		ttls:     map[string]time.Duration{},
		pageSize: 10,
	}
	job := &CacheSweepJob{Cache: cache, Prefix: "grantwise:cache:"}

	res := job.Run(context.Background())

	if res.Err != nil {
		t.Fatalf("expected no error, got %v", res.Err)
	}
	if res.Processed != 1 {
		t.Fatalf("expected only the owned key to be processed, got %d", res.Processed)
	}
	if slices.Contains(cache.deleted, "other:namespace:key") {
		t.Fatal("keys outside of the owned namespace must never be deleted")
	}
}

func TestCacheSweepJobStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cache := &fakeKeySpace{
		keys:     []string{"grantwise:cache:a"},
		ttls:     map[string]time.Duration{},
		pageSize: 10,
	}
	job := &CacheSweepJob{Cache: cache, Prefix: "grantwise:cache:"}

	res := job.Run(ctx)

	if res.Err == nil {
		t.Fatal("expected an error after cancellation")
	}
	if len(cache.deleted) != 0 {
		t.Fatalf("expected no deleted keys after cancellation, got %v", cache.deleted)
	}
}
