// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/grantwise-io/grantwise/pkg/retention"
)

func TestParse(t *testing.T) {
	conf, err := Parse(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	if conf.Version != ConfigFormatVersion {
		t.Fatalf("expected version %q, got %q", ConfigFormatVersion, conf.Version)
	}
	if conf.Redis.Endpoint != "localhost:6379" {
		t.Fatalf("unexpected redis endpoint: %q", conf.Redis.Endpoint)
	}
	if conf.Worker.Concurrency != 10 {
		t.Fatalf("expected worker concurrency 10, got %d", conf.Worker.Concurrency)
	}
	if len(conf.Scheduler.Jobs) != 1 {
		t.Fatalf("expected 1 periodic job, got %d", len(conf.Scheduler.Jobs))
	}

	job := conf.Scheduler.Jobs[0]
	if job.Name != "retention:task:run" || job.Spec != "@every 24h" {
		t.Fatalf("unexpected periodic job: %+v", job)
	}

	if conf.Retention.MatchAction != "archive" {
		t.Fatalf("expected match action %q, got %q", "archive", conf.Retention.MatchAction)
	}
	if conf.Retention.SoftDeadline != 30*time.Minute {
		t.Fatalf("expected soft deadline 30m, got %v", conf.Retention.SoftDeadline)
	}
	if len(conf.Retention.Streams) != 2 {
		t.Fatalf("expected 2 streams, got %v", conf.Retention.Streams)
	}
}

func TestParseMissingVersion(t *testing.T) {
	_, err := Parse(filepath.Join("testdata", "no-version.yaml"))
	if !errors.Is(err, ErrNoConfigVersion) {
		t.Fatalf("expected ErrNoConfigVersion, got %v", err)
	}
}

func TestParseUnsupportedVersion(t *testing.T) {
	_, err := Parse(filepath.Join("testdata", "bad-version.yaml"))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join("testdata", "nothing-here.yaml"))
	if err == nil {
		t.Fatal("expected an error for missing config file")
	}
}

func TestRetentionConfigPolicy(t *testing.T) {
	conf, err := Parse(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	ref := time.Now()
	policy, err := conf.Retention.Policy(ref)
	if err != nil {
		t.Fatalf("failed to derive policy: %v", err)
	}

	if !policy.RefTime.Equal(ref) {
		t.Fatalf("expected reference time %v, got %v", ref, policy.RefTime)
	}
	if policy.GrantMaxAge != 8760*time.Hour {
		t.Fatalf("expected grant max age 8760h, got %v", policy.GrantMaxAge)
	}
	if policy.MatchAction != retention.ActionArchive {
		t.Fatalf("expected match action %q, got %q", retention.ActionArchive, policy.MatchAction)
	}
	if policy.BatchSize != 500 {
		t.Fatalf("expected batch size 500, got %d", policy.BatchSize)
	}
}

func TestRetentionConfigPolicyDefaults(t *testing.T) {
	var conf RetentionConfig

	policy, err := conf.Policy(time.Now())
	if err != nil {
		t.Fatalf("failed to derive policy from empty config: %v", err)
	}

	if policy.GrantMaxAge != retention.DefaultGrantMaxAge {
		t.Fatalf("expected default grant max age, got %v", policy.GrantMaxAge)
	}
	if policy.BatchSize != retention.DefaultBatchSize {
		t.Fatalf("expected default batch size, got %d", policy.BatchSize)
	}
	if policy.CachePrefix != retention.DefaultCachePrefix {
		t.Fatalf("expected default cache prefix, got %q", policy.CachePrefix)
	}
}

func TestRetentionConfigPolicyBadDeadlines(t *testing.T) {
	conf := RetentionConfig{
		SoftDeadline: 40 * time.Minute,
		HardDeadline: 30 * time.Minute,
	}

	_, err := conf.Policy(time.Now())
	if !errors.Is(err, retention.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestRetentionConfigPolicyBadAction(t *testing.T) {
	conf := RetentionConfig{MatchAction: "purge"}

	_, err := conf.Policy(time.Now())
	if !errors.Is(err, retention.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
