// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package retention

import (
	"fmt"
	"time"
)

// Action specifies what happens with a record, which matched a staleness
// predicate.
type Action string

const (
	// ActionDelete removes matching records.
	ActionDelete Action = "delete"

	// ActionArchive copies matching records to their archive table before
	// removing them.
	ActionArchive Action = "archive"
)

const (
	// DefaultGrantMaxAge is the default retention window for grants with
	// an expired deadline.
	DefaultGrantMaxAge = 365 * 24 * time.Hour

	// DefaultMatchMaxAge is the default retention window for grant matches
	// the user either dismissed or never acted on.
	DefaultMatchMaxAge = 180 * 24 * time.Hour

	// DefaultAlertMaxAge is the default retention window for alert
	// delivery records.
	DefaultAlertMaxAge = 90 * 24 * time.Hour

	// DefaultTaskResultMaxAge is the default retention window for
	// completed task results.
	DefaultTaskResultMaxAge = 7 * 24 * time.Hour

	// DefaultBatchSize is the default number of records processed per
	// batch.
	DefaultBatchSize = 1000

	// DefaultStreamMaxLen is the default max number of entries retained
	// per stream.
	DefaultStreamMaxLen = 10000

	// DefaultSoftDeadline is the default duration after which no new job
	// is started within a run.
	DefaultSoftDeadline = 1800 * time.Second

	// DefaultHardDeadline is the default duration after which in-flight
	// jobs are cancelled.
	DefaultHardDeadline = 2400 * time.Second

	// DefaultCachePrefix is the default owned cache key namespace.
	DefaultCachePrefix = "grantwise:cache:"

	// DefaultDLQSuffix is the default suffix of dead-letter streams.
	DefaultDLQSuffix = ":dlq"
)

// Policy is an immutable snapshot of the retention thresholds for a single
// run. The reference time is fixed when the policy is created, so that a
// moving wall clock cannot cause inconsistent scans within a run.
type Policy struct {
	// RefTime is the reference time against which all age cutoffs are
	// evaluated.
	RefTime time.Time

	// GrantMaxAge is the retention window for grants past their deadline.
	GrantMaxAge time.Duration

	// MatchMaxAge is the retention window for dismissed or unactioned
	// grant matches.
	MatchMaxAge time.Duration

	// AlertMaxAge is the retention window for alert delivery records.
	AlertMaxAge time.Duration

	// TaskResultMaxAge is the retention window for completed task results.
	TaskResultMaxAge time.Duration

	// MatchAction specifies whether stale matches are archived or
	// deleted.
	MatchAction Action

	// BatchSize is the max number of records processed per batch.
	BatchSize int

	// StreamMaxLen is the max number of entries retained per stream.
	StreamMaxLen int64

	// CachePrefix is the owned cache key namespace. Only keys within this
	// namespace are ever considered by the cache sweep.
	CachePrefix string
}

// NewPolicy returns a [Policy] with the reference time fixed at ref and all
// thresholds set to their defaults.
func NewPolicy(ref time.Time) Policy {
	return Policy{
		RefTime:          ref,
		GrantMaxAge:      DefaultGrantMaxAge,
		MatchMaxAge:      DefaultMatchMaxAge,
		AlertMaxAge:      DefaultAlertMaxAge,
		TaskResultMaxAge: DefaultTaskResultMaxAge,
		MatchAction:      ActionArchive,
		BatchSize:        DefaultBatchSize,
		StreamMaxLen:     DefaultStreamMaxLen,
		CachePrefix:      DefaultCachePrefix,
	}
}

// GrantCutoff returns the timestamp before which a non-null grant deadline
// makes the grant eligible for deletion.
func (p Policy) GrantCutoff() time.Time {
	return p.RefTime.Add(-p.GrantMaxAge)
}

// MatchCutoff returns the timestamp before which a grant match must have been
// created in order to be eligible.
func (p Policy) MatchCutoff() time.Time {
	return p.RefTime.Add(-p.MatchMaxAge)
}

// AlertCutoff returns the timestamp before which an alert delivery must have
// been sent in order to be eligible.
func (p Policy) AlertCutoff() time.Time {
	return p.RefTime.Add(-p.AlertMaxAge)
}

// TaskResultCutoff returns the timestamp before which a task result must have
// been completed in order to be eligible.
func (p Policy) TaskResultCutoff() time.Time {
	return p.RefTime.Add(-p.TaskResultMaxAge)
}

// Validate validates the policy. Invalid thresholds indicate a deployment
// defect, so callers are expected to fail fast on any returned error.
func (p Policy) Validate() error {
	if p.RefTime.IsZero() {
		return fmt.Errorf("%w: reference time is not set", ErrConfiguration)
	}

	windows := map[string]time.Duration{
		"grant max age":       p.GrantMaxAge,
		"match max age":       p.MatchMaxAge,
		"alert max age":       p.AlertMaxAge,
		"task result max age": p.TaskResultMaxAge,
	}
	for name, window := range windows {
		if window <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrConfiguration, name)
		}
	}

	switch p.MatchAction {
	case ActionDelete, ActionArchive:
	default:
		return fmt.Errorf("%w: unknown match action %q", ErrConfiguration, p.MatchAction)
	}

	if p.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", ErrConfiguration)
	}

	if p.StreamMaxLen <= 0 {
		return fmt.Errorf("%w: stream max length must be positive", ErrConfiguration)
	}

	if p.CachePrefix == "" {
		return fmt.Errorf("%w: cache prefix must not be empty", ErrConfiguration)
	}

	return nil
}
