// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package retention

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RelationalStore is the capability consumed by the [RelationalPurgeJob].
// Each method evaluates a single staleness predicate within its own
// transaction and returns the number of affected records. A non-nil error
// means the whole predicate was rolled back and no records were touched.
type RelationalStore interface {
	// DeleteExpiredGrants deletes grants whose deadline is non-null and
	// earlier than the given cutoff. Grants without a deadline are never
	// eligible.
	DeleteExpiredGrants(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)

	// ArchiveStaleMatches archives grant matches created before the given
	// cutoff, whose user action is null or "dismissed", then deletes the
	// originals.
	ArchiveStaleMatches(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)

	// DeleteStaleMatches deletes grant matches created before the given
	// cutoff, whose user action is null or "dismissed".
	DeleteStaleMatches(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)

	// DeleteOldAlerts deletes alert delivery records sent before the
	// given cutoff, irrespective of their open or click state.
	DeleteOldAlerts(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// RelationalPurgeJob purges stale records from the relational store. The job
// evaluates three independent staleness predicates, each within its own
// transaction, so that a failing predicate never affects its siblings.
type RelationalPurgeJob struct {
	// Store is the relational store capability.
	Store RelationalStore

	// Policy provides the cutoffs and batch size for the job. Cutoffs
	// are derived from the policy reference time, which is fixed at run
	// start.
	Policy Policy
}

var _ Job = &RelationalPurgeJob{}

// RelationalPurgeJobName is the name of the relational purge job.
const RelationalPurgeJobName = "relational_purge"

// Name implements the [Job] interface.
func (j *RelationalPurgeJob) Name() string {
	return RelationalPurgeJobName
}

// Run implements the [Job] interface.
func (j *RelationalPurgeJob) Run(ctx context.Context) JobResult {
	start := time.Now()
	res := JobResult{Name: j.Name()}

	matchPurge := j.Store.DeleteStaleMatches
	if j.Policy.MatchAction == ActionArchive {
		matchPurge = j.Store.ArchiveStaleMatches
	}

	predicates := []struct {
		name   string
		cutoff time.Time
		fn     func(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
	}{
		{name: "expired_grants", cutoff: j.Policy.GrantCutoff(), fn: j.Store.DeleteExpiredGrants},
		{name: "stale_matches", cutoff: j.Policy.MatchCutoff(), fn: matchPurge},
		{name: "old_alerts", cutoff: j.Policy.AlertCutoff(), fn: j.Store.DeleteOldAlerts},
	}

	errs := make([]error, 0)
	for _, p := range predicates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.name, Classify(err)))

			break
		}

		count, err := p.fn(ctx, p.cutoff, j.Policy.BatchSize)
		if err != nil {
			// The predicate was rolled back. Keep going with the
			// remaining predicates.
			errs = append(errs, fmt.Errorf("%s: %w", p.name, Classify(err)))

			continue
		}

		res.Processed += count
		res.Removed += count
	}

	res.Err = errors.Join(errs...)
	res.Duration = time.Since(start)

	return res
}
