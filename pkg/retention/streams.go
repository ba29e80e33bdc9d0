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

// StreamTrimmer is the capability consumed by the [StreamRetentionJob].
type StreamTrimmer interface {
	// Len returns the number of entries in the given stream.
	Len(ctx context.Context, stream string) (int64, error)

	// TrimToLength trims the given stream to at most maxLen entries,
	// discarding oldest entries first, and returns the number of entries
	// removed.
	TrimToLength(ctx context.Context, stream string, maxLen int64) (int64, error)
}

// ExpandStreams returns the flat list of streams to be trimmed, deriving the
// dead-letter twin of each stream by appending the given suffix. Dead-letter
// streams are processed exactly like their primaries.
func ExpandStreams(streams []string, dlqSuffix string) []string {
	out := make([]string, 0, 2*len(streams))
	for _, name := range streams {
		out = append(out, name)
		if dlqSuffix != "" {
			out = append(out, name+dlqSuffix)
		}
	}

	return out
}

// StreamRetentionJob trims event streams to a max retained length. The cap
// is a resource bound only. Trimming is length-based and never consults
// consumer acknowledgement state.
type StreamRetentionJob struct {
	// Trimmer is the stream broker capability.
	Trimmer StreamTrimmer

	// Streams is the flat list of stream names to trim, including the
	// dead-letter twins. See [ExpandStreams].
	Streams []string

	// MaxLen is the max number of entries retained per stream.
	MaxLen int64
}

var _ Job = &StreamRetentionJob{}

// StreamRetentionJobName is the name of the stream retention job.
const StreamRetentionJobName = "stream_retention"

// Name implements the [Job] interface.
func (j *StreamRetentionJob) Name() string {
	return StreamRetentionJobName
}

// Run implements the [Job] interface.
func (j *StreamRetentionJob) Run(ctx context.Context) JobResult {
	start := time.Now()
	res := JobResult{Name: j.Name()}

	errs := make([]error, 0)
	for _, stream := range j.Streams {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", stream, Classify(err)))

			break
		}

		length, err := j.Trimmer.Len(ctx, stream)
		if err != nil {
			// A failing stream never prevents the remaining streams
			// from being trimmed.
			errs = append(errs, fmt.Errorf("%s: %w", stream, Classify(err)))

			continue
		}
		res.Processed += length

		trimmed, err := j.Trimmer.TrimToLength(ctx, stream, j.MaxLen)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", stream, Classify(err)))

			continue
		}
		res.Removed += trimmed
	}

	res.Err = errors.Join(errs...)
	res.Duration = time.Since(start)

	return res
}
