// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package retention

import (
	"context"
	"errors"
	"slices"
	"testing"
)

// fakeStreamTrimmer is a scripted stream broker used by the stream retention
// tests.
type fakeStreamTrimmer struct {
	lengths map[string]int64
	failing map[string]error
	trimmed map[string]int64
}

func (f *fakeStreamTrimmer) Len(_ context.Context, stream string) (int64, error) {
	if err := f.failing[stream]; err != nil {
		return 0, err
	}

	return f.lengths[stream], nil
}

func (f *fakeStreamTrimmer) TrimToLength(_ context.Context, stream string, maxLen int64) (int64, error) {
	if err := f.failing[stream]; err != nil {
		return 0, err
	}

	removed := f.lengths[stream] - maxLen
	if removed < 0 {
		removed = 0
	}

	if f.trimmed == nil {
		f.trimmed = make(map[string]int64)
	}
	f.trimmed[stream] = removed

	return removed, nil
}

func TestExpandStreams(t *testing.T) {
	got := ExpandStreams([]string{"grants:events", "matches:events"}, ":dlq")
	want := []string{
		"grants:events",
		"grants:events:dlq",
		"matches:events",
		"matches:events:dlq",
	}

	if !slices.Equal(got, want) {
		t.Fatalf("expected streams %v, got %v", want, got)
	}
}

func TestExpandStreamsWithoutSuffix(t *testing.T) {
	got := ExpandStreams([]string{"grants:events"}, "")
	if !slices.Equal(got, []string{"grants:events"}) {
		t.Fatalf("expected primaries only, got %v", got)
	}
}

func TestStreamRetentionJobTrims(t *testing.T) {
	trimmer := &fakeStreamTrimmer{
		lengths: map[string]int64{
			"grants:events":     150,
			"grants:events:dlq": 20,
		},
	}
	job := &StreamRetentionJob{
		Trimmer: trimmer,
		Streams: ExpandStreams([]string{"grants:events"}, ":dlq"),
		MaxLen:  100,
	}

	res := job.Run(context.Background())

	if res.Err != nil {
		t.Fatalf("expected no error, got %v", res.Err)
	}
	if res.Removed != 50 {
		t.Fatalf("expected 50 removed entries, got %d", res.Removed)
	}
	if res.Processed != 170 {
		t.Fatalf("expected 170 processed entries, got %d", res.Processed)
	}

	// The dead-letter twin is trimmed with the same cap
	if got, ok := trimmer.trimmed["grants:events:dlq"]; !ok || got != 0 {
		t.Fatalf("expected dead-letter stream trimmed with no removals, got %v", trimmer.trimmed)
	}
}

func TestStreamRetentionJobIsolatesFailingStream(t *testing.T) {
	trimmer := &fakeStreamTrimmer{
		lengths: map[string]int64{
			"a": 110,
			"b": 120,
		},
		failing: map[string]error{
			"a": errors.New("connection reset"),
		},
	}
	job := &StreamRetentionJob{
		Trimmer: trimmer,
		Streams: []string{"a", "b"},
		MaxLen:  100,
	}

	res := job.Run(context.Background())

	if !errors.Is(res.Err, ErrConnectivity) {
		t.Fatalf("expected ErrConnectivity, got %v", res.Err)
	}
	if res.Removed != 20 {
		t.Fatalf("expected the healthy stream to be trimmed, got %d removed", res.Removed)
	}
}

func TestStreamRetentionJobStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trimmer := &fakeStreamTrimmer{lengths: map[string]int64{"a": 10}}
	job := &StreamRetentionJob{Trimmer: trimmer, Streams: []string{"a"}, MaxLen: 5}

	res := job.Run(ctx)

	if !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", res.Err)
	}
	if len(trimmer.trimmed) != 0 {
		t.Fatalf("expected no stream to be trimmed after cancellation, got %v", trimmer.trimmed)
	}
}
