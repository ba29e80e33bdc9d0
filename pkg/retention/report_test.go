// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package retention

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestJobResultMarshalJSON(t *testing.T) {
	res := JobResult{
		Name:      "stream_retention",
		Processed: 100,
		Removed:   25,
		Duration:  1500 * time.Millisecond,
		Err:       errors.New("boom"),
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("failed to marshal job result: %v", err)
	}

	var out struct {
		Name       string  `json:"name"`
		Processed  int64   `json:"processed"`
		Removed    int64   `json:"removed"`
		DurationMs int64   `json:"duration_ms"`
		Error      *string `json:"error"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("failed to unmarshal job result: %v", err)
	}

	if out.Name != "stream_retention" {
		t.Fatalf("expected name %q, got %q", "stream_retention", out.Name)
	}
	if out.Processed != 100 || out.Removed != 25 {
		t.Fatalf("expected processed/removed 100/25, got %d/%d", out.Processed, out.Removed)
	}
	if out.DurationMs != 1500 {
		t.Fatalf("expected duration_ms 1500, got %d", out.DurationMs)
	}
	if out.Error == nil || *out.Error != "boom" {
		t.Fatalf("expected error %q, got %v", "boom", out.Error)
	}
}

func TestJobResultMarshalJSONNilError(t *testing.T) {
	data, err := json.Marshal(JobResult{Name: "cache_sweep"})
	if err != nil {
		t.Fatalf("failed to marshal job result: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("failed to unmarshal job result: %v", err)
	}

	if out["error"] != nil {
		t.Fatalf("expected null error, got %v", out["error"])
	}
}

func TestRunCounters(t *testing.T) {
	run := &Run{}
	run.Record(JobResult{Name: "a", Removed: 10})
	run.Record(JobResult{Name: "b", Removed: 5, Err: errors.New("boom")})
	run.Record(JobResult{Name: "c", Removed: 1})
	run.Skip("d")

	if got := run.Removed(); got != 16 {
		t.Fatalf("expected 16 removed items, got %d", got)
	}
	if got := run.Failed(); got != 1 {
		t.Fatalf("expected 1 failed job, got %d", got)
	}
	if len(run.Skipped) != 1 || run.Skipped[0] != "d" {
		t.Fatalf("expected skipped jobs [d], got %v", run.Skipped)
	}
}
