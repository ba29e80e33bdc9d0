// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package retention

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		desc string
		in   error
		want error
	}{
		{desc: "nil error", in: nil, want: nil},
		{desc: "connectivity stays", in: ErrConnectivity, want: ErrConnectivity},
		{desc: "partial batch stays", in: ErrPartialBatch, want: ErrPartialBatch},
		{desc: "timeout stays", in: ErrTimeout, want: ErrTimeout},
		{desc: "configuration stays", in: ErrConfiguration, want: ErrConfiguration},
		{desc: "wrapped classified error stays", in: fmt.Errorf("queue foo: %w", ErrPartialBatch), want: ErrPartialBatch},
		{desc: "deadline exceeded maps to timeout", in: context.DeadlineExceeded, want: ErrTimeout},
		{desc: "cancellation maps to timeout", in: context.Canceled, want: ErrTimeout},
		{desc: "unknown error maps to connectivity", in: errors.New("connection refused"), want: ErrConnectivity},
	}

	for _, tc := range testCases {
		got := Classify(tc.in)
		if tc.want == nil {
			if got != nil {
				t.Fatalf("%s: expected nil, got %v", tc.desc, got)
			}

			continue
		}

		if !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.desc, tc.want, got)
		}
	}
}

func TestClassifyKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	got := Classify(cause)

	if !errors.Is(got, cause) {
		t.Fatalf("classified error must keep its cause, got %v", got)
	}
}
