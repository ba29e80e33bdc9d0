// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package retention

import (
	"context"
	"errors"
	"fmt"
)

// ErrConnectivity is an error, which is returned when a backing store cannot
// be reached, or a call against it fails outright.
var ErrConnectivity = errors.New("store unreachable")

// ErrPartialBatch is an error, which is returned when only some items of a
// batch could be applied.
var ErrPartialBatch = errors.New("batch partially applied")

// ErrTimeout is an error, which is returned when a run deadline expired while
// a job was still in progress.
var ErrTimeout = errors.New("retention deadline exceeded")

// ErrConfiguration is an error, which is returned when the retention
// configuration is invalid. Configuration errors are fatal and are reported
// before a run is started.
var ErrConfiguration = errors.New("invalid retention configuration")

// Classify maps a low-level store error to the retention error taxonomy.
// Context cancellation maps to [ErrTimeout], anything else which is not
// already classified maps to [ErrConnectivity].
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConnectivity),
		errors.Is(err, ErrPartialBatch),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrConfiguration):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w (%w)", ErrTimeout, err)
	default:
		return fmt.Errorf("%w (%w)", ErrConnectivity, err)
	}
}
