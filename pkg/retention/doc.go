// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package retention implements the periodic cleanup of stale records across
// the backing stores of the platform - the relational store, the event
// streams and their dead-letter twins, the ephemeral cache and the async
// task-result store.
//
// Each store is consumed through a narrow capability interface, so that
// every job can be exercised against a minimal fake. Jobs isolate their
// failures: an unreachable store is recorded on that job's result and never
// prevents the remaining jobs from running. The [Coordinator] sequences the
// jobs under a soft and a hard wall-clock deadline and always returns a
// terminal [Run] report.
//
// Cleanup is best-effort, idempotent and periodic. There are no cross-store
// transactions and no consistency guarantees beyond per-predicate atomicity
// within the relational store.
package retention
