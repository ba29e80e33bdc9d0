// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/grantwise-io/grantwise/pkg/core/models"
	"github.com/grantwise-io/grantwise/pkg/utils/ptr"
)

// newTestDB creates an in-memory database with the retention schema.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		db.Close() // nolint: errcheck
	})

	ctx := context.Background()
	for _, model := range []any{
		(*models.Grant)(nil),
		(*models.GrantMatch)(nil),
		(*models.MatchArchive)(nil),
		(*models.AlertDelivery)(nil),
		(*models.RetentionRun)(nil),
	} {
		if _, err := db.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("failed to create table for %T: %v", model, err)
		}
	}

	return db
}

func countRows(t *testing.T, db *bun.DB, model any) int {
	t.Helper()

	count, err := db.NewSelect().Model(model).Count(context.Background())
	if err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}

	return count
}

func TestDeleteExpiredGrants(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	now := time.Now()
	cutoff := now.Add(-365 * 24 * time.Hour)

	grants := []models.Grant{
		// Deadline long past the cutoff
		{Title: "expired", Deadline: ptr.To(cutoff.Add(-time.Hour))},
		// Deadline within the retention window
		{Title: "recent", Deadline: ptr.To(now.Add(-time.Hour))},
		// No deadline at all, never eligible
		{Title: "rolling"},
	}
	if _, err := db.NewInsert().Model(&grants).Exec(ctx); err != nil {
		t.Fatalf("failed to insert grants: %v", err)
	}

	count, err := store.DeleteExpiredGrants(ctx, cutoff, 100)
	if err != nil {
		t.Fatalf("failed to delete expired grants: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 deleted grant, got %d", count)
	}

	remaining := make([]models.Grant, 0)
	if err := db.NewSelect().Model(&remaining).Scan(ctx); err != nil {
		t.Fatalf("failed to list grants: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining grants, got %d", len(remaining))
	}
	for _, grant := range remaining {
		if grant.Title == "expired" {
			t.Fatal("expired grant must have been deleted")
		}
	}

	// A second pass with no new writes removes nothing
	count, err = store.DeleteExpiredGrants(ctx, cutoff, 100)
	if err != nil {
		t.Fatalf("failed to delete expired grants: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected nothing deleted on second pass, got %d", count)
	}
}

func TestDeleteExpiredGrantsInBatches(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	cutoff := time.Now().Add(-365 * 24 * time.Hour)
	grants := make([]models.Grant, 0, 5)
	for range 5 {
		grants = append(grants, models.Grant{
			Title:    "expired",
			Deadline: ptr.To(cutoff.Add(-time.Hour)),
		})
	}
	if _, err := db.NewInsert().Model(&grants).Exec(ctx); err != nil {
		t.Fatalf("failed to insert grants: %v", err)
	}

	count, err := store.DeleteExpiredGrants(ctx, cutoff, 2)
	if err != nil {
		t.Fatalf("failed to delete expired grants: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected all 5 grants deleted across batches, got %d", count)
	}
	if got := countRows(t, db, (*models.Grant)(nil)); got != 0 {
		t.Fatalf("expected no remaining grants, got %d", got)
	}
}

func TestArchiveStaleMatches(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	// The test database stores timestamps at microsecond precision, so
	// anything finer would not survive the round-trip.
	now := time.Now().Truncate(time.Microsecond)
	cutoff := now.Add(-180 * 24 * time.Hour)
	old := cutoff.Add(-time.Hour)

	matches := []models.GrantMatch{
		{Model: models.Model{CreatedAt: old}, GrantID: 1, UserID: 10, Score: 0.9},
		{Model: models.Model{CreatedAt: old}, GrantID: 2, UserID: 10, Score: 0.8, UserAction: ptr.To(models.MatchActionDismissed)},
		{Model: models.Model{CreatedAt: old}, GrantID: 3, UserID: 10, Score: 0.7, UserAction: ptr.To(models.MatchActionSaved)},
		{Model: models.Model{CreatedAt: now.Add(-time.Hour)}, GrantID: 4, UserID: 10, Score: 0.6},
	}
	if _, err := db.NewInsert().Model(&matches).Exec(ctx); err != nil {
		t.Fatalf("failed to insert matches: %v", err)
	}

	count, err := store.ArchiveStaleMatches(ctx, cutoff, 100)
	if err != nil {
		t.Fatalf("failed to archive stale matches: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 archived matches, got %d", count)
	}

	// Saved and fresh matches survive
	remaining := make([]models.GrantMatch, 0)
	if err := db.NewSelect().Model(&remaining).Order("grant_id").Scan(ctx); err != nil {
		t.Fatalf("failed to list matches: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining matches, got %d", len(remaining))
	}
	if remaining[0].GrantID != 3 || remaining[1].GrantID != 4 {
		t.Fatalf("unexpected remaining matches: %+v", remaining)
	}

	// The archive carries a copy of the removed matches
	archives := make([]models.MatchArchive, 0)
	if err := db.NewSelect().Model(&archives).Order("grant_id").Scan(ctx); err != nil {
		t.Fatalf("failed to list archives: %v", err)
	}
	if len(archives) != 2 {
		t.Fatalf("expected 2 archived rows, got %d", len(archives))
	}
	if archives[0].GrantID != 1 || archives[1].GrantID != 2 {
		t.Fatalf("unexpected archived matches: %+v", archives)
	}
	if archives[0].MatchID != matches[0].ID {
		t.Fatalf("expected archive to reference match %d, got %d", matches[0].ID, archives[0].MatchID)
	}
	if !archives[0].MatchedAt.Equal(matches[0].CreatedAt) {
		t.Fatalf("expected matched_at %v, got %v", matches[0].CreatedAt, archives[0].MatchedAt)
	}
}

func TestDeleteStaleMatches(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	now := time.Now()
	cutoff := now.Add(-180 * 24 * time.Hour)
	old := cutoff.Add(-time.Hour)

	matches := []models.GrantMatch{
		{Model: models.Model{CreatedAt: old}, GrantID: 1, UserID: 10},
		{Model: models.Model{CreatedAt: old}, GrantID: 2, UserID: 10, UserAction: ptr.To(models.MatchActionDismissed)},
		{Model: models.Model{CreatedAt: old}, GrantID: 3, UserID: 10, UserAction: ptr.To(models.MatchActionSaved)},
	}
	if _, err := db.NewInsert().Model(&matches).Exec(ctx); err != nil {
		t.Fatalf("failed to insert matches: %v", err)
	}

	count, err := store.DeleteStaleMatches(ctx, cutoff, 100)
	if err != nil {
		t.Fatalf("failed to delete stale matches: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 deleted matches, got %d", count)
	}

	// Nothing lands in the archive on plain deletion
	if got := countRows(t, db, (*models.MatchArchive)(nil)); got != 0 {
		t.Fatalf("expected empty archive, got %d rows", got)
	}
	if got := countRows(t, db, (*models.GrantMatch)(nil)); got != 1 {
		t.Fatalf("expected 1 remaining match, got %d", got)
	}
}

func TestDeleteOldAlerts(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	now := time.Now()
	cutoff := now.Add(-90 * 24 * time.Hour)

	alerts := []models.AlertDelivery{
		{UserID: 1, Channel: "email", SentAt: cutoff.Add(-time.Hour), Opened: true},
		{UserID: 1, Channel: "email", SentAt: cutoff.Add(-2 * time.Hour)},
		{UserID: 2, Channel: "email", SentAt: now.Add(-time.Hour)},
	}
	if _, err := db.NewInsert().Model(&alerts).Exec(ctx); err != nil {
		t.Fatalf("failed to insert alerts: %v", err)
	}

	count, err := store.DeleteOldAlerts(ctx, cutoff, 100)
	if err != nil {
		t.Fatalf("failed to delete old alerts: %v", err)
	}

	// Open and click state never retains an alert
	if count != 2 {
		t.Fatalf("expected 2 deleted alerts, got %d", count)
	}
	if got := countRows(t, db, (*models.AlertDelivery)(nil)); got != 1 {
		t.Fatalf("expected 1 remaining alert, got %d", got)
	}
}

func TestSaveRun(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	now := time.Now()
	run := &models.RetentionRun{
		RunID:       "b3e1f9d0-0000-0000-0000-000000000000",
		Status:      "success",
		StartedAt:   now.Add(-time.Minute),
		CompletedAt: now,
		Jobs:        []byte(`[{"name":"cache_sweep","removed":1}]`),
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	var out models.RetentionRun
	err := db.NewSelect().
		Model(&out).
		Where("run_id = ?", run.RunID).
		Scan(ctx)
	if err != nil {
		t.Fatalf("failed to load run: %v", err)
	}
	if out.Status != "success" {
		t.Fatalf("expected status %q, got %q", "success", out.Status)
	}
}

func TestLatestRun(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	if _, err := store.LatestRun(ctx); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows without persisted runs, got %v", err)
	}

	now := time.Now().Truncate(time.Microsecond)
	runs := []models.RetentionRun{
		{
			RunID:       "a6a3a2a1-0000-0000-0000-000000000000",
			Status:      "partial_failure",
			StartedAt:   now.Add(-24 * time.Hour),
			CompletedAt: now.Add(-24*time.Hour + time.Minute),
			Jobs:        []byte(`[]`),
		},
		{
			RunID:       "b3e1f9d0-0000-0000-0000-000000000000",
			Status:      "success",
			StartedAt:   now.Add(-time.Minute),
			CompletedAt: now,
			Jobs:        []byte(`[]`),
		},
	}
	if _, err := db.NewInsert().Model(&runs).Exec(ctx); err != nil {
		t.Fatalf("failed to insert runs: %v", err)
	}

	latest, err := store.LatestRun(ctx)
	if err != nil {
		t.Fatalf("failed to load latest run: %v", err)
	}
	if latest.RunID != runs[1].RunID {
		t.Fatalf("expected latest run %q, got %q", runs[1].RunID, latest.RunID)
	}
}
