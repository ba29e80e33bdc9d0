// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package storage provides the store adapters consumed by the retention
// jobs through their capability interfaces.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/grantwise-io/grantwise/pkg/core/models"
	"github.com/grantwise-io/grantwise/pkg/retention"
)

// DefaultCallTimeout is the default timeout applied to each store call, so
// that a single call can never exceed the run budget.
const DefaultCallTimeout = 60 * time.Second

// Store implements the [retention.RelationalStore] and
// [retention.Compactor] capabilities on top of [bun.DB].
//
// Each predicate method runs within its own transaction, so a failing
// predicate is rolled back as a whole and never leaves a partially applied
// deletion behind. Records are processed in batches and the context is
// checked between batches, which keeps cancellation cooperative.
type Store struct {
	db *bun.DB

	// CallTimeout bounds each batch statement.
	CallTimeout time.Duration
}

var (
	_ retention.RelationalStore = &Store{}
	_ retention.Compactor       = &Store{}
)

// NewStore creates a new [Store] on top of the given database.
func NewStore(db *bun.DB) *Store {
	return &Store{
		db:          db,
		CallTimeout: DefaultCallTimeout,
	}
}

func (s *Store) callTimeout() time.Duration {
	if s.CallTimeout > 0 {
		return s.CallTimeout
	}

	return DefaultCallTimeout
}

// DeleteExpiredGrants implements the [retention.RelationalStore] interface.
func (s *Store) DeleteExpiredGrants(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	var total int64
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			bctx, cancel := context.WithTimeout(ctx, s.callTimeout())
			sub := tx.NewSelect().
				Model((*models.Grant)(nil)).
				Column("id").
				Where("deadline IS NOT NULL").
				Where("deadline < ?", cutoff).
				Limit(batchSize)
			out, err := tx.NewDelete().
				Model((*models.Grant)(nil)).
				Where("id IN (?)", sub).
				Exec(bctx)
			cancel()
			if err != nil {
				return err
			}

			count, err := out.RowsAffected()
			if err != nil {
				return err
			}
			total += count

			if count < int64(batchSize) {
				return nil
			}
		}
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

// matchPredicate narrows a query to the stale-match predicate: created
// before the cutoff, and either never acted on, or dismissed. Any other
// user action retains the match indefinitely.
func matchPredicate(q *bun.SelectQuery, cutoff time.Time) *bun.SelectQuery {
	return q.
		Where("created_at < ?", cutoff).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("user_action IS NULL").
				WhereOr("user_action = ?", models.MatchActionDismissed)
		})
}

// ArchiveStaleMatches implements the [retention.RelationalStore] interface.
func (s *Store) ArchiveStaleMatches(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	var total int64
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			bctx, cancel := context.WithTimeout(ctx, s.callTimeout())
			count, err := s.archiveMatchBatch(bctx, tx, cutoff, batchSize)
			cancel()
			if err != nil {
				return err
			}
			total += count

			if count < int64(batchSize) {
				return nil
			}
		}
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (s *Store) archiveMatchBatch(ctx context.Context, tx bun.Tx, cutoff time.Time, batchSize int) (int64, error) {
	stale := make([]models.GrantMatch, 0, batchSize)
	err := matchPredicate(tx.NewSelect().Model(&stale), cutoff).
		Limit(batchSize).
		Scan(ctx)
	if err != nil {
		return 0, err
	}

	if len(stale) == 0 {
		return 0, nil
	}

	now := time.Now()
	archives := make([]models.MatchArchive, 0, len(stale))
	ids := make([]int64, 0, len(stale))
	for _, item := range stale {
		archives = append(archives, models.MatchArchive{
			MatchID:    item.ID,
			GrantID:    item.GrantID,
			UserID:     item.UserID,
			Score:      item.Score,
			UserAction: item.UserAction,
			MatchedAt:  item.CreatedAt,
			ArchivedAt: now,
		})
		ids = append(ids, item.ID)
	}

	if _, err := tx.NewInsert().Model(&archives).Exec(ctx); err != nil {
		return 0, err
	}

	out, err := tx.NewDelete().
		Model((*models.GrantMatch)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return out.RowsAffected()
}

// DeleteStaleMatches implements the [retention.RelationalStore] interface.
func (s *Store) DeleteStaleMatches(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	var total int64
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			bctx, cancel := context.WithTimeout(ctx, s.callTimeout())
			sub := matchPredicate(
				tx.NewSelect().Model((*models.GrantMatch)(nil)).Column("id"),
				cutoff,
			).Limit(batchSize)
			out, err := tx.NewDelete().
				Model((*models.GrantMatch)(nil)).
				Where("id IN (?)", sub).
				Exec(bctx)
			cancel()
			if err != nil {
				return err
			}

			count, err := out.RowsAffected()
			if err != nil {
				return err
			}
			total += count

			if count < int64(batchSize) {
				return nil
			}
		}
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

// DeleteOldAlerts implements the [retention.RelationalStore] interface.
func (s *Store) DeleteOldAlerts(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	var total int64
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			bctx, cancel := context.WithTimeout(ctx, s.callTimeout())
			sub := tx.NewSelect().
				Model((*models.AlertDelivery)(nil)).
				Column("id").
				Where("sent_at < ?", cutoff).
				Limit(batchSize)
			out, err := tx.NewDelete().
				Model((*models.AlertDelivery)(nil)).
				Where("id IN (?)", sub).
				Exec(bctx)
			cancel()
			if err != nil {
				return err
			}

			count, err := out.RowsAffected()
			if err != nil {
				return err
			}
			total += count

			if count < int64(batchSize) {
				return nil
			}
		}
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

// Compact implements the [retention.Compactor] interface by running a
// VACUUM ANALYZE pass over the given tables. VACUUM cannot run within a
// transaction, so each table is processed on its own.
func (s *Store) Compact(ctx context.Context, tables []string) error {
	errs := make([]error, 0)
	for _, table := range tables {
		bctx, cancel := context.WithTimeout(ctx, s.callTimeout())
		_, err := s.db.ExecContext(bctx, "VACUUM ANALYZE ?", bun.Ident(table))
		cancel()
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// SaveRun persists the given cleanup run for audit.
func (s *Store) SaveRun(ctx context.Context, run *models.RetentionRun) error {
	bctx, cancel := context.WithTimeout(ctx, s.callTimeout())
	defer cancel()

	_, err := s.db.NewInsert().Model(run).Exec(bctx)

	return err
}

// LatestRun returns the most recently started cleanup run. It returns
// [sql.ErrNoRows] when no run was persisted yet.
func (s *Store) LatestRun(ctx context.Context) (*models.RetentionRun, error) {
	bctx, cancel := context.WithTimeout(ctx, s.callTimeout())
	defer cancel()

	run := &models.RetentionRun{}
	err := s.db.NewSelect().
		Model(run).
		Order("started_at DESC").
		Limit(1).
		Scan(bctx)
	if err != nil {
		return nil, err
	}

	return run, nil
}
