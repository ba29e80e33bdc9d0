// SPDX-FileCopyrightText: 2025 The Grantwise Authors
//
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"

	"github.com/grantwise-io/grantwise/pkg/core/registry"
)

// Known user actions on a grant match. A match with any action other than
// "dismissed" is retained indefinitely.
const (
	MatchActionSaved     = "saved"
	MatchActionDismissed = "dismissed"
)

// Model is the base model embedded by all models.
type Model struct {
	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	CreatedAt time.Time `bun:"created_at,notnull,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,nullzero,default:current_timestamp" json:"updated_at"`
}

// Grant represents a funding opportunity known to the platform.
type Grant struct {
	bun.BaseModel `bun:"table:grants"`
	Model

	// Title is the title of the grant.
	Title string `bun:"title,notnull" json:"title"`

	// Funder is the organization offering the grant.
	Funder string `bun:"funder" json:"funder"`

	// Deadline is the application deadline, if the grant has one. Grants
	// without a deadline are never purged, regardless of their age.
	Deadline *time.Time `bun:"deadline" json:"deadline"`
}

// GrantMatch represents a grant suggested to a user by the matching engine.
type GrantMatch struct {
	bun.BaseModel `bun:"table:grant_matches"`
	Model

	// GrantID is the id of the matched grant.
	GrantID int64 `bun:"grant_id,notnull" json:"grant_id"`

	// UserID is the id of the user the grant was suggested to.
	UserID int64 `bun:"user_id,notnull" json:"user_id"`

	// Score is the match score assigned by the matching engine.
	Score float64 `bun:"score,notnull" json:"score"`

	// UserAction records what the user did with the match, if anything.
	UserAction *string `bun:"user_action" json:"user_action"`
}

// MatchArchive represents a grant match which was archived by the retention
// process before removal from the live table.
type MatchArchive struct {
	bun.BaseModel `bun:"table:match_archives"`
	Model

	// MatchID is the id the match had in the live table.
	MatchID int64 `bun:"match_id,notnull" json:"match_id"`

	GrantID    int64   `bun:"grant_id,notnull" json:"grant_id"`
	UserID     int64   `bun:"user_id,notnull" json:"user_id"`
	Score      float64 `bun:"score,notnull" json:"score"`
	UserAction *string `bun:"user_action" json:"user_action"`

	// MatchedAt is the time the match was originally created.
	MatchedAt time.Time `bun:"matched_at,notnull" json:"matched_at"`

	// ArchivedAt is the time the match was archived.
	ArchivedAt time.Time `bun:"archived_at,notnull" json:"archived_at"`
}

// AlertDelivery represents a single alert sent to a user about new matches.
type AlertDelivery struct {
	bun.BaseModel `bun:"table:alert_deliveries"`
	Model

	// UserID is the id of the user the alert was sent to.
	UserID int64 `bun:"user_id,notnull" json:"user_id"`

	// Channel is the delivery channel, e.g. "email".
	Channel string `bun:"channel,notnull" json:"channel"`

	// SentAt is the time the alert was sent.
	SentAt time.Time `bun:"sent_at,notnull" json:"sent_at"`

	// Opened specifies whether the alert was opened.
	Opened bool `bun:"opened,notnull,default:false" json:"opened"`

	// Clicked specifies whether a link in the alert was followed.
	Clicked bool `bun:"clicked,notnull,default:false" json:"clicked"`
}

// RetentionRun represents a completed cleanup run, persisted for audit.
type RetentionRun struct {
	bun.BaseModel `bun:"table:retention_runs"`
	Model

	// RunID is the unique id of the run.
	RunID string `bun:"run_id,notnull,unique" json:"run_id"`

	// Status is the terminal status of the run.
	Status string `bun:"status,notnull" json:"status"`

	// StartedAt specifies when the run started.
	StartedAt time.Time `bun:"started_at,notnull" json:"started_at"`

	// CompletedAt specifies when the run became terminal.
	CompletedAt time.Time `bun:"completed_at,notnull" json:"completed_at"`

	// Jobs holds the per-job results of the run as JSON.
	Jobs json.RawMessage `bun:"jobs,type:jsonb" json:"jobs"`
}

func init() {
	// Register the models with the default registry
	registry.ModelRegistry.MustRegister("core:model:grant", &Grant{})
	registry.ModelRegistry.MustRegister("core:model:grant_match", &GrantMatch{})
	registry.ModelRegistry.MustRegister("core:model:match_archive", &MatchArchive{})
	registry.ModelRegistry.MustRegister("core:model:alert_delivery", &AlertDelivery{})
	registry.ModelRegistry.MustRegister("core:model:retention_run", &RetentionRun{})
}
