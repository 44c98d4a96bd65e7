// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package database

import (
	"context"
	"fmt"
)

// schemaStatements define the tables in dependency order.
//
// Uniqueness invariants live in the schema so concurrent writers race on the
// database, not on application state:
//   - events: idempotency_key unique, (session_id, ts, event_type) unique
//   - snapshots: idempotency_key unique
//   - incidents: (session_id, type, ts) unique
//
// Timestamps named ts carry epoch milliseconds as BIGINT; details carries
// JSON text validated at the API boundary.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY,
		exam_id UUID NOT NULL,
		user_id UUID NOT NULL,
		status VARCHAR NOT NULL DEFAULT 'ACTIVE',
		started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		ended_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		session_id UUID NOT NULL,
		ts BIGINT NOT NULL,
		event_type VARCHAR NOT NULL,
		details VARCHAR,
		idempotency_key VARCHAR NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (session_id, ts, event_type)
	)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		id UUID PRIMARY KEY,
		session_id UUID NOT NULL,
		ts BIGINT NOT NULL,
		storage_key VARCHAR NOT NULL,
		file_size BIGINT NOT NULL DEFAULT 0,
		mime_type VARCHAR NOT NULL DEFAULT 'image/jpeg',
		face_count INTEGER,
		idempotency_key VARCHAR NOT NULL UNIQUE,
		uploaded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS incidents (
		id UUID PRIMARY KEY,
		session_id UUID NOT NULL,
		type VARCHAR NOT NULL,
		ts BIGINT NOT NULL,
		score DOUBLE NOT NULL,
		reason VARCHAR NOT NULL,
		evidence_key VARCHAR,
		status VARCHAR NOT NULL DEFAULT 'OPEN',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (session_id, type, ts)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_session ON events (session_id, ts)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots (session_id, ts)`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_session ON incidents (session_id, ts)`,
}

// initSchema creates tables and indexes if they do not exist.
func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
