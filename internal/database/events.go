// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/proctorlens/proctorlens/internal/models"
)

// InsertEvent persists a behavioral event. Returns ErrDuplicateKey when the
// idempotency key or the (session_id, ts, event_type) composite collides with
// an existing row.
func (db *DB) InsertEvent(ctx context.Context, e *models.Event) error {
	var details sql.NullString
	if len(e.Details) > 0 {
		details = sql.NullString{String: string(e.Details), Valid: true}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO events (id, session_id, ts, event_type, details, idempotency_key)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Timestamp, e.EventType, details, e.IdempotencyKey)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// FindEventByIdempotencyKey returns the event stored under key, or ErrNotFound.
func (db *DB) FindEventByIdempotencyKey(ctx context.Context, key string) (*models.Event, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, session_id, ts, event_type, details, idempotency_key, created_at
		 FROM events WHERE idempotency_key = ?`, key)
	return scanEvent(row)
}

// FindEventByCompositeKey returns the event matching (session_id, ts,
// event_type), or ErrNotFound.
func (db *DB) FindEventByCompositeKey(ctx context.Context, sessionID uuid.UUID, ts int64, eventType models.EventType) (*models.Event, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, session_id, ts, event_type, details, idempotency_key, created_at
		 FROM events WHERE session_id = ? AND ts = ? AND event_type = ?`,
		sessionID, ts, eventType)
	return scanEvent(row)
}

// CountEventsBySession returns the number of events stored for a session.
func (db *DB) CountEventsBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func scanEvent(row *sql.Row) (*models.Event, error) {
	var e models.Event
	var details sql.NullString
	err := row.Scan(&e.ID, &e.SessionID, &e.Timestamp, &e.EventType, &details, &e.IdempotencyKey, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	if details.Valid {
		e.Details = json.RawMessage(details.String)
	}
	return &e, nil
}
