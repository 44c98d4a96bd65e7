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
	"time"

	"github.com/google/uuid"

	"github.com/proctorlens/proctorlens/internal/models"
)

// InsertSession persists a new monitored session.
func (db *DB) InsertSession(ctx context.Context, s *models.Session) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, exam_id, user_id, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.ExamID, s.UserID, s.Status, s.StartedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession returns the session with the given ID, or ErrNotFound.
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, exam_id, user_id, status, started_at, ended_at FROM sessions WHERE id = ?`, id)

	var s models.Session
	var endedAt sql.NullTime
	err := row.Scan(&s.ID, &s.ExamID, &s.UserID, &s.Status, &s.StartedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if endedAt.Valid {
		s.EndedAt = &endedAt.Time
	}
	return &s, nil
}

// SessionExists reports whether a session with the given ID exists.
func (db *DB) SessionExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return exists, nil
}

// EndSession marks a session as ended. Ending an already ended session is a
// no-op that keeps the original end time.
func (db *DB) EndSession(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = ? WHERE id = ? AND status = ?`,
		models.SessionStatusEnded, endedAt, id, models.SessionStatusActive)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		// Either unknown or already ended; disambiguate for the caller
		exists, exErr := db.SessionExists(ctx, id)
		if exErr != nil {
			return exErr
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}
