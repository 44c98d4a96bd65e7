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

	"github.com/google/uuid"

	"github.com/proctorlens/proctorlens/internal/models"
)

// InsertIncident persists an incident. Returns ErrDuplicateKey when another
// incident already exists for the same (session_id, type, ts).
func (db *DB) InsertIncident(ctx context.Context, inc *models.Incident) error {
	var evidence sql.NullString
	if inc.EvidenceKey != "" {
		evidence = sql.NullString{String: inc.EvidenceKey, Valid: true}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO incidents (id, session_id, type, ts, score, reason, evidence_key, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID, inc.SessionID, inc.Type, inc.Timestamp, inc.Score, inc.Reason, evidence, inc.Status)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert incident: %w", err)
	}
	return nil
}

// FindIncident returns the incident matching (session_id, type, ts), or
// ErrNotFound. The classification worker uses this as its find-before-insert
// idempotence guard.
func (db *DB) FindIncident(ctx context.Context, sessionID uuid.UUID, incType models.IncidentType, ts int64) (*models.Incident, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, session_id, type, ts, score, reason, evidence_key, status, created_at
		 FROM incidents WHERE session_id = ? AND type = ? AND ts = ?`,
		sessionID, incType, ts)
	return scanIncident(row)
}

// ListIncidents returns incidents for a session ordered by ts descending.
// A zero limit returns all incidents.
func (db *DB) ListIncidents(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.Incident, error) {
	query := `SELECT id, session_id, type, ts, score, reason, evidence_key, status, created_at
		 FROM incidents WHERE session_id = ? ORDER BY ts DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer closeWithLog(rows, "incidents rows")

	incidents := make([]models.Incident, 0)
	for rows.Next() {
		var inc models.Incident
		var evidence sql.NullString
		if err := rows.Scan(&inc.ID, &inc.SessionID, &inc.Type, &inc.Timestamp,
			&inc.Score, &inc.Reason, &evidence, &inc.Status, &inc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		if evidence.Valid {
			inc.EvidenceKey = evidence.String
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("incident iteration failed: %w", err)
	}
	return incidents, nil
}

func scanIncident(row *sql.Row) (*models.Incident, error) {
	var inc models.Incident
	var evidence sql.NullString
	err := row.Scan(&inc.ID, &inc.SessionID, &inc.Type, &inc.Timestamp,
		&inc.Score, &inc.Reason, &evidence, &inc.Status, &inc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan incident: %w", err)
	}
	if evidence.Valid {
		inc.EvidenceKey = evidence.String
	}
	return &inc, nil
}
