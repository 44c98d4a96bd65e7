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

// InsertSnapshot persists a snapshot record. Returns ErrDuplicateKey when the
// idempotency key collides with an existing row.
func (db *DB) InsertSnapshot(ctx context.Context, s *models.Snapshot) error {
	var faceCount sql.NullInt32
	if s.FaceCount != nil {
		faceCount = sql.NullInt32{Int32: int32(*s.FaceCount), Valid: true}
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snapshots (id, session_id, ts, storage_key, file_size, mime_type, face_count, idempotency_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.SessionID, s.Timestamp, s.StorageKey, s.FileSize, s.MimeType, faceCount, s.IdempotencyKey)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the snapshot with the given ID, or ErrNotFound.
func (db *DB) GetSnapshot(ctx context.Context, id uuid.UUID) (*models.Snapshot, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, session_id, ts, storage_key, file_size, mime_type, face_count, idempotency_key, uploaded_at
		 FROM snapshots WHERE id = ?`, id)
	return scanSnapshot(row)
}

// FindSnapshotByIdempotencyKey returns the snapshot stored under key, or
// ErrNotFound.
func (db *DB) FindSnapshotByIdempotencyKey(ctx context.Context, key string) (*models.Snapshot, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, session_id, ts, storage_key, file_size, mime_type, face_count, idempotency_key, uploaded_at
		 FROM snapshots WHERE idempotency_key = ?`, key)
	return scanSnapshot(row)
}

// UpdateSnapshotFaceCount records the classification result for a snapshot.
func (db *DB) UpdateSnapshotFaceCount(ctx context.Context, id uuid.UUID, faceCount int) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE snapshots SET face_count = ? WHERE id = ?`, faceCount, id)
	if err != nil {
		return fmt.Errorf("failed to update snapshot face count: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSnapshot(row *sql.Row) (*models.Snapshot, error) {
	var s models.Snapshot
	var faceCount sql.NullInt32
	err := row.Scan(&s.ID, &s.SessionID, &s.Timestamp, &s.StorageKey, &s.FileSize,
		&s.MimeType, &faceCount, &s.IdempotencyKey, &s.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	if faceCount.Valid {
		n := int(faceCount.Int32)
		s.FaceCount = &n
	}
	return &s, nil
}
