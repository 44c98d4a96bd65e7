// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// EventType enumerates the behavioral signals a monitored session can emit.
type EventType string

const (
	EventTypeTabSwitch  EventType = "TAB_SWITCH"
	EventTypePaste      EventType = "PASTE"
	EventTypeCopy       EventType = "COPY"
	EventTypeFullscreen EventType = "FULLSCREEN_EXIT"
	EventTypeBlur       EventType = "WINDOW_BLUR"
)

// Valid reports whether the event type is a known signal.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeTabSwitch, EventTypePaste, EventTypeCopy, EventTypeFullscreen, EventTypeBlur:
		return true
	}
	return false
}

// IncidentType enumerates the abuse signals ProctorLens can raise.
type IncidentType string

const (
	IncidentTypeNoFace    IncidentType = "NO_FACE"
	IncidentTypeMultiFace IncidentType = "MULTI_FACE"
	IncidentTypeTabAbuse  IncidentType = "TAB_ABUSE"
	IncidentTypePaste     IncidentType = "PASTE"
)

// IncidentStatus enumerates incident lifecycle states.
type IncidentStatus string

const (
	IncidentStatusOpen      IncidentStatus = "OPEN"
	IncidentStatusResolved  IncidentStatus = "RESOLVED"
	IncidentStatusDismissed IncidentStatus = "DISMISSED"
)

// SessionStatus enumerates monitored session lifecycle states.
type SessionStatus string

const (
	SessionStatusActive SessionStatus = "ACTIVE"
	SessionStatusEnded  SessionStatus = "ENDED"
)

// Session is one monitored exam-taking instance. Exam and user metadata live
// in external services; the core only needs an existence referent for
// ingestion and a coarse lifecycle.
type Session struct {
	ID        uuid.UUID     `json:"id"`
	ExamID    uuid.UUID     `json:"exam_id"`
	UserID    uuid.UUID     `json:"user_id"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

// Event is one behavioral signal from a monitored session.
//
// Two uniqueness invariants hold: the idempotency key is unique, and the
// composite (session_id, ts, event_type) is unique. Events are immutable once
// persisted; retention is an external concern.
type Event struct {
	ID             uuid.UUID       `json:"id"`
	SessionID      uuid.UUID       `json:"session_id"`
	Timestamp      int64           `json:"ts"` // epoch milliseconds
	EventType      EventType       `json:"event_type"`
	Details        json.RawMessage `json:"details,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Snapshot is one captured media frame. The bytes live in external object
// storage; StorageKey is the opaque reference. FaceCount is nil until the
// classification worker has processed the snapshot.
type Snapshot struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	Timestamp      int64     `json:"ts"` // epoch milliseconds
	StorageKey     string    `json:"storage_key"`
	FileSize       int64     `json:"file_size"`
	MimeType       string    `json:"mime_type"`
	FaceCount      *int      `json:"face_count,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// Incident is a persisted record of a detected abuse signal.
//
// At most one incident exists per (session_id, type, time bucket); the rule
// engine enforces this with counter-store markers, the classification worker
// with a find-before-insert guard.
type Incident struct {
	ID          uuid.UUID      `json:"id"`
	SessionID   uuid.UUID      `json:"session_id"`
	Type        IncidentType   `json:"type"`
	Timestamp   int64          `json:"ts"` // epoch milliseconds
	Score       float64        `json:"score"`
	Reason      string         `json:"reason"`
	EvidenceKey string         `json:"evidence_key,omitempty"`
	Status      IncidentStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

// IngestResult reports per-item accounting for one ingest batch.
// IDs are in input order; skipped items (unknown session) have no entry.
type IngestResult struct {
	Created    int         `json:"createdCount"`
	Duplicates int         `json:"duplicateCount"`
	IDs        []uuid.UUID `json:"ids"`
}
