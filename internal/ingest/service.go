// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/proctorlens/proctorlens/internal/database"
	"github.com/proctorlens/proctorlens/internal/eventprocessor"
	"github.com/proctorlens/proctorlens/internal/logging"
	"github.com/proctorlens/proctorlens/internal/metrics"
	"github.com/proctorlens/proctorlens/internal/models"
	"github.com/proctorlens/proctorlens/internal/validation"
)

// ErrInvalidDetails marks a malformed structured details payload. The API
// layer maps it to a 400-class response.
var ErrInvalidDetails = errors.New("details must be a JSON object")

// EventItem is one event in an ingest batch.
type EventItem struct {
	SessionID      uuid.UUID        `json:"session_id"`
	Timestamp      int64            `json:"ts"`
	EventType      models.EventType `json:"event_type"`
	Details        json.RawMessage  `json:"details,omitempty"`
	IdempotencyKey string           `json:"idempotency_key"`
}

// SnapshotItem is one snapshot record in an ingest batch. The media bytes
// are already in object storage; only the reference is ingested.
type SnapshotItem struct {
	SessionID      uuid.UUID `json:"session_id"`
	Timestamp      int64     `json:"ts"`
	StorageKey     string    `json:"storage_key"`
	FileSize       int64     `json:"file_size"`
	MimeType       string    `json:"mime_type"`
	FaceCount      *int      `json:"face_count,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
}

// EventStore is the durable-store surface ingestion needs.
// Satisfied by *database.DB.
type EventStore interface {
	SessionExists(ctx context.Context, id uuid.UUID) (bool, error)
	InsertEvent(ctx context.Context, e *models.Event) error
	FindEventByIdempotencyKey(ctx context.Context, key string) (*models.Event, error)
	FindEventByCompositeKey(ctx context.Context, sessionID uuid.UUID, ts int64, eventType models.EventType) (*models.Event, error)
	InsertSnapshot(ctx context.Context, s *models.Snapshot) error
	FindSnapshotByIdempotencyKey(ctx context.Context, key string) (*models.Snapshot, error)
}

// RuleEvaluator is invoked synchronously for each created event.
// Satisfied by *rules.Engine.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, event *models.Event)
}

// JobPublisher queues classification jobs. Satisfied by
// *eventprocessor.Publisher.
type JobPublisher interface {
	PublishJob(ctx context.Context, topic string, job *eventprocessor.ClassificationJob) error
}

// Service implements idempotent batch ingestion of events and snapshots.
//
// Deduplication is two-phase: a read-side check against both keys first,
// then recovery when the insert itself hits a uniqueness violation because a
// concurrent request won the race. The durable store's constraints are the
// only mutual-exclusion mechanism.
type Service struct {
	db    EventStore
	rules RuleEvaluator
	pub   JobPublisher
	topic string
}

// NewService creates an ingest service. The publisher may be nil when no
// broker is configured; snapshot ingestion then skips job publishing.
func NewService(db EventStore, rules RuleEvaluator, pub JobPublisher, topic string) *Service {
	return &Service{db: db, rules: rules, pub: pub, topic: topic}
}

// IngestEvents persists a batch of events.
//
// Unknown sessions are skipped silently to tolerate partial or stale
// batches. A malformed details payload fails the batch with
// ErrInvalidDetails. Store errors other than recoverable uniqueness
// violations propagate.
func (s *Service) IngestEvents(ctx context.Context, items []EventItem) (*models.IngestResult, error) {
	start := time.Now()
	defer func() {
		metrics.IngestBatchDuration.WithLabelValues("event").Observe(time.Since(start).Seconds())
	}()

	result := &models.IngestResult{IDs: make([]uuid.UUID, 0, len(items))}

	for i, item := range items {
		id, created, err := s.ingestEvent(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if id == uuid.Nil {
			metrics.RecordIngestItem("event", "skipped")
			continue
		}
		if created {
			result.Created++
			metrics.RecordIngestItem("event", "created")
		} else {
			result.Duplicates++
			metrics.RecordIngestItem("event", "duplicate")
		}
		result.IDs = append(result.IDs, id)
	}

	return result, nil
}

// ingestEvent handles one item. A nil ID with nil error means the item was
// skipped for an unknown session.
func (s *Service) ingestEvent(ctx context.Context, item EventItem) (uuid.UUID, bool, error) {
	if item.SessionID == uuid.Nil {
		return uuid.Nil, false, nil
	}
	exists, err := s.db.SessionExists(ctx, item.SessionID)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("session lookup: %w", err)
	}
	if !exists {
		logging.Debug().
			Str("session_id", item.SessionID.String()).
			Msg("Event for unknown session skipped")
		return uuid.Nil, false, nil
	}

	if existing, err := s.db.FindEventByIdempotencyKey(ctx, item.IdempotencyKey); err == nil {
		return existing.ID, false, nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return uuid.Nil, false, fmt.Errorf("idempotency lookup: %w", err)
	}

	if existing, err := s.db.FindEventByCompositeKey(ctx, item.SessionID, item.Timestamp, item.EventType); err == nil {
		return existing.ID, false, nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return uuid.Nil, false, fmt.Errorf("composite lookup: %w", err)
	}

	if !validation.IsValidJSON(item.Details) {
		metrics.RecordIngestItem("event", "rejected")
		return uuid.Nil, false, ErrInvalidDetails
	}

	event := &models.Event{
		ID:             uuid.New(),
		SessionID:      item.SessionID,
		Timestamp:      item.Timestamp,
		EventType:      item.EventType,
		Details:        item.Details,
		IdempotencyKey: item.IdempotencyKey,
	}

	if err := s.db.InsertEvent(ctx, event); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			// A concurrent request inserted between our check and insert
			id, rerr := s.recoverDuplicateEvent(ctx, item)
			if rerr != nil {
				return uuid.Nil, false, rerr
			}
			return id, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("insert event: %w", err)
	}

	if s.rules != nil {
		s.rules.Evaluate(ctx, event)
	}

	return event.ID, true, nil
}

// recoverDuplicateEvent re-queries both keys after an insert-time uniqueness
// violation. Failing to find either row means the violation is not
// explainable as a duplicate and the original error semantics apply.
func (s *Service) recoverDuplicateEvent(ctx context.Context, item EventItem) (uuid.UUID, error) {
	if existing, err := s.db.FindEventByIdempotencyKey(ctx, item.IdempotencyKey); err == nil {
		return existing.ID, nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return uuid.Nil, fmt.Errorf("duplicate recovery: %w", err)
	}

	existing, err := s.db.FindEventByCompositeKey(ctx, item.SessionID, item.Timestamp, item.EventType)
	if err != nil {
		return uuid.Nil, fmt.Errorf("unexplained uniqueness violation: %w", err)
	}
	return existing.ID, nil
}

// IngestSnapshots persists a batch of snapshot records and queues one
// classification job per created snapshot.
//
// Publishing is best effort after the committed write: a failed publish is
// logged and counted, never unwound, so a snapshot can exist without a
// queued job. The publish-failure counter is the surfacing mechanism for
// that gap.
func (s *Service) IngestSnapshots(ctx context.Context, items []SnapshotItem) (*models.IngestResult, error) {
	start := time.Now()
	defer func() {
		metrics.IngestBatchDuration.WithLabelValues("snapshot").Observe(time.Since(start).Seconds())
	}()

	result := &models.IngestResult{IDs: make([]uuid.UUID, 0, len(items))}

	for i, item := range items {
		snapshot, created, err := s.ingestSnapshot(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if snapshot == nil {
			metrics.RecordIngestItem("snapshot", "skipped")
			continue
		}
		if created {
			result.Created++
			metrics.RecordIngestItem("snapshot", "created")
			s.publishJob(ctx, snapshot)
		} else {
			result.Duplicates++
			metrics.RecordIngestItem("snapshot", "duplicate")
		}
		result.IDs = append(result.IDs, snapshot.ID)
	}

	return result, nil
}

func (s *Service) ingestSnapshot(ctx context.Context, item SnapshotItem) (*models.Snapshot, bool, error) {
	if item.SessionID == uuid.Nil {
		return nil, false, nil
	}
	exists, err := s.db.SessionExists(ctx, item.SessionID)
	if err != nil {
		return nil, false, fmt.Errorf("session lookup: %w", err)
	}
	if !exists {
		logging.Debug().
			Str("session_id", item.SessionID.String()).
			Msg("Snapshot for unknown session skipped")
		return nil, false, nil
	}

	if existing, err := s.db.FindSnapshotByIdempotencyKey(ctx, item.IdempotencyKey); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, false, fmt.Errorf("idempotency lookup: %w", err)
	}

	mimeType := item.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	snapshot := &models.Snapshot{
		ID:             uuid.New(),
		SessionID:      item.SessionID,
		Timestamp:      item.Timestamp,
		StorageKey:     item.StorageKey,
		FileSize:       item.FileSize,
		MimeType:       mimeType,
		FaceCount:      item.FaceCount,
		IdempotencyKey: item.IdempotencyKey,
	}

	if err := s.db.InsertSnapshot(ctx, snapshot); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			existing, rerr := s.db.FindSnapshotByIdempotencyKey(ctx, item.IdempotencyKey)
			if rerr != nil {
				return nil, false, fmt.Errorf("unexplained uniqueness violation: %w", rerr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("insert snapshot: %w", err)
	}

	return snapshot, true, nil
}

func (s *Service) publishJob(ctx context.Context, snapshot *models.Snapshot) {
	if s.pub == nil {
		return
	}

	job := &eventprocessor.ClassificationJob{
		SnapshotID: snapshot.ID,
		SessionID:  snapshot.SessionID,
		StorageKey: snapshot.StorageKey,
		Timestamp:  snapshot.Timestamp,
	}
	if err := s.pub.PublishJob(ctx, s.topic, job); err != nil {
		metrics.SnapshotJobPublishFailuresTotal.Inc()
		logging.Error().
			Err(err).
			Str("snapshot_id", snapshot.ID.String()).
			Msg("Failed to publish classification job")
	}
}
