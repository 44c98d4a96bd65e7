// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package classify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/proctorlens/proctorlens/internal/database"
	"github.com/proctorlens/proctorlens/internal/eventprocessor"
	"github.com/proctorlens/proctorlens/internal/logging"
	"github.com/proctorlens/proctorlens/internal/metrics"
	"github.com/proctorlens/proctorlens/internal/models"
)

// Severity scores for classification incidents.
const (
	noFaceScore    = 0.70
	multiFaceScore = 0.85
)

// SnapshotStore is the durable-store surface the worker needs.
// Satisfied by *database.DB.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, id uuid.UUID) (*models.Snapshot, error)
	UpdateSnapshotFaceCount(ctx context.Context, id uuid.UUID, faceCount int) error
	FindIncident(ctx context.Context, sessionID uuid.UUID, incType models.IncidentType, ts int64) (*models.Incident, error)
	InsertIncident(ctx context.Context, inc *models.Incident) error
}

// Worker consumes classification jobs and raises NO_FACE and MULTI_FACE
// incidents. Jobs arrive at least once, so every step tolerates redelivery:
// the face count update is a plain overwrite and incident creation is
// guarded by find-before-insert plus the store's uniqueness constraint.
type Worker struct {
	db         SnapshotStore
	classifier Classifier
	jobTimeout time.Duration
}

// NewWorker creates a classification worker.
func NewWorker(db SnapshotStore, classifier Classifier, jobTimeout time.Duration) *Worker {
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}
	return &Worker{db: db, classifier: classifier, jobTimeout: jobTimeout}
}

// Process handles one classification job.
//
// A job whose snapshot no longer exists is logged and discarded, not
// retried; redelivering it cannot succeed later.
func (w *Worker) Process(ctx context.Context, job *eventprocessor.ClassificationJob) error {
	ctx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	start := time.Now()

	snapshot, err := w.db.GetSnapshot(ctx, job.SnapshotID)
	if errors.Is(err, database.ErrNotFound) {
		metrics.ClassificationJobsTotal.WithLabelValues("snapshot_missing").Inc()
		logging.Warn().
			Str("snapshot_id", job.SnapshotID.String()).
			Str("session_id", job.SessionID.String()).
			Msg("Snapshot missing for classification job, discarding")
		return nil
	}
	if err != nil {
		metrics.ClassificationJobsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("load snapshot %s: %w", job.SnapshotID, err)
	}

	faceCount, err := w.classifier.Classify(ctx, snapshot)
	if err != nil {
		metrics.ClassificationJobsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("classify snapshot %s: %w", job.SnapshotID, err)
	}

	if err := w.db.UpdateSnapshotFaceCount(ctx, snapshot.ID, faceCount); err != nil {
		metrics.ClassificationJobsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("record face count for %s: %w", snapshot.ID, err)
	}

	if err := w.raiseIncident(ctx, snapshot, faceCount); err != nil {
		metrics.ClassificationJobsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.ClassificationJobsTotal.WithLabelValues("classified").Inc()
	metrics.ClassificationDuration.Observe(time.Since(start).Seconds())
	logging.Debug().
		Str("snapshot_id", snapshot.ID.String()).
		Int("face_count", faceCount).
		Msg("Snapshot classified")
	return nil
}

// raiseIncident creates the incident implied by the face count, if any.
// The incident timestamp is the snapshot's capture timestamp, so every
// redelivery resolves to the same (session, type, ts) identity.
func (w *Worker) raiseIncident(ctx context.Context, snapshot *models.Snapshot, faceCount int) error {
	var (
		incType models.IncidentType
		score   float64
		reason  string
	)
	switch {
	case faceCount == 0:
		incType = models.IncidentTypeNoFace
		score = noFaceScore
		reason = "No face detected in webcam snapshot"
	case faceCount >= 2:
		incType = models.IncidentTypeMultiFace
		score = multiFaceScore
		reason = fmt.Sprintf("%d faces detected in webcam snapshot", faceCount)
	default:
		return nil
	}

	_, err := w.db.FindIncident(ctx, snapshot.SessionID, incType, snapshot.Timestamp)
	if err == nil {
		// Redelivery of an already-handled job
		return nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("incident lookup: %w", err)
	}

	inc := &models.Incident{
		ID:          uuid.New(),
		SessionID:   snapshot.SessionID,
		Type:        incType,
		Timestamp:   snapshot.Timestamp,
		Score:       score,
		Reason:      reason,
		EvidenceKey: snapshot.StorageKey,
		Status:      models.IncidentStatusOpen,
	}
	if err := w.db.InsertIncident(ctx, inc); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			// Lost the race to a concurrent delivery; same outcome
			return nil
		}
		return fmt.Errorf("insert incident: %w", err)
	}

	metrics.RecordIncident(string(incType), "classifier")
	logging.Info().
		Str("incident_id", inc.ID.String()).
		Str("session_id", snapshot.SessionID.String()).
		Str("type", string(incType)).
		Float64("score", score).
		Msg("Classification incident raised")
	return nil
}

// Handler adapts the worker to the broker message loop.
//
// All errors are logged and the message is acked: a job that failed here
// would fail identically on redelivery (parse errors, missing snapshots) or
// is already safe to retry at a higher level, and endless redelivery of a
// poison message would starve the queue.
func (w *Worker) Handler() func(ctx context.Context, msg *message.Message) error {
	return func(ctx context.Context, msg *message.Message) error {
		defer func() {
			if r := recover(); r != nil {
				metrics.ClassificationJobsTotal.WithLabelValues("panic").Inc()
				logging.Error().
					Interface("panic", r).
					Str("message_uuid", msg.UUID).
					Msg("Classification job panicked, acking")
			}
		}()

		job, err := eventprocessor.DeserializeJob(msg.Payload)
		if err != nil {
			metrics.ClassificationJobsTotal.WithLabelValues("parse_error").Inc()
			logging.Error().
				Err(err).
				Str("message_uuid", msg.UUID).
				Msg("Unparseable classification job, acking")
			return nil
		}

		if err := w.Process(ctx, job); err != nil {
			logging.Error().
				Err(err).
				Str("snapshot_id", job.SnapshotID.String()).
				Msg("Classification job failed, acking")
		}
		return nil
	}
}
