// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package eventprocessor

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ClassificationJob is the message published per accepted snapshot. The
// snapshot ID doubles as the broker message ID, so redeliveries and retried
// publishes deduplicate inside the stream's duplicate window.
type ClassificationJob struct {
	SnapshotID uuid.UUID `json:"snapshot_id"`
	SessionID  uuid.UUID `json:"session_id"`
	StorageKey string    `json:"storage_key"`
	Timestamp  int64     `json:"ts"` // epoch milliseconds
}

// SerializeJob encodes a classification job for the wire.
func SerializeJob(job *ClassificationJob) ([]byte, error) {
	if job == nil {
		return nil, fmt.Errorf("nil job")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	return data, nil
}

// DeserializeJob decodes a classification job from the wire.
func DeserializeJob(data []byte) (*ClassificationJob, error) {
	var job ClassificationJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	if job.SnapshotID == uuid.Nil {
		return nil, fmt.Errorf("job missing snapshot id")
	}
	return &job, nil
}
