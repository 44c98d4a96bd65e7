// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeValid(t *testing.T) {
	tests := []struct {
		eventType EventType
		valid     bool
	}{
		{EventTypeTabSwitch, true},
		{EventTypePaste, true},
		{EventTypeCopy, true},
		{EventTypeFullscreen, true},
		{EventTypeBlur, true},
		{EventType("MOUSE_MOVE"), false},
		{EventType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.eventType.Valid())
		})
	}
}

func TestIncidentJSONShape(t *testing.T) {
	inc := Incident{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Type:      IncidentTypeNoFace,
		Timestamp: 1756500000000,
		Score:     0.70,
		Reason:    "No face detected in webcam snapshot",
		Status:    IncidentStatusOpen,
	}

	data, err := json.Marshal(inc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "NO_FACE", decoded["type"])
	assert.Equal(t, "OPEN", decoded["status"])
	assert.NotContains(t, decoded, "evidence_key", "empty evidence key should be omitted")
}

func TestSnapshotFaceCountNullable(t *testing.T) {
	s := Snapshot{ID: uuid.New(), SessionID: uuid.New(), StorageKey: "sessions/a/1.jpg"}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "face_count")

	n := 2
	s.FaceCount = &n
	data, err = json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"face_count":2`)
}
