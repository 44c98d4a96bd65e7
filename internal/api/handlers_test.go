// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proctorlens/proctorlens/internal/config"
	"github.com/proctorlens/proctorlens/internal/counter"
	"github.com/proctorlens/proctorlens/internal/database"
	"github.com/proctorlens/proctorlens/internal/ingest"
	"github.com/proctorlens/proctorlens/internal/models"
	"github.com/proctorlens/proctorlens/internal/rules"
)

type apiFixture struct {
	db      *database.DB
	router  http.Handler
	session *models.Session
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	engine := rules.NewEngine(counter.NewMemoryStore(), db, rules.DefaultRules(config.RulesConfig{}))
	svc := ingest.NewService(db, engine, nil, "")
	handler := NewHandler(db, svc, 100)

	serverCfg := &config.ServerConfig{
		RateLimitReqs:   10000,
		RateLimitWindow: time.Minute,
		CORSOrigins:     []string{"*"},
	}

	session := &models.Session{
		ID:        uuid.New(),
		ExamID:    uuid.New(),
		UserID:    uuid.New(),
		Status:    models.SessionStatusActive,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, db.InsertSession(context.Background(), session))

	return &apiFixture{
		db:      db,
		router:  NewRouter(handler, serverCfg),
		session: session,
	}
}

func (f *apiFixture) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func eventPayload(sessionID uuid.UUID, ts int64, eventType, key string) map[string]interface{} {
	return map[string]interface{}{
		"session_id":      sessionID.String(),
		"ts":              ts,
		"event_type":      eventType,
		"idempotency_key": key,
	}
}

func TestIngestEventsEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.post(t, "/api/v1/ingest/events", []map[string]interface{}{
		eventPayload(f.session.ID, 1756500000000, "TAB_SWITCH", "k1"),
		eventPayload(f.session.ID, 1756500001000, "PASTE", "k2"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Duplicates)
	assert.Len(t, result.IDs, 2)

	// Replay the same batch: all duplicates, same ids
	rec = f.post(t, "/api/v1/ingest/events", []map[string]interface{}{
		eventPayload(f.session.ID, 1756500000000, "TAB_SWITCH", "k1"),
		eventPayload(f.session.ID, 1756500001000, "PASTE", "k2"),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var replay models.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replay))
	assert.Equal(t, 0, replay.Created)
	assert.Equal(t, 2, replay.Duplicates)
	assert.Equal(t, result.IDs, replay.IDs)
}

func TestIngestEventsValidation(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name    string
		payload interface{}
		code    string
	}{
		{"not an array", map[string]string{"x": "y"}, "INVALID_BODY"},
		{"bad session id", []map[string]interface{}{
			{"session_id": "nope", "ts": 1, "event_type": "PASTE", "idempotency_key": "k"},
		}, "VALIDATION_ERROR"},
		{"unknown event type", []map[string]interface{}{
			eventPayload(f.session.ID, 1, "MOUSE_JIGGLE", "k"),
		}, "VALIDATION_ERROR"},
		{"missing idempotency key", []map[string]interface{}{
			{"session_id": f.session.ID.String(), "ts": 1, "event_type": "PASTE"},
		}, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.post(t, "/api/v1/ingest/events", tt.payload)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
		})
	}
}

func TestIngestEventsDetailsShapes(t *testing.T) {
	f := newAPIFixture(t)

	// Any well-formed JSON is a legal details payload, not just objects.
	arrayPayload := eventPayload(f.session.ID, 1756500000000, "TAB_SWITCH", "k1")
	arrayPayload["details"] = []map[string]string{{"from": "exam"}, {"to": "search"}}
	scalarPayload := eventPayload(f.session.ID, 1756500001000, "PASTE", "k2")
	scalarPayload["details"] = "clipboard"

	rec := f.post(t, "/api/v1/ingest/events", []map[string]interface{}{arrayPayload, scalarPayload})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Created)

	// Malformed details cannot survive the body decode
	body := fmt.Sprintf(`[{"session_id":%q,"ts":1756500002000,"event_type":"COPY","details":{"broken":,"idempotency_key":"k3"}]`,
		f.session.ID.String())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/events", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	raw := httptest.NewRecorder()
	f.router.ServeHTTP(raw, req)
	require.Equal(t, http.StatusBadRequest, raw.Code)
	assert.Contains(t, raw.Body.String(), "INVALID_BODY")
}

func TestIngestEventsBatchTooLarge(t *testing.T) {
	f := newAPIFixture(t)

	batch := make([]map[string]interface{}, 101)
	for i := range batch {
		batch[i] = eventPayload(f.session.ID, int64(i+1), "TAB_SWITCH", fmt.Sprintf("k%d", i))
	}

	rec := f.post(t, "/api/v1/ingest/events", batch)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "BATCH_TOO_LARGE")
}

func TestIngestSnapshotsEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.post(t, "/api/v1/ingest/snapshots", []map[string]interface{}{
		{
			"session_id":      f.session.ID.String(),
			"ts":              1756500000000,
			"storage_key":     "sessions/x/1.jpg",
			"file_size":       4096,
			"mime_type":       "image/jpeg",
			"idempotency_key": "snap-1",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Created)
}

func TestSessionEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.post(t, "/api/v1/sessions", map[string]string{
		"exam_id": uuid.NewString(),
		"user_id": uuid.NewString(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.SessionStatusActive, created.Status)

	rec = f.get(t, "/api/v1/sessions/"+created.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.post(t, "/api/v1/sessions/"+created.ID.String()+"/end", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.get(t, "/api/v1/sessions/"+created.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var ended models.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ended))
	assert.Equal(t, models.SessionStatusEnded, ended.Status)

	rec = f.get(t, "/api/v1/sessions/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.get(t, "/api/v1/sessions/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListIncidentsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.InsertIncident(ctx, &models.Incident{
		ID:        uuid.New(),
		SessionID: f.session.ID,
		Type:      models.IncidentTypeTabAbuse,
		Timestamp: 1756500000000,
		Score:     0.6,
		Reason:    "Excessive tab switching: 11 switches within the window",
		Status:    models.IncidentStatusOpen,
	}))

	rec := f.get(t, "/api/v1/sessions/"+f.session.ID.String()+"/incidents")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Incidents []models.Incident `json:"incidents"`
		Count     int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Incidents, 1)
	assert.Equal(t, models.IncidentTypeTabAbuse, body.Incidents[0].Type)
}

func TestUnknownSessionEventsSkippedOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.post(t, "/api/v1/ingest/events", []map[string]interface{}{
		eventPayload(uuid.New(), 1756500000000, "TAB_SWITCH", "k1"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 0, result.Created)
	assert.Empty(t, result.IDs)
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
