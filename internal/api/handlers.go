// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/proctorlens/proctorlens/internal/database"
	"github.com/proctorlens/proctorlens/internal/ingest"
	"github.com/proctorlens/proctorlens/internal/logging"
	"github.com/proctorlens/proctorlens/internal/models"
	"github.com/proctorlens/proctorlens/internal/validation"
)

// Handler holds the API's dependencies.
type Handler struct {
	db           *database.DB
	ingest       *ingest.Service
	maxBatchSize int
}

// NewHandler creates the API handler set.
func NewHandler(db *database.DB, svc *ingest.Service, maxBatchSize int) *Handler {
	if maxBatchSize < 1 {
		maxBatchSize = 500
	}
	return &Handler{db: db, ingest: svc, maxBatchSize: maxBatchSize}
}

// eventItemRequest is the wire shape of one event in an ingest batch.
type eventItemRequest struct {
	SessionID      string          `json:"session_id" validate:"required,uuid4"`
	Timestamp      int64           `json:"ts" validate:"required,gt=0"`
	EventType      string          `json:"event_type" validate:"required,oneof=TAB_SWITCH PASTE COPY FULLSCREEN_EXIT WINDOW_BLUR"`
	Details        json.RawMessage `json:"details,omitempty"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required,max=128"`
}

// snapshotItemRequest is the wire shape of one snapshot in an ingest batch.
type snapshotItemRequest struct {
	SessionID      string `json:"session_id" validate:"required,uuid4"`
	Timestamp      int64  `json:"ts" validate:"required,gt=0"`
	StorageKey     string `json:"storage_key" validate:"required,max=512"`
	FileSize       int64  `json:"file_size" validate:"gte=0"`
	MimeType       string `json:"mime_type" validate:"omitempty,max=64"`
	FaceCount      *int   `json:"face_count,omitempty" validate:"omitempty,gte=0"`
	IdempotencyKey string `json:"idempotency_key" validate:"required,max=128"`
}

type createSessionRequest struct {
	ExamID string `json:"exam_id" validate:"required,uuid4"`
	UserID string `json:"user_id" validate:"required,uuid4"`
}

// IngestEvents handles POST /api/v1/ingest/events.
func (h *Handler) IngestEvents(w http.ResponseWriter, r *http.Request) {
	var items []eventItemRequest
	if !h.decodeBatch(w, r, &items) {
		return
	}
	if len(items) > h.maxBatchSize {
		respondError(w, http.StatusBadRequest, "BATCH_TOO_LARGE",
			fmt.Sprintf("batch exceeds %d items", h.maxBatchSize), nil)
		return
	}

	batch := make([]ingest.EventItem, 0, len(items))
	for i, item := range items {
		if verr := validation.ValidateStruct(&item); verr != nil {
			apiErr := verr.ToAPIError()
			respondError(w, http.StatusBadRequest, apiErr.Code,
				fmt.Sprintf("item %d: %s", i, apiErr.Message), apiErr.Details)
			return
		}
		sessionID, _ := uuid.Parse(item.SessionID)
		batch = append(batch, ingest.EventItem{
			SessionID:      sessionID,
			Timestamp:      item.Timestamp,
			EventType:      models.EventType(item.EventType),
			Details:        item.Details,
			IdempotencyKey: item.IdempotencyKey,
		})
	}

	result, err := h.ingest.IngestEvents(r.Context(), batch)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidDetails) {
			respondError(w, http.StatusBadRequest, "INVALID_DETAILS", err.Error(), nil)
			return
		}
		logging.Error().Err(err).Msg("Event ingest failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "event ingest failed", nil)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// IngestSnapshots handles POST /api/v1/ingest/snapshots.
func (h *Handler) IngestSnapshots(w http.ResponseWriter, r *http.Request) {
	var items []snapshotItemRequest
	if !h.decodeBatch(w, r, &items) {
		return
	}
	if len(items) > h.maxBatchSize {
		respondError(w, http.StatusBadRequest, "BATCH_TOO_LARGE",
			fmt.Sprintf("batch exceeds %d items", h.maxBatchSize), nil)
		return
	}

	batch := make([]ingest.SnapshotItem, 0, len(items))
	for i, item := range items {
		if verr := validation.ValidateStruct(&item); verr != nil {
			apiErr := verr.ToAPIError()
			respondError(w, http.StatusBadRequest, apiErr.Code,
				fmt.Sprintf("item %d: %s", i, apiErr.Message), apiErr.Details)
			return
		}
		sessionID, _ := uuid.Parse(item.SessionID)
		batch = append(batch, ingest.SnapshotItem{
			SessionID:      sessionID,
			Timestamp:      item.Timestamp,
			StorageKey:     item.StorageKey,
			FileSize:       item.FileSize,
			MimeType:       item.MimeType,
			FaceCount:      item.FaceCount,
			IdempotencyKey: item.IdempotencyKey,
		})
	}

	result, err := h.ingest.IngestSnapshots(r.Context(), batch)
	if err != nil {
		logging.Error().Err(err).Msg("Snapshot ingest failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "snapshot ingest failed", nil)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// CreateSession handles POST /api/v1/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	examID, _ := uuid.Parse(req.ExamID)
	userID, _ := uuid.Parse(req.UserID)
	session := &models.Session{
		ID:        uuid.New(),
		ExamID:    examID,
		UserID:    userID,
		Status:    models.SessionStatusActive,
		StartedAt: time.Now().UTC(),
	}
	if err := h.db.InsertSession(r.Context(), session); err != nil {
		logging.Error().Err(err).Msg("Session creation failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "session creation failed", nil)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// GetSession handles GET /api/v1/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	session, err := h.db.GetSession(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("Session lookup failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "session lookup failed", nil)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// EndSession handles POST /api/v1/sessions/{id}/end.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	err := h.db.EndSession(r.Context(), id, time.Now().UTC())
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("Session end failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "session end failed", nil)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// ListIncidents handles GET /api/v1/sessions/{id}/incidents.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	incidents, err := h.db.ListIncidents(r.Context(), id, 0)
	if err != nil {
		logging.Error().Err(err).Msg("Incident listing failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "incident listing failed", nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"incidents": incidents,
		"count":     len(incidents),
	})
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "UNHEALTHY", "database unavailable", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBatch decodes a JSON array body, writing a 400 on failure.
func (h *Handler) decodeBatch(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be a JSON array", nil)
		return false
	}
	return true
}

// pathID parses the {id} path parameter, writing a 400 on failure.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}
