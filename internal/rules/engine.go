// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package rules

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/proctorlens/proctorlens/internal/counter"
	"github.com/proctorlens/proctorlens/internal/database"
	"github.com/proctorlens/proctorlens/internal/logging"
	"github.com/proctorlens/proctorlens/internal/metrics"
	"github.com/proctorlens/proctorlens/internal/models"
)

// IncidentWriter persists incidents. Satisfied by *database.DB.
type IncidentWriter interface {
	InsertIncident(ctx context.Context, inc *models.Incident) error
}

// Engine evaluates sliding-window rules against ingested events.
//
// The window is approximated by fixed minute buckets: each qualifying event
// increments the counter at (session, rule, minuteBucket), and the counter
// expires after the rule's window plus one minute. An event landing on a
// bucket boundary can therefore see a slightly jumpy window; that boundary
// behavior is intentional and asserted by the tests.
type Engine struct {
	store counter.Store
	db    IncidentWriter
	rules []Rule
}

// NewEngine creates a rule engine over the given counter store and incident
// writer.
func NewEngine(store counter.Store, db IncidentWriter, rules []Rule) *Engine {
	return &Engine{store: store, db: db, rules: rules}
}

// Rules returns the registered rule definitions.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Evaluate runs every rule registered for the event's type.
//
// Counter store failures are logged and swallowed: a rule not evaluated this
// time must never fail the originating ingestion. Incident insert races
// resolve via the store's uniqueness constraint.
func (e *Engine) Evaluate(ctx context.Context, event *models.Event) {
	for _, rule := range e.rules {
		if rule.EventType != event.EventType {
			continue
		}
		e.evaluateRule(ctx, rule, event)
	}
}

func (e *Engine) evaluateRule(ctx context.Context, rule Rule, event *models.Event) {
	bucket := event.Timestamp / 1000 / 60
	ttl := time.Duration(rule.WindowMinutes+1) * time.Minute

	count, err := e.store.Increment(ctx, rule.counterKey(event.SessionID, bucket), ttl)
	if err != nil {
		metrics.RecordRuleEvaluation(rule.Name, "error")
		logging.Warn().
			Err(err).
			Str("rule", rule.Name).
			Str("session_id", event.SessionID.String()).
			Msg("Counter increment failed, rule not evaluated")
		return
	}

	if count <= rule.Threshold {
		metrics.RecordRuleEvaluation(rule.Name, "below_threshold")
		return
	}

	claimed, err := e.store.SetIfAbsent(ctx, rule.markerKey(event.SessionID, bucket), ttl)
	if err != nil {
		metrics.RecordRuleEvaluation(rule.Name, "error")
		logging.Warn().
			Err(err).
			Str("rule", rule.Name).
			Str("session_id", event.SessionID.String()).
			Msg("Incident marker claim failed, rule not evaluated")
		return
	}
	if !claimed {
		metrics.RecordRuleEvaluation(rule.Name, "already_raised")
		return
	}

	inc := &models.Incident{
		ID:        uuid.New(),
		SessionID: event.SessionID,
		Type:      rule.IncidentType,
		Timestamp: event.Timestamp,
		Score:     score(count, rule),
		Reason:    fmt.Sprintf(rule.ReasonFormat, count),
		Status:    models.IncidentStatusOpen,
	}

	if err := e.db.InsertIncident(ctx, inc); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			metrics.RecordRuleEvaluation(rule.Name, "already_raised")
			return
		}
		metrics.RecordRuleEvaluation(rule.Name, "error")
		logging.Error().
			Err(err).
			Str("rule", rule.Name).
			Str("session_id", event.SessionID.String()).
			Msg("Failed to persist rule incident")
		return
	}

	metrics.RecordRuleEvaluation(rule.Name, "incident_raised")
	metrics.RecordIncident(string(rule.IncidentType), "rule_engine")
	logging.Info().
		Str("rule", rule.Name).
		Str("session_id", event.SessionID.String()).
		Str("incident_id", inc.ID.String()).
		Int64("count", count).
		Float64("score", inc.Score).
		Msg("Incident raised")
}

// score computes the clamped, rounded severity for an over-threshold count.
func score(count int64, rule Rule) float64 {
	raw := float64(count-rule.Threshold)/rule.ScoreDivisor + rule.ScoreBase
	if raw > 1.0 {
		raw = 1.0
	}
	return math.Round(raw*100) / 100
}
