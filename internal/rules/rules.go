// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package rules

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/proctorlens/proctorlens/internal/config"
	"github.com/proctorlens/proctorlens/internal/models"
)

// Rule is one parameterized sliding-window rule. All rules share the same
// state machine; only the event type, window, threshold, and score curve
// differ.
//
// Severity is min(1.0, (count-threshold)/ScoreDivisor + ScoreBase), rounded
// to two decimal places, so a count of threshold+ScoreDivisor saturates at
// maximum severity.
type Rule struct {
	Name          string
	EventType     models.EventType
	IncidentType  models.IncidentType
	WindowMinutes int
	Threshold     int64
	ScoreBase     float64
	ScoreDivisor  float64
	ReasonFormat  string // fmt verb receives the observed count
}

// DefaultRules builds the rule set from configuration. Zero config values
// fall back to the built-in thresholds.
func DefaultRules(cfg config.RulesConfig) []Rule {
	tabThreshold := int64(cfg.TabAbuseThreshold)
	if tabThreshold < 1 {
		tabThreshold = 10
	}
	tabWindow := cfg.TabAbuseWindowMinutes
	if tabWindow < 1 {
		tabWindow = 5
	}
	pasteThreshold := int64(cfg.PasteThreshold)
	if pasteThreshold < 1 {
		pasteThreshold = 3
	}
	pasteWindow := cfg.PasteWindowMinutes
	if pasteWindow < 1 {
		pasteWindow = 2
	}

	return []Rule{
		{
			Name:          "tab_abuse",
			EventType:     models.EventTypeTabSwitch,
			IncidentType:  models.IncidentTypeTabAbuse,
			WindowMinutes: tabWindow,
			Threshold:     tabThreshold,
			ScoreBase:     0.5,
			ScoreDivisor:  float64(tabThreshold),
			ReasonFormat:  "Excessive tab switching: %d switches within the window",
		},
		{
			Name:          "paste",
			EventType:     models.EventTypePaste,
			IncidentType:  models.IncidentTypePaste,
			WindowMinutes: pasteWindow,
			Threshold:     pasteThreshold,
			ScoreBase:     0.6,
			ScoreDivisor:  float64(pasteThreshold),
			ReasonFormat:  "Excessive paste activity: %d pastes within the window",
		},
	}
}

// counterKey is the per-minute-bucket counter key for a rule.
func (r Rule) counterKey(sessionID uuid.UUID, bucket int64) string {
	return fmt.Sprintf("session:%s:%s:%d", sessionID, r.Name, bucket)
}

// markerKey is the once-per-bucket incident marker key for a rule.
func (r Rule) markerKey(sessionID uuid.UUID, bucket int64) string {
	return fmt.Sprintf("session:%s:%s:incident:%d", sessionID, r.Name, bucket)
}
