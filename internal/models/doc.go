// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package models defines the core domain entities: sessions, behavioral
// events, media snapshots, and incidents, together with their enumerations
// and the ingest accounting DTO.
package models
