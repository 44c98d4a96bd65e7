// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package api provides the HTTP surface: batch ingest endpoints, session
// lifecycle, incident listing, health, and Prometheus metrics, routed with
// Chi. Handlers validate payload shape and delegate to the ingest service;
// they carry no domain logic of their own.
package api
