// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package ingest implements idempotent batch ingestion of events and
// snapshots: duplicate detection by idempotency and composite keys, insert
// race recovery, synchronous rule evaluation for created events, and
// best-effort classification job publishing for created snapshots.
package ingest
