// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package database provides DuckDB-backed persistence for sessions, events,
// snapshots, and incidents. Uniqueness invariants are enforced by schema
// constraints; violations surface as ErrDuplicateKey so callers can resolve
// insert races without application-level locking.
package database
