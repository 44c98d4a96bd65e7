// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package services adapts long-running components to suture.Service so the
// supervisor tree can own their lifecycles: the HTTP server, the snapshot
// classification worker, and the counter-store garbage collector.
package services
