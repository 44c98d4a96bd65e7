// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package supervisor builds the suture/v4 supervision tree that keeps the
// HTTP server, the classification worker, and the counter-store GC running.
// Crashed services are restarted with exponential backoff; lifecycle events
// are logged through sutureslog into the global zerolog logger.
package supervisor
