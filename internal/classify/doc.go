// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package classify implements the asynchronous snapshot classification
// worker: it consumes jobs from the broker, counts faces, records the result
// on the snapshot, and raises NO_FACE and MULTI_FACE incidents idempotently.
package classify
