// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package eventprocessor provides the durable classification job pipeline:
// a Watermill NATS JetStream publisher and subscriber, the stream
// initializer, the job wire format, and an optional embedded NATS server.
//
// Delivery is at least once. The publisher sets the snapshot ID as the
// Nats-Msg-Id so retried publishes deduplicate inside the stream's duplicate
// window; consumers must still be idempotent for redeliveries outside it.
package eventprocessor
