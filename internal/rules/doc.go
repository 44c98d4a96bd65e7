// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package rules implements the sliding-window rule engine. Each rule counts
// qualifying events per (session, rule, minute bucket) in the counter store
// and raises at most one incident per bucket via an atomic marker claim.
package rules
