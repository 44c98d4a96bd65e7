// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package validation wraps go-playground/validator with a singleton instance,
// a json_payload custom validator, and API-compatible error translation.
package validation
