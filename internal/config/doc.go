// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package config loads layered configuration via Koanf v2: struct defaults,
// an optional YAML file, and PL_-prefixed environment variables.
package config
