// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package logging provides centralized zerolog-based logging for ProctorLens.
//
// It exposes a package-global structured logger configured once at startup:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("session_id", id).Msg("event accepted")
//
// Always terminate log chains with .Msg() or .Send(), and prefer structured
// fields over string formatting.
//
// The package also provides a Watermill LoggerAdapter so broker internals
// (publisher, subscriber, router) log through the same zerolog pipeline.
package logging
