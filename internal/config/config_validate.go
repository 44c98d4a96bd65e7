// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration values for consistency. It is called by Load
// after all layers are merged.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBatchSize < 1 {
		errs = append(errs, fmt.Sprintf("server.max_batch_size must be positive, got %d", c.Server.MaxBatchSize))
	}
	if c.Server.Timeout <= 0 {
		errs = append(errs, "server.timeout must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path must not be empty")
	}

	switch c.Counter.Backend {
	case "badger", "memory":
	default:
		errs = append(errs, fmt.Sprintf("counter.backend must be badger or memory, got %q", c.Counter.Backend))
	}
	if c.Counter.Backend == "badger" && c.Counter.Path == "" {
		errs = append(errs, "counter.path must not be empty when counter.backend is badger")
	}

	if c.NATS.URL == "" {
		errs = append(errs, "nats.url must not be empty")
	}
	if c.NATS.StreamName == "" {
		errs = append(errs, "nats.stream_name must not be empty")
	}
	if c.NATS.Topic == "" {
		errs = append(errs, "nats.topic must not be empty")
	}

	if c.Rules.TabAbuseThreshold < 1 {
		errs = append(errs, fmt.Sprintf("rules.tab_abuse_threshold must be positive, got %d", c.Rules.TabAbuseThreshold))
	}
	if c.Rules.TabAbuseWindowMinutes < 1 {
		errs = append(errs, fmt.Sprintf("rules.tab_abuse_window_minutes must be positive, got %d", c.Rules.TabAbuseWindowMinutes))
	}
	if c.Rules.PasteThreshold < 1 {
		errs = append(errs, fmt.Sprintf("rules.paste_threshold must be positive, got %d", c.Rules.PasteThreshold))
	}
	if c.Rules.PasteWindowMinutes < 1 {
		errs = append(errs, fmt.Sprintf("rules.paste_window_minutes must be positive, got %d", c.Rules.PasteWindowMinutes))
	}

	if c.Worker.Concurrency < 1 {
		errs = append(errs, fmt.Sprintf("worker.concurrency must be positive, got %d", c.Worker.Concurrency))
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
