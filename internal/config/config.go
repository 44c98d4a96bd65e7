// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

package config

import (
	"time"
)

// Config is the root configuration for the ProctorLens server.
// Values are loaded from defaults, an optional YAML file, and environment
// variables, in that order of increasing precedence.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Counter  CounterConfig  `koanf:"counter"`
	NATS     NATSConfig     `koanf:"nats"`
	Rules    RulesConfig    `koanf:"rules"`
	Worker   WorkerConfig   `koanf:"worker"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	MaxBatchSize    int           `koanf:"max_batch_size"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use runtime.NumCPU()
}

// CounterConfig holds sliding-window counter store settings.
// Backend "badger" persists counters across restarts; "memory" is for tests
// and single-run development.
type CounterConfig struct {
	Backend    string        `koanf:"backend"`
	Path       string        `koanf:"path"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// NATSConfig holds broker settings for the classification job queue.
type NATSConfig struct {
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	StoreDir       string        `koanf:"store_dir"`
	MaxMemory      int64         `koanf:"max_memory"`
	MaxStore       int64         `koanf:"max_store"`
	StreamName     string        `koanf:"stream_name"`
	Topic          string        `koanf:"topic"`
	DurableName    string        `koanf:"durable_name"`
	QueueGroup     string        `koanf:"queue_group"`
	AckWaitTimeout time.Duration `koanf:"ack_wait_timeout"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// RulesConfig holds sliding-window rule thresholds. A zero value for any
// field falls back to the built-in default for that rule.
type RulesConfig struct {
	TabAbuseThreshold     int `koanf:"tab_abuse_threshold"`
	TabAbuseWindowMinutes int `koanf:"tab_abuse_window_minutes"`
	PasteThreshold        int `koanf:"paste_threshold"`
	PasteWindowMinutes    int `koanf:"paste_window_minutes"`
}

// WorkerConfig holds classification worker settings.
type WorkerConfig struct {
	Concurrency int           `koanf:"concurrency"`
	Seed        int64         `koanf:"seed"` // 0 = time-seeded
	JobTimeout  time.Duration `koanf:"job_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8085,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimitReqs:   300,
			RateLimitWindow: 1 * time.Minute,
			CORSOrigins:     []string{"*"},
			MaxBatchSize:    500,
		},
		Database: DatabaseConfig{
			Path:      "/data/proctorlens.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Counter: CounterConfig{
			Backend:    "badger",
			Path:       "/data/counters",
			GCInterval: 5 * time.Minute,
		},
		NATS: NATSConfig{
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/nats/jetstream",
			MaxMemory:      1 << 30,  // 1GB
			MaxStore:       10 << 30, // 10GB
			StreamName:     "SNAPSHOT_JOBS",
			Topic:          "snapshots.process",
			DurableName:    "snapshot-classifier",
			QueueGroup:     "classifiers",
			AckWaitTimeout: 30 * time.Second,
			ConnectTimeout: 10 * time.Second,
		},
		Rules: RulesConfig{
			TabAbuseThreshold:     10,
			TabAbuseWindowMinutes: 5,
			PasteThreshold:        3,
			PasteWindowMinutes:    2,
		},
		Worker: WorkerConfig{
			Concurrency: 4,
			Seed:        0,
			JobTimeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
