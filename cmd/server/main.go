// ProctorLens - Exam Session Monitoring and Abuse Detection
// Copyright 2026 ProctorLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/proctorlens/proctorlens

// Package main is the entry point for the ProctorLens server.
//
// ProctorLens ingests behavioral events and webcam snapshot metadata from
// exam sessions, evaluates sliding-window abuse rules (tab switching, paste
// bursts), and classifies snapshots asynchronously for NO_FACE and
// MULTI_FACE incidents.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (defaults, YAML file, PL_* env vars)
//  2. Database: DuckDB for sessions, events, snapshots, and incidents
//  3. Counter store: BadgerDB (or in-memory) sliding-window counters with TTL
//  4. NATS: embedded JetStream server (optional) plus the SNAPSHOT_JOBS stream
//  5. Messaging: Watermill publisher and durable queue-group subscriber
//  6. Core: rule engine, ingest service, classification worker
//  7. Supervision: suture tree running the HTTP server, workers, and counter GC
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables with the PL_ prefix (PL_HTTP_PORT, PL_DUCKDB_PATH, ...)
//   - Config file (PL_CONFIG_PATH or config.yaml in a default location)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the HTTP
// server drains in-flight requests, the worker finishes the job in hand,
// and the stores are closed in reverse initialization order.
//
// # Example Usage
//
// Single-node deployment with embedded NATS:
//
//	export PL_DUCKDB_PATH=/data/proctorlens.duckdb
//	export PL_COUNTER_PATH=/data/counters
//	export PL_NATS_STORE_DIR=/data/nats/jetstream
//	./proctorlens
//
// Against an external NATS cluster:
//
//	export PL_NATS_EMBEDDED=false
//	export PL_NATS_URL=nats://nats.internal:4222
//	./proctorlens
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/proctorlens/proctorlens/internal/api"
	"github.com/proctorlens/proctorlens/internal/classify"
	"github.com/proctorlens/proctorlens/internal/config"
	"github.com/proctorlens/proctorlens/internal/counter"
	"github.com/proctorlens/proctorlens/internal/database"
	"github.com/proctorlens/proctorlens/internal/eventprocessor"
	"github.com/proctorlens/proctorlens/internal/ingest"
	"github.com/proctorlens/proctorlens/internal/logging"
	"github.com/proctorlens/proctorlens/internal/rules"
	"github.com/proctorlens/proctorlens/internal/supervisor"
	"github.com/proctorlens/proctorlens/internal/supervisor/services"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("Invalid configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("counter_backend", cfg.Counter.Backend).
		Bool("nats_embedded", cfg.NATS.EmbeddedServer).
		Msg("Starting ProctorLens")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	// Counter store backs the sliding-window rules. Badger persists counters
	// across restarts; memory is for development.
	var counterStore counter.Store
	var badgerStore *counter.BadgerStore
	switch cfg.Counter.Backend {
	case "memory":
		counterStore = counter.NewMemoryStore()
	default:
		badgerStore, err = counter.NewBadgerStore(cfg.Counter.Path)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open counter store")
		}
		counterStore = badgerStore
	}
	defer func() {
		if err := counterStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing counter store")
		}
	}()

	// Embedded NATS gives single-node deployments a self-contained JetStream
	// instance. When disabled, cfg.NATS.URL must point at an external server.
	if cfg.NATS.EmbeddedServer {
		serverCfg := eventprocessor.NewServerConfig(&cfg.NATS)
		embedded, err := eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
		}
		defer func() {
			if err := embedded.Shutdown(context.Background()); err != nil {
				logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
			}
		}()
		cfg.NATS.URL = embedded.ClientURL()
		logging.Info().Str("url", cfg.NATS.URL).Msg("Embedded NATS server started")
	}

	// The stream must exist before publisher and subscriber start; both are
	// configured with AutoProvision disabled.
	nc, err := natsgo.Connect(cfg.NATS.URL,
		natsgo.Timeout(cfg.NATS.ConnectTimeout),
		natsgo.RetryOnFailedConnect(true),
	)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create JetStream context")
	}
	streamCfg := eventprocessor.NewStreamConfig(&cfg.NATS)
	streamInit, err := eventprocessor.NewStreamInitializer(js, &streamCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create stream initializer")
	}
	if _, err := streamInit.EnsureStream(context.Background()); err != nil {
		logging.Fatal().Err(err).Msg("Failed to ensure job stream")
	}
	logging.Info().Str("stream", cfg.NATS.StreamName).Msg("Job stream ready")

	wmLogger := logging.NewWatermillGlobalAdapter()

	publisher, err := eventprocessor.NewPublisher(eventprocessor.NewPublisherConfig(&cfg.NATS), wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create job publisher")
	}
	publisher.SetCircuitBreaker(eventprocessor.NewPublishBreaker("snapshot-publish"))
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
	}()

	subCfg := eventprocessor.NewSubscriberConfig(&cfg.NATS)
	subscriber, err := eventprocessor.NewSubscriber(&subCfg, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create job subscriber")
	}
	defer func() {
		if err := subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing subscriber")
		}
	}()

	engine := rules.NewEngine(counterStore, db, rules.DefaultRules(cfg.Rules))
	ingestSvc := ingest.NewService(db, engine, publisher, cfg.NATS.Topic)

	classifier := classify.NewStubClassifier(cfg.Worker.Seed)
	worker := classify.NewWorker(db, classifier, cfg.Worker.JobTimeout)
	jobHandler := subscriber.NewMessageHandler(cfg.NATS.Topic).Handle(worker.Handler())

	handler := api.NewHandler(db, ingestSvc, cfg.Server.MaxBatchSize)
	router := api.NewRouter(handler, &cfg.Server)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))
	tree.AddWorkerService(services.NewWorkerService(jobHandler, cfg.Worker.Concurrency))
	if badgerStore != nil {
		tree.AddWorkerService(services.NewCounterGCService(badgerStore, cfg.Counter.GCInterval))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", httpServer.Addr).
		Int("worker_concurrency", cfg.Worker.Concurrency).
		Msg("Supervisor tree starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("Shutdown complete")
}
