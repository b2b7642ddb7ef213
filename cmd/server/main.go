// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

// Package main is the entry point for the landing backend server.
//
// The backend powers a marketing landing page: visitors submit a phone
// number, the API validates it and hands it to a durable JetStream
// queue, and a background worker persists the subscriber in DuckDB and
// appends an audit event to BadgerDB. The landing page also fetches
// its display media through this service.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: load settings from config file and environment (Koanf v2)
//  2. Database: DuckDB with subscriber and media asset tables
//  3. Audit log: BadgerDB append-only sink
//  4. Queue: embedded NATS server, JetStream stream, publisher, worker router
//  5. HTTP server: Chi REST API
//  6. Supervisor tree: suture-managed lifecycle for queue and HTTP layers
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config.yaml, built-in
// defaults. See internal/config for the full key list.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP
// server stops accepting connections and drains in-flight requests,
// the worker router finishes the messages it holds, and the embedded
// NATS server stops last so nothing acked is lost.
//
// # Example Usage
//
// Development with defaults (embedded NATS, local data files):
//
//	export DUCKDB_PATH=./data/landing.duckdb
//	export AUDIT_LOG_PATH=./data/auditlog
//	export NATS_STORE_DIR=./data/nats
//	./landing-backend
//
// Production against an external NATS cluster:
//
//	export NATS_EMBEDDED_SERVER=false
//	export NATS_URL=nats://queue:4222
//	export CORS_ORIGINS=https://landing.example.com
//	./landing-backend
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peyksaz/landing-backend/internal/api"
	"github.com/peyksaz/landing-backend/internal/auditlog"
	"github.com/peyksaz/landing-backend/internal/config"
	"github.com/peyksaz/landing-backend/internal/database"
	"github.com/peyksaz/landing-backend/internal/logging"
	"github.com/peyksaz/landing-backend/internal/supervisor"
	"github.com/peyksaz/landing-backend/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("audit_path", cfg.AuditLog.Path).
		Bool("embedded_nats", cfg.NATS.EmbeddedServer).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	auditSink, err := auditlog.NewBadgerSink(cfg.AuditLog.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open audit log")
	}
	defer func() {
		if err := auditSink.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit log")
		}
	}()
	logging.Info().Str("path", cfg.AuditLog.Path).Msg("Audit log opened")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queueComponents, err := InitQueue(cfg, db, auditSink)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize registration queue")
	}

	handler := api.NewHandler(queueComponents.Dispatcher(), db)
	middlewareCfg := api.NewChiMiddlewareConfig(&cfg.Security)
	router := api.NewRouter(handler, api.NewChiMiddleware(middlewareCfg))

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED; use only for local testing")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Bridge zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddQueueService(services.NewQueueComponentsService(queueComponents))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
