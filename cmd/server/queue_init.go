// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/peyksaz/landing-backend/internal/auditlog"
	"github.com/peyksaz/landing-backend/internal/config"
	"github.com/peyksaz/landing-backend/internal/database"
	"github.com/peyksaz/landing-backend/internal/logging"
	"github.com/peyksaz/landing-backend/internal/queue"
	"github.com/peyksaz/landing-backend/internal/registration"
)

// QueueComponents holds the registration queue component set for
// lifecycle management: the embedded NATS server (if configured), the
// JetStream stream, the publisher feeding the HTTP dispatcher, and
// the Watermill router running the worker and poison alert handlers.
type QueueComponents struct {
	server           *queue.EmbeddedServer
	natsConn         *natsgo.Conn
	streams          *queue.StreamManager
	publisher        *queue.Publisher
	workerSubscriber *queue.Subscriber
	poisonSubscriber *queue.Subscriber
	router           *queue.Router
	dispatcher       *registration.Dispatcher

	cancelRouter context.CancelFunc
	routerDone   chan struct{}

	mu      sync.Mutex
	running bool
}

// InitQueue builds the full registration pipeline: broker, stream,
// publisher, subscribers, router, and handlers. The router is not
// started here; Start does that under supervision.
func InitQueue(cfg *config.Config, db *database.DB, audit auditlog.Sink) (*QueueComponents, error) {
	logging.Info().Msg("Initializing registration queue...")

	components := &QueueComponents{}
	wmLogger := queue.NewLoggerAdapter()

	var natsURL string
	if cfg.NATS.EmbeddedServer {
		serverCfg := queue.DefaultServerConfig()
		serverCfg.StoreDir = cfg.NATS.StoreDir
		if cfg.NATS.MaxMemory > 0 {
			serverCfg.JetStreamMaxMem = cfg.NATS.MaxMemory
		}
		if cfg.NATS.MaxStore > 0 {
			serverCfg.JetStreamMaxStore = cfg.NATS.MaxStore
		}

		server, err := queue.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		components.server = server
		natsURL = server.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	} else {
		natsURL = cfg.NATS.URL
		logging.Info().Str("url", natsURL).Msg("Using external NATS server")
	}

	nc, err := natsgo.Connect(natsURL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	components.natsConn = nc

	streamCfg := queue.DefaultStreamConfig()
	streams, err := queue.NewStreamManager(nc, &streamCfg)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create stream manager: %w", err)
	}
	components.streams = streams

	stream, err := streams.EnsureStream(context.Background())
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("ensure registration stream: %w", err)
	}
	streamInfo := stream.CachedInfo()
	logging.Info().
		Str("name", streamInfo.Config.Name).
		Strs("subjects", streamInfo.Config.Subjects).
		Msg("JetStream stream ready")

	publisher, err := queue.NewPublisher(queue.DefaultPublisherConfig(natsURL), wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	publisher.SetCircuitBreaker(queue.NewPublishBreaker())
	components.publisher = publisher

	workerCfg := queue.DefaultSubscriberConfig(natsURL)
	if cfg.NATS.DurableName != "" {
		workerCfg.DurableName = cfg.NATS.DurableName
	}
	if cfg.NATS.QueueGroup != "" {
		workerCfg.QueueGroup = cfg.NATS.QueueGroup
	}
	workerSubscriber, err := queue.NewSubscriber(&workerCfg, wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create worker subscriber: %w", err)
	}
	components.workerSubscriber = workerSubscriber

	poisonCfg := queue.DefaultSubscriberConfig(natsURL)
	poisonCfg.DurableName = workerCfg.DurableName + "-poison"
	poisonCfg.QueueGroup = workerCfg.QueueGroup + "-poison"
	poisonCfg.SubscribersCount = 1
	poisonSubscriber, err := queue.NewSubscriber(&poisonCfg, wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create poison subscriber: %w", err)
	}
	components.poisonSubscriber = poisonSubscriber

	routerCfg := queue.DefaultRouterConfig()
	if cfg.NATS.MaxAttempts > 0 {
		routerCfg.MaxAttempts = cfg.NATS.MaxAttempts
	}
	if cfg.NATS.RetryInitialDelay > 0 {
		routerCfg.RetryInitialInterval = cfg.NATS.RetryInitialDelay
	}
	if cfg.NATS.PoisonTopic != "" {
		routerCfg.PoisonTopic = cfg.NATS.PoisonTopic
	}
	if cfg.NATS.RouterCloseTimeout > 0 {
		routerCfg.CloseTimeout = cfg.NATS.RouterCloseTimeout
	}

	router, err := queue.NewRouter(&routerCfg, publisher.WatermillPublisher(), wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create router: %w", err)
	}
	components.router = router
	logging.Info().
		Int("max_attempts", routerCfg.MaxAttempts).
		Str("poison_topic", routerCfg.PoisonTopic).
		Msg("Watermill router created")

	task := registration.NewTask(db, audit)
	registration.RegisterHandlers(router, workerSubscriber.WatermillSubscriber(), task)
	registration.RegisterPoisonAlert(router, poisonSubscriber.WatermillSubscriber(), routerCfg.PoisonTopic)

	components.dispatcher = registration.NewDispatcher(publisher)

	logging.Info().Msg("Registration queue initialized")
	return components, nil
}

// Dispatcher returns the publisher-backed dispatcher for the HTTP layer.
func (c *QueueComponents) Dispatcher() *registration.Dispatcher {
	if c == nil {
		return nil
	}
	return c.dispatcher
}

// Start runs the Watermill router and returns once it is processing
// messages. The router keeps running until Shutdown.
func (c *QueueComponents) Start(ctx context.Context) error {
	if c == nil || c.router == nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.cancelRouter = cancel
	c.routerDone = done
	c.running = true
	c.mu.Unlock()

	go func() {
		defer close(done)
		if err := c.router.Run(runCtx); err != nil {
			logging.Error().Err(err).Msg("Router stopped with error")
		}
	}()

	select {
	case <-c.router.Running():
		logging.Info().Msg("Registration worker running")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context canceled while starting router: %w", ctx.Err())
	}
}

// Shutdown stops all queue components. Order matters: router first so
// handlers drain, then subscribers, publisher, connection, and the
// embedded server last.
func (c *QueueComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}

	c.mu.Lock()
	cancel := c.cancelRouter
	done := c.routerDone
	c.cancelRouter = nil
	c.routerDone = nil
	c.running = false
	c.mu.Unlock()

	if c.router != nil {
		if err := c.router.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing router")
		}
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			logging.Warn().Msg("Timed out waiting for router to stop")
		}
	}

	if c.workerSubscriber != nil {
		if err := c.workerSubscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing worker subscriber")
		}
	}
	if c.poisonSubscriber != nil {
		if err := c.poisonSubscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing poison subscriber")
		}
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
	}
	if c.natsConn != nil {
		c.natsConn.Close()
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
	}

	logging.Info().Msg("Registration queue shut down")
}

// IsRunning reports whether the queue components are active.
func (c *QueueComponents) IsRunning() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
