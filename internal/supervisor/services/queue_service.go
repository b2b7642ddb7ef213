// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package services

import (
	"context"
	"fmt"
	"time"
)

// QueueComponentsRunner matches the registration queue component set
// assembled in cmd/server. It avoids importing the main package, which
// would be a circular dependency.
type QueueComponentsRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
}

// QueueComponentsService wraps the registration queue components as a
// supervised service. It adapts the Start/Shutdown lifecycle to
// suture's Serve pattern: Start, block on the context, Shutdown. A
// Start failure returns immediately so suture restarts the whole
// component set under its backoff policy.
//
// The component set covers the embedded NATS server (if configured),
// the JetStream stream and publisher, and the Watermill router running
// the registration task and poison alert handlers.
type QueueComponentsService struct {
	components      QueueComponentsRunner
	shutdownTimeout time.Duration
	name            string
}

// NewQueueComponentsService creates a queue components service wrapper.
func NewQueueComponentsService(components QueueComponentsRunner) *QueueComponentsService {
	return &QueueComponentsService{
		components:      components,
		shutdownTimeout: 10 * time.Second,
		name:            "queue-components",
	}
}

// NewQueueComponentsServiceWithTimeout creates the wrapper with a
// custom shutdown timeout.
func NewQueueComponentsServiceWithTimeout(components QueueComponentsRunner, shutdownTimeout time.Duration) *QueueComponentsService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &QueueComponentsService{
		components:      components,
		shutdownTimeout: shutdownTimeout,
		name:            "queue-components",
	}
}

// Serve implements suture.Service.
func (s *QueueComponentsService) Serve(ctx context.Context) error {
	if err := s.components.Start(ctx); err != nil {
		return fmt.Errorf("queue components start failed: %w", err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.components.Shutdown(shutdownCtx)

	return ctx.Err()
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *QueueComponentsService) String() string {
	return s.name
}
