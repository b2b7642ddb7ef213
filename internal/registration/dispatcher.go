// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package registration

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/peyksaz/landing-backend/internal/logging"
	"github.com/peyksaz/landing-backend/internal/metrics"
	"github.com/peyksaz/landing-backend/internal/models"
	"github.com/peyksaz/landing-backend/internal/queue"
)

// Publisher is the subset of the queue publisher the dispatcher needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
}

// Dispatcher serializes registration requests and hands them to the
// durable queue. It runs on the HTTP request path, so the only work it
// does is marshal and publish.
type Dispatcher struct {
	publisher Publisher
}

// NewDispatcher creates a dispatcher over the given publisher.
func NewDispatcher(publisher Publisher) *Dispatcher {
	return &Dispatcher{publisher: publisher}
}

// Enqueue publishes the request to the registration topic. The message
// UUID doubles as Nats-Msg-Id so accidental double-publishes
// deduplicate inside the JetStream duplicate window.
func (d *Dispatcher) Enqueue(ctx context.Context, req *models.RegistrationRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal registration request: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	if req.RequestID != "" {
		msg.Metadata.Set("request_id", req.RequestID)
	}

	if err := d.publisher.Publish(ctx, queue.TopicRegistrationRequested, msg); err != nil {
		metrics.RegistrationEnqueueErrors.Inc()
		return fmt.Errorf("publish registration request: %w", err)
	}

	metrics.RegistrationsAccepted.Inc()
	logging.Ctx(ctx).Debug().
		Str("phone", req.Phone).
		Str("message_uuid", msg.UUID).
		Msg("Registration request enqueued")

	return nil
}
