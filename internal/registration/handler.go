// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package registration

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/peyksaz/landing-backend/internal/logging"
	"github.com/peyksaz/landing-backend/internal/metrics"
	"github.com/peyksaz/landing-backend/internal/models"
	"github.com/peyksaz/landing-backend/internal/queue"
)

// Consumer handler names for the router.
const (
	handlerName       = "registration-task"
	poisonHandlerName = "registration-poison-alert"
)

// RegisterHandlers wires the registration task and the poison topic
// alert into the router. The subscriber must be bound to the
// registration stream.
func RegisterHandlers(router *queue.Router, subscriber message.Subscriber, task *Task) {
	router.AddConsumerHandler(handlerName, queue.TopicRegistrationRequested, subscriber,
		HandleMessage(task))
}

// HandleMessage returns the router handler executing the task for each
// delivered message. An error return nacks the message, which triggers
// the router's bounded retry and eventually the poison topic.
func HandleMessage(task *Task) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		req := &models.RegistrationRequest{}
		if err := json.Unmarshal(msg.Payload, req); err != nil {
			// Malformed payloads can never succeed; fail the attempt so
			// the budget expires and the message lands in the poison
			// topic instead of looping forever.
			return fmt.Errorf("unmarshal registration request: %w", err)
		}

		ctx := msg.Context()
		if req.RequestID != "" {
			ctx = logging.ContextWithRequestID(ctx, req.RequestID)
		}

		if _, err := task.Execute(ctx, req); err != nil {
			return err
		}
		return nil
	}
}

// RegisterPoisonAlert subscribes to the poison topic and logs every
// poisoned message at error level so operators notice dropped
// registrations. The message is acked: the poison stream itself is the
// durable record.
func RegisterPoisonAlert(router *queue.Router, subscriber message.Subscriber, poisonTopic string) {
	router.AddConsumerHandler(poisonHandlerName, poisonTopic, subscriber,
		func(msg *message.Message) error {
			metrics.RegistrationsPoisoned.Inc()

			req := &models.RegistrationRequest{}
			phone := ""
			if err := json.Unmarshal(msg.Payload, req); err == nil {
				phone = req.Phone
			}

			logging.Error().
				Str("message_uuid", msg.UUID).
				Str("phone", phone).
				Str("reason", msg.Metadata.Get("reason_poisoned")).
				Msg("Registration message poisoned after exhausting delivery budget")
			return nil
		})
}
