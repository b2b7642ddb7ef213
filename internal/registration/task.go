// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

// Package registration implements the asynchronous phone registration
// pipeline: the HTTP layer enqueues accepted requests, a background
// worker upserts the subscriber and appends an audit event for every
// attempt.
package registration

import (
	"context"
	"fmt"

	"github.com/peyksaz/landing-backend/internal/auditlog"
	"github.com/peyksaz/landing-backend/internal/database"
	"github.com/peyksaz/landing-backend/internal/logging"
	"github.com/peyksaz/landing-backend/internal/metrics"
	"github.com/peyksaz/landing-backend/internal/models"
)

// SubscriberStore is the subset of the database layer the task needs.
type SubscriberStore interface {
	CreateSubscriber(ctx context.Context, phone string) (bool, error)
}

// Task processes one registration request end to end.
type Task struct {
	store SubscriberStore
	audit auditlog.Sink
}

// NewTask creates a registration task over the given store and audit sink.
func NewTask(store SubscriberStore, audit auditlog.Sink) *Task {
	return &Task{store: store, audit: audit}
}

// Execute upserts the subscriber and appends exactly one audit event
// for the attempt. The persisted status is determined solely by the
// upsert outcome:
//
//   - a new row inserted records "success"
//   - an existing phone records "duplicate"
//   - a store failure records "error: <kind>" from the closed error
//     classification, never raw driver text
//
// A store failure does NOT fail the attempt: the outcome is recorded
// and the message is acked, so the queue never retries it. Only an
// audit append failure returns an error, because without the audit
// record the attempt left no trace and must be retried.
func (t *Task) Execute(ctx context.Context, req *models.RegistrationRequest) (auditlog.Status, error) {
	created, err := t.store.CreateSubscriber(ctx, req.Phone)

	var status auditlog.Status
	switch {
	case err != nil:
		kind := database.Classify(err)
		status = auditlog.ErrorStatus(kind)
		logging.Ctx(ctx).Error().
			Err(err).
			Str("phone", req.Phone).
			Str("kind", kind).
			Msg("Subscriber upsert failed")
	case created:
		status = auditlog.StatusSuccess
	default:
		status = auditlog.StatusDuplicate
	}

	event := auditlog.NewEvent(req, status)
	if err := t.audit.Append(ctx, event); err != nil {
		metrics.AuditAppendFailures.Inc()
		return status, fmt.Errorf("append audit event: %w", err)
	}

	metrics.RecordTaskOutcome(string(status))
	logging.Ctx(ctx).Info().
		Str("phone", req.Phone).
		Str("pg_status", string(status)).
		Msg("Registration attempt recorded")

	return status, nil
}
