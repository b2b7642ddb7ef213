// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

// Package auditlog provides the append-only audit sink for registration
// attempts. Every attempt that reaches the registration task produces
// exactly one event here, whatever the subscriber upsert outcome was.
//
// The sink is write-only from this service's point of view: events are
// read by external observability tooling, never by the backend itself.
package auditlog

import (
	"context"
	"time"

	"github.com/peyksaz/landing-backend/internal/models"
)

// Status is the persisted outcome of the subscriber upsert step,
// recorded as pg_status on every audit event.
//
// The value set is closed: success, duplicate, or "error: <kind>"
// where kind comes from a fixed classification. Raw driver error text
// never reaches the persisted record.
type Status string

const (
	// StatusSuccess means a new subscriber row was inserted.
	StatusSuccess Status = "success"

	// StatusDuplicate means the phone already existed. This is a normal
	// outcome, not an error, and never triggers a retry.
	StatusDuplicate Status = "duplicate"

	errorStatusPrefix = "error: "
)

// ErrorStatus builds the pg_status value for a failed upsert from a
// classified error kind.
func ErrorStatus(kind string) Status {
	return Status(errorStatusPrefix + kind)
}

// IsError reports whether the status records a persistence failure.
func (s Status) IsError() bool {
	return len(s) >= len(errorStatusPrefix) && s[:len(errorStatusPrefix)] == errorStatusPrefix
}

// Event is one immutable audit record for a registration attempt.
type Event struct {
	Phone     string    `json:"phone"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	PgStatus  Status    `json:"pg_status"`
	CreatedAt time.Time `json:"created_at"`
	Referrer  string    `json:"referrer,omitempty"`
	RequestID string    `json:"request_id"`
}

// NewEvent builds an audit event for a registration attempt with the
// current UTC timestamp.
func NewEvent(req *models.RegistrationRequest, status Status) *Event {
	return &Event{
		Phone:     req.Phone,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		PgStatus:  status,
		CreatedAt: time.Now().UTC(),
		Referrer:  req.Referrer,
		RequestID: req.RequestID,
	}
}

// Sink is the interface for audit event persistence.
// Append must be synchronous: the registration task treats an Append
// error as a failure of the whole attempt so the queue can retry it.
type Sink interface {
	Append(ctx context.Context, event *Event) error
}
