// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package registration

import (
	"context"
	"errors"
	"testing"

	"github.com/peyksaz/landing-backend/internal/auditlog"
	"github.com/peyksaz/landing-backend/internal/models"
)

// fakeStore simulates the subscriber store with an in-memory phone set
// and optional failure injection.
type fakeStore struct {
	phones map[string]bool
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{phones: make(map[string]bool)}
}

func (s *fakeStore) CreateSubscriber(_ context.Context, phone string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.phones[phone] {
		return false, nil
	}
	s.phones[phone] = true
	return true, nil
}

// failingSink always rejects appends.
type failingSink struct {
	err error
}

func (s *failingSink) Append(context.Context, *auditlog.Event) error {
	return s.err
}

func testRequest() *models.RegistrationRequest {
	return &models.RegistrationRequest{
		Phone:     "09123456789",
		IP:        "203.0.113.7",
		UserAgent: "Mozilla/5.0",
		Referrer:  "https://example.com/landing",
		RequestID: "req-1",
	}
}

func TestTaskExecuteSuccess(t *testing.T) {
	store := newFakeStore()
	sink := auditlog.NewMemorySink()
	task := NewTask(store, sink)

	status, err := task.Execute(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if status != auditlog.StatusSuccess {
		t.Errorf("status = %q, want success", status)
	}

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(events))
	}
	if events[0].PgStatus != auditlog.StatusSuccess {
		t.Errorf("audit pg_status = %q, want success", events[0].PgStatus)
	}
	if events[0].Phone != "09123456789" {
		t.Errorf("audit phone = %q, want 09123456789", events[0].Phone)
	}
	if events[0].RequestID != "req-1" {
		t.Errorf("audit request_id = %q, want req-1", events[0].RequestID)
	}
}

func TestTaskExecuteDuplicate(t *testing.T) {
	store := newFakeStore()
	sink := auditlog.NewMemorySink()
	task := NewTask(store, sink)
	ctx := context.Background()

	if _, err := task.Execute(ctx, testRequest()); err != nil {
		t.Fatalf("first Execute failed: %v", err)
	}

	status, err := task.Execute(ctx, testRequest())
	if err != nil {
		t.Fatalf("second Execute failed: %v", err)
	}
	if status != auditlog.StatusDuplicate {
		t.Errorf("status = %q, want duplicate", status)
	}

	// One subscriber, two audit events: every attempt leaves a trace.
	if len(store.phones) != 1 {
		t.Errorf("subscribers = %d, want 1", len(store.phones))
	}
	events := sink.Events()
	if len(events) != 2 {
		t.Fatalf("audit events = %d, want 2", len(events))
	}
	if events[0].PgStatus != auditlog.StatusSuccess || events[1].PgStatus != auditlog.StatusDuplicate {
		t.Errorf("audit statuses = %q, %q; want success, duplicate", events[0].PgStatus, events[1].PgStatus)
	}
}

func TestTaskExecuteStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("dial: connection refused")
	sink := auditlog.NewMemorySink()
	task := NewTask(store, sink)

	status, err := task.Execute(context.Background(), testRequest())
	// Store failure is recorded, not retried: no error escapes.
	if err != nil {
		t.Fatalf("Execute should not fail on store error: %v", err)
	}
	if status != "error: unavailable" {
		t.Errorf("status = %q, want %q", status, "error: unavailable")
	}

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("audit events = %d, want 1 despite store failure", len(events))
	}
	if !events[0].PgStatus.IsError() {
		t.Errorf("audit pg_status = %q, want an error status", events[0].PgStatus)
	}
}

func TestTaskExecuteStoreFailureNeverLeaksDriverText(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("IO Error: could not write block 42 to file /data/landing.duckdb")
	sink := auditlog.NewMemorySink()
	task := NewTask(store, sink)

	status, err := task.Execute(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if status != "error: storage" {
		t.Errorf("status = %q, want %q (classified kind only)", status, "error: storage")
	}
}

func TestTaskExecuteAuditFailure(t *testing.T) {
	store := newFakeStore()
	sink := &failingSink{err: errors.New("badger: value log full")}
	task := NewTask(store, sink)

	_, err := task.Execute(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Execute should fail when the audit append fails")
	}
}

func TestTaskRetryAfterAuditFailureIsDuplicate(t *testing.T) {
	// When an attempt fails on the audit append after a successful
	// insert, the retried attempt records duplicate: the subscriber row
	// from the first attempt persists.
	store := newFakeStore()
	task := NewTask(store, &failingSink{err: errors.New("sink down")})
	ctx := context.Background()

	if _, err := task.Execute(ctx, testRequest()); err == nil {
		t.Fatal("first attempt should fail on audit append")
	}

	sink := auditlog.NewMemorySink()
	task = NewTask(store, sink)

	status, err := task.Execute(ctx, testRequest())
	if err != nil {
		t.Fatalf("retried Execute failed: %v", err)
	}
	if status != auditlog.StatusDuplicate {
		t.Errorf("retried status = %q, want duplicate", status)
	}
	if len(store.phones) != 1 {
		t.Errorf("subscribers = %d, want 1", len(store.phones))
	}
}
