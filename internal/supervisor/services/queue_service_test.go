// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type mockQueueComponents struct {
	startErr      error
	startCalls    atomic.Int32
	shutdownCalls atomic.Int32
	running       atomic.Bool
}

func (m *mockQueueComponents) Start(_ context.Context) error {
	m.startCalls.Add(1)
	if m.startErr != nil {
		return m.startErr
	}
	m.running.Store(true)
	return nil
}

func (m *mockQueueComponents) Shutdown(_ context.Context) {
	m.shutdownCalls.Add(1)
	m.running.Store(false)
}

func (m *mockQueueComponents) IsRunning() bool {
	return m.running.Load()
}

func TestQueueComponentsServiceLifecycle(t *testing.T) {
	components := &mockQueueComponents{}
	svc := NewQueueComponentsService(components)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Serve(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	if !components.IsRunning() {
		t.Error("components not running after Serve started")
	}

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop in time")
	}

	if components.shutdownCalls.Load() != 1 {
		t.Error("Shutdown was not called exactly once")
	}
	if components.IsRunning() {
		t.Error("components still running after shutdown")
	}
}

func TestQueueComponentsServiceStartFailure(t *testing.T) {
	components := &mockQueueComponents{startErr: errors.New("stream unavailable")}
	svc := NewQueueComponentsService(components)

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("expected error from failed start")
	}
	if !errors.Is(err, components.startErr) {
		t.Errorf("Serve returned %v, want wrapped start error", err)
	}
	if components.shutdownCalls.Load() != 0 {
		t.Error("Shutdown should not be called after failed start")
	}
}

func TestQueueComponentsServiceCustomTimeout(t *testing.T) {
	svc := NewQueueComponentsServiceWithTimeout(&mockQueueComponents{}, 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want 10s default", svc.shutdownTimeout)
	}

	svc = NewQueueComponentsServiceWithTimeout(&mockQueueComponents{}, 3*time.Second)
	if svc.shutdownTimeout != 3*time.Second {
		t.Errorf("shutdownTimeout = %v, want 3s", svc.shutdownTimeout)
	}
}

func TestQueueComponentsServiceString(t *testing.T) {
	svc := NewQueueComponentsService(&mockQueueComponents{})
	if svc.String() != "queue-components" {
		t.Errorf("String() = %q", svc.String())
	}
}
