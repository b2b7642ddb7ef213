// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

func newTestPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	return pubSub
}

func runTestRouter(t *testing.T, r *Router) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("router run failed: %v", err)
		}
	}()
	select {
	case <-r.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start in time")
	}
	t.Cleanup(func() {
		cancel()
		_ = r.Close()
	})
	return cancel
}

func TestRouterDeliversMessages(t *testing.T) {
	pubSub := newTestPubSub(t)

	cfg := DefaultRouterConfig()
	cfg.RetryInitialInterval = time.Millisecond

	r, err := NewRouter(&cfg, pubSub, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	var processed atomic.Int32
	r.AddConsumerHandler("test-consumer", TopicRegistrationRequested, pubSub,
		func(msg *message.Message) error {
			processed.Add(1)
			return nil
		})

	runTestRouter(t, r)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"phone":"09123456789"}`))
	if err := pubSub.Publish(TopicRegistrationRequested, msg); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for processed.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("message was not processed in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if got := processed.Load(); got != 1 {
		t.Errorf("processed = %d, want 1", got)
	}
}

func TestRouterRetriesThenPoisons(t *testing.T) {
	pubSub := newTestPubSub(t)

	cfg := DefaultRouterConfig()
	cfg.MaxAttempts = 3
	cfg.RetryInitialInterval = time.Millisecond
	cfg.RetryMaxInterval = 5 * time.Millisecond

	r, err := NewRouter(&cfg, pubSub, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	poisoned, err := pubSub.Subscribe(context.Background(), cfg.PoisonTopic)
	if err != nil {
		t.Fatalf("subscribe to poison topic failed: %v", err)
	}

	var attempts atomic.Int32
	r.AddConsumerHandler("failing-consumer", TopicRegistrationRequested, pubSub,
		func(msg *message.Message) error {
			attempts.Add(1)
			return errors.New("audit sink unavailable")
		})

	runTestRouter(t, r)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"phone":"09123456789"}`))
	if err := pubSub.Publish(TopicRegistrationRequested, msg); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case poisonMsg := <-poisoned:
		poisonMsg.Ack()
		if reason := poisonMsg.Metadata.Get("reason_poisoned"); reason == "" {
			t.Error("poison message should carry the failure reason in metadata")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("message never reached the poison topic")
	}

	if got := attempts.Load(); got != 3 {
		t.Errorf("handler attempts = %d, want exactly 3 (delivery budget)", got)
	}
}

func TestRouterRecoversFromPanic(t *testing.T) {
	pubSub := newTestPubSub(t)

	cfg := DefaultRouterConfig()
	cfg.MaxAttempts = 2
	cfg.RetryInitialInterval = time.Millisecond

	r, err := NewRouter(&cfg, pubSub, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	poisoned, err := pubSub.Subscribe(context.Background(), cfg.PoisonTopic)
	if err != nil {
		t.Fatalf("subscribe to poison topic failed: %v", err)
	}

	r.AddConsumerHandler("panicking-consumer", TopicRegistrationRequested, pubSub,
		func(msg *message.Message) error {
			panic("boom")
		})

	runTestRouter(t, r)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{}`))
	if err := pubSub.Publish(TopicRegistrationRequested, msg); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	// A panicking handler must not crash the router; the message ends
	// up poisoned like any other permanent failure.
	select {
	case poisonMsg := <-poisoned:
		poisonMsg.Ack()
	case <-time.After(10 * time.Second):
		t.Fatal("panicking message never reached the poison topic")
	}
}

func TestNewRouterRejectsZeroAttempts(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.MaxAttempts = 0

	if _, err := NewRouter(&cfg, nil, watermill.NopLogger{}); err == nil {
		t.Error("NewRouter should reject a zero delivery budget")
	}
}
