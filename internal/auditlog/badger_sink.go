// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package auditlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/peyksaz/landing-backend/internal/logging"
)

// Audit event key prefix for namespacing in BadgerDB.
const badgerEventKeyPrefix = "audit:"

// BadgerSink implements Sink using BadgerDB. Events are persisted to
// disk with sync writes and survive service restarts.
type BadgerSink struct {
	db    *badger.DB
	owned bool
}

// NewBadgerSink creates a BadgerDB-backed audit sink at the given
// directory. The returned sink owns the database and must be closed.
func NewBadgerSink(path string) (*BadgerSink, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB internal logs
	// Audit events are small records; shrink the value log accordingly
	opts.ValueLogFileSize = 16 << 20 // 16MB (smaller than default 1GB)
	// Sync writes: an acknowledged Append must survive a crash, because
	// the registration task never re-runs after a successful append.
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for audit log: %w", err)
	}

	return &BadgerSink{db: db, owned: true}, nil
}

// NewBadgerSinkFromDB creates a sink on an existing BadgerDB
// connection. Closing the sink does not close the shared database.
func NewBadgerSinkFromDB(db *badger.DB) *BadgerSink {
	return &BadgerSink{db: db}
}

// Append persists one audit event. The key embeds the event timestamp
// so lexicographic iteration yields chronological order, plus a UUID
// so concurrent events in the same nanosecond never collide.
func (s *BadgerSink) Append(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("audit event cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	key := []byte(fmt.Sprintf("%s%020d:%s", badgerEventKeyPrefix, event.CreatedAt.UnixNano(), uuid.NewString()))

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}

	logging.Ctx(ctx).Debug().
		Str("phone", event.Phone).
		Str("pg_status", string(event.PgStatus)).
		Msg("Audit event appended")

	return nil
}

// Count returns the number of persisted audit events.
// Intended for tests and operational checks, not the hot path.
func (s *BadgerSink) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerEventKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return count, nil
}

// Events returns all persisted events in chronological order.
func (s *BadgerSink) Events() ([]*Event, error) {
	var events []*Event
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerEventKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var event Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			})
			if err != nil {
				return fmt.Errorf("decode audit event: %w", err)
			}
			events = append(events, &event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Close releases the underlying database if this sink owns it.
func (s *BadgerSink) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
