// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/peyksaz/landing-backend/internal/models"
)

// CreateSubscriber inserts a subscriber row for the given phone number.
// It returns created=true when a new row was inserted and created=false
// when the phone already existed. The duplicate case is not an error.
//
// The write is a single atomic upsert so two concurrent attempts for the
// same phone cannot both insert: exactly one observes created=true.
func (db *DB) CreateSubscriber(ctx context.Context, phone string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO subscribers (phone) VALUES (?) ON CONFLICT (phone) DO NOTHING`, phone)
	if err != nil {
		// A unique violation surfacing as an error instead of a no-op
		// conflict still means the phone exists. Other constraint
		// failures stay errors so they classify as such.
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert subscriber: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return rows == 1, nil
}

// GetSubscriberByPhone retrieves a subscriber by phone number.
// Returns nil, nil when no subscriber exists.
func (db *DB) GetSubscriberByPhone(ctx context.Context, phone string) (*models.Subscriber, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	sub := &models.Subscriber{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, phone, created_at FROM subscribers WHERE phone = ?`, phone).
		Scan(&sub.ID, &sub.Phone, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}
	return sub, nil
}

// CountSubscribers returns the total number of registered subscribers.
func (db *DB) CountSubscribers(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return count, nil
}
