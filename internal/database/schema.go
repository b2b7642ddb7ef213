// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables.
//
// All columns are defined in the initial CREATE TABLE statements so the
// schema has a single source of truth and startup runs no migrations.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS subscribers_id_seq`,
		`CREATE TABLE IF NOT EXISTS subscribers (
			id BIGINT PRIMARY KEY DEFAULT nextval('subscribers_id_seq'),
			phone VARCHAR NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
		`CREATE SEQUENCE IF NOT EXISTS media_assets_id_seq`,
		`CREATE TABLE IF NOT EXISTS media_assets (
			id BIGINT PRIMARY KEY DEFAULT nextval('media_assets_id_seq'),
			title VARCHAR NOT NULL,
			file_reference VARCHAR NOT NULL,
			is_default BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}
