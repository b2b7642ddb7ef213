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

// ErrMediaNotFound is returned when a referenced media asset does not exist.
var ErrMediaNotFound = errors.New("media asset not found")

// CreateMediaAsset inserts a media asset. When the asset is flagged as
// default, the insert and the demotion of every other default row run
// in one transaction, so at most one default exists at any point.
func (db *DB) CreateMediaAsset(ctx context.Context, asset *models.MediaAsset) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO media_assets (title, file_reference, is_default)
		 VALUES (?, ?, ?) RETURNING id, created_at`,
		asset.Title, asset.FileReference, asset.IsDefault).
		Scan(&asset.ID, &asset.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert media asset: %w", err)
	}

	if asset.IsDefault {
		// Demote all other rows, not just the previous default, so the
		// invariant self-heals even if earlier state was inconsistent.
		_, err = tx.ExecContext(ctx,
			`UPDATE media_assets SET is_default = false WHERE id != ? AND is_default = true`,
			asset.ID)
		if err != nil {
			return fmt.Errorf("failed to demote previous default media: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit media asset: %w", err)
	}
	return nil
}

// SetDefaultMedia promotes the given asset to be the default and demotes
// every other asset, atomically.
func (db *DB) SetDefaultMedia(ctx context.Context, id int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE media_assets SET is_default = true WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to promote media asset: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrMediaNotFound
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE media_assets SET is_default = false WHERE id != ? AND is_default = true`, id)
	if err != nil {
		return fmt.Errorf("failed to demote previous default media: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit default media change: %w", err)
	}
	return nil
}

// GetDefaultMedia returns the current default media asset, or nil, nil
// when no default is configured. No default is a valid steady state.
func (db *DB) GetDefaultMedia(ctx context.Context) (*models.MediaAsset, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	asset := &models.MediaAsset{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, file_reference, is_default, created_at
		 FROM media_assets WHERE is_default = true
		 ORDER BY created_at DESC, id DESC LIMIT 1`).
		Scan(&asset.ID, &asset.Title, &asset.FileReference, &asset.IsDefault, &asset.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default media: %w", err)
	}
	return asset, nil
}

// GetMediaAsset retrieves an asset by ID. Returns ErrMediaNotFound when
// it does not exist.
func (db *DB) GetMediaAsset(ctx context.Context, id int64) (*models.MediaAsset, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	asset := &models.MediaAsset{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, file_reference, is_default, created_at
		 FROM media_assets WHERE id = ?`, id).
		Scan(&asset.ID, &asset.Title, &asset.FileReference, &asset.IsDefault, &asset.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMediaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media asset: %w", err)
	}
	return asset, nil
}

// ListMediaAssets returns all media assets, newest first.
func (db *DB) ListMediaAssets(ctx context.Context) ([]*models.MediaAsset, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, file_reference, is_default, created_at
		 FROM media_assets ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list media assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assets []*models.MediaAsset
	for rows.Next() {
		asset := &models.MediaAsset{}
		if err := rows.Scan(&asset.ID, &asset.Title, &asset.FileReference, &asset.IsDefault, &asset.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate media assets: %w", err)
	}
	return assets, nil
}

// CountDefaultMedia returns how many assets carry the default flag.
// Used by tests asserting the single-default invariant.
func (db *DB) CountDefaultMedia(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media_assets WHERE is_default = true`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count default media: %w", err)
	}
	return count, nil
}
