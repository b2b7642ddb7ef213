// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

// Package models defines the core data types shared between the API
// layer, the registration pipeline and the stores.
package models

import "time"

// Subscriber is a registered phone number.
// Rows are insert-only: the service never updates or deletes them, and
// the store's UNIQUE constraint on phone is the only duplicate guard.
type Subscriber struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}
