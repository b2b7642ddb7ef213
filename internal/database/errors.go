// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
)

// Error kinds form a closed classification of store failures. They are
// the only vocabulary that leaves this package in audit records: raw
// driver error text is logged but never persisted.
const (
	// KindTimeout: the operation exceeded its deadline or was cancelled.
	KindTimeout = "timeout"

	// KindUnavailable: the connection to the store is down.
	KindUnavailable = "unavailable"

	// KindConstraint: a schema constraint rejected the write.
	KindConstraint = "constraint"

	// KindStorage: any other store failure.
	KindStorage = "storage"
)

// Classify maps a store error onto the closed kind vocabulary.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return KindTimeout
	case isConnectionError(err):
		return KindUnavailable
	case isConstraintViolation(err):
		return KindConstraint
	default:
		return KindStorage
	}
}

// isConnectionError checks whether an error indicates a dead or
// unreachable connection rather than a query problem.
func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "database is closed") ||
		strings.Contains(errStr, "connection reset")
}

// isConstraintViolation checks for DuckDB constraint errors
// (unique, primary key, not-null, check).
func isConstraintViolation(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "constraint") ||
		strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "unique")
}

// isUniqueViolation checks specifically for unique or duplicate-key
// errors. Other constraint failures (not-null, check) are real write
// errors, not the already-exists outcome.
func isUniqueViolation(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "unique")
}
