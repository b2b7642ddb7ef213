// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package models

// RegistrationRequest is the unit of work handed from the API layer to
// the task queue. It is transient: serialized onto the queue, never
// persisted as-is. All metadata fields besides Phone and RequestID are
// optional and may be empty.
type RegistrationRequest struct {
	Phone     string `json:"phone"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
	RequestID string `json:"request_id"`
}
