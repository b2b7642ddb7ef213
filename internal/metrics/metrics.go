// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

// Package metrics provides Prometheus instrumentation for the
// registration pipeline and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Registration Pipeline Metrics
	RegistrationsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registrations_accepted_total",
			Help: "Total number of registration requests accepted for processing",
		},
	)

	RegistrationTaskOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_task_outcomes_total",
			Help: "Total registration task executions by persisted status",
		},
		[]string{"status"},
	)

	RegistrationEnqueueErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registration_enqueue_errors_total",
			Help: "Total failures publishing registration requests to the queue",
		},
	)

	RegistrationsPoisoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registrations_poisoned_total",
			Help: "Total registration messages routed to the poison topic",
		},
	)

	// Audit Sink Metrics
	AuditAppendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_append_failures_total",
			Help: "Total failed audit event appends",
		},
	)
)

// RecordAPIRequest records one API request with its latency.
func RecordAPIRequest(method, path string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTaskOutcome records the persisted status of a task execution.
func RecordTaskOutcome(status string) {
	RegistrationTaskOutcomes.WithLabelValues(status).Inc()
}
