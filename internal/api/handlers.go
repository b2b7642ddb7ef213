// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/peyksaz/landing-backend/internal/database"
	"github.com/peyksaz/landing-backend/internal/logging"
	"github.com/peyksaz/landing-backend/internal/middleware"
	"github.com/peyksaz/landing-backend/internal/models"
	"github.com/peyksaz/landing-backend/internal/validation"
)

// Enqueuer hands a registration request to the durable queue. The
// HTTP handler never blocks on subscriber persistence.
type Enqueuer interface {
	Enqueue(ctx context.Context, req *models.RegistrationRequest) error
}

// MediaStore is the subset of the database the media handlers need.
type MediaStore interface {
	GetDefaultMedia(ctx context.Context) (*models.MediaAsset, error)
	GetMediaAsset(ctx context.Context, id int64) (*models.MediaAsset, error)
	CreateMediaAsset(ctx context.Context, asset *models.MediaAsset) error
	SetDefaultMedia(ctx context.Context, id int64) error
	ListMediaAssets(ctx context.Context) ([]*models.MediaAsset, error)
}

// Handler holds the dependencies of the HTTP API.
type Handler struct {
	enqueuer Enqueuer
	media    MediaStore
}

// NewHandler creates the HTTP API handler set.
func NewHandler(enqueuer Enqueuer, media MediaStore) *Handler {
	return &Handler{enqueuer: enqueuer, media: media}
}

// registerPayload is the request body for phone registration.
type registerPayload struct {
	Phone string `json:"phone" validate:"required,irmobile"`
}

// createMediaPayload is the request body for media asset creation.
type createMediaPayload struct {
	Title     string `json:"title" validate:"required,max=200"`
	File      string `json:"file" validate:"required,max=500"`
	IsDefault bool   `json:"is_default"`
}

// RegisterPhone accepts a phone number for registration. Validation
// happens inline; everything else is deferred to the queue worker, so
// the response is 202 regardless of eventual persistence outcome.
func (h *Handler) RegisterPhone(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if verr := validation.ValidateStruct(&payload); verr != nil {
		respondJSON(w, r, http.StatusBadRequest, validationResponse{
			Error:  "validation failed",
			Fields: verr.FieldDetails(),
		})
		return
	}

	req := &models.RegistrationRequest{
		Phone:     payload.Phone,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
		RequestID: middleware.GetRequestID(r.Context()),
	}

	if err := h.enqueuer.Enqueue(r.Context(), req); err != nil {
		logging.Ctx(r.Context()).Error().
			Err(err).
			Msg("Failed to enqueue registration request")
		respondError(w, r, http.StatusServiceUnavailable, "registration temporarily unavailable")
		return
	}

	// Responses carry subscriber phone numbers implicitly; keep them
	// out of shared caches.
	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, r, http.StatusAccepted, detailResponse{Detail: MsgRegistrationAccepted})
}

// LandingMedia returns the current default landing media asset.
// No default configured is a valid steady state and yields 204.
func (h *Handler) LandingMedia(w http.ResponseWriter, r *http.Request) {
	asset, err := h.media.GetDefaultMedia(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().
			Err(err).
			Msg("Failed to load default landing media")
		respondError(w, r, http.StatusInternalServerError, "failed to load landing media")
		return
	}
	if asset == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, r, http.StatusOK, newMediaResponse(asset))
}

// CreateMedia creates a media asset. When is_default is set the new
// asset becomes the single default atomically.
func (h *Handler) CreateMedia(w http.ResponseWriter, r *http.Request) {
	var payload createMediaPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if verr := validation.ValidateStruct(&payload); verr != nil {
		respondJSON(w, r, http.StatusBadRequest, validationResponse{
			Error:  "validation failed",
			Fields: verr.FieldDetails(),
		})
		return
	}

	asset := &models.MediaAsset{
		Title:         payload.Title,
		FileReference: payload.File,
		IsDefault:     payload.IsDefault,
	}
	if err := h.media.CreateMediaAsset(r.Context(), asset); err != nil {
		logging.Ctx(r.Context()).Error().
			Err(err).
			Str("title", payload.Title).
			Msg("Failed to create media asset")
		respondError(w, r, http.StatusInternalServerError, "failed to create media asset")
		return
	}

	respondJSON(w, r, http.StatusCreated, newMediaResponse(asset))
}

// SetDefaultMedia marks an existing asset as the default. All other
// defaults are demoted in the same transaction.
func (h *Handler) SetDefaultMedia(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		respondError(w, r, http.StatusBadRequest, "invalid media asset id")
		return
	}

	if err := h.media.SetDefaultMedia(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrMediaNotFound) {
			respondError(w, r, http.StatusNotFound, "media asset not found")
			return
		}
		logging.Ctx(r.Context()).Error().
			Err(err).
			Int64("media_id", id).
			Msg("Failed to set default media asset")
		respondError(w, r, http.StatusInternalServerError, "failed to set default media asset")
		return
	}

	asset, err := h.media.GetMediaAsset(r.Context(), id)
	if err != nil || asset == nil {
		// The update committed; report success even if the readback
		// failed.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, r, http.StatusOK, newMediaResponse(asset))
}

// ListMedia lists all media assets, newest first.
func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	assets, err := h.media.ListMediaAssets(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().
			Err(err).
			Msg("Failed to list media assets")
		respondError(w, r, http.StatusInternalServerError, "failed to list media assets")
		return
	}

	out := make([]mediaResponse, 0, len(assets))
	for _, asset := range assets {
		out = append(out, newMediaResponse(asset))
	}
	respondJSON(w, r, http.StatusOK, out)
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// clientIP extracts the caller's IP. RealIP middleware has already
// folded trusted forwarding headers into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
