// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/peyksaz/landing-backend/internal/logging"
	"github.com/peyksaz/landing-backend/internal/models"
)

// MsgRegistrationAccepted is the body detail returned once a phone
// number has been accepted onto the registration queue.
const MsgRegistrationAccepted = "شماره شما با موفقیت ثبت شد."

// detailResponse is the body for accepted registrations.
type detailResponse struct {
	Detail string `json:"detail"`
}

// errorResponse is the generic error body.
type errorResponse struct {
	Error string `json:"error"`
}

// validationResponse carries per-field validation failures.
type validationResponse struct {
	Error  string                   `json:"error"`
	Fields []map[string]interface{} `json:"fields"`
}

// mediaResponse is the wire shape of a media asset. FileType is
// derived from the file reference extension rather than stored.
type mediaResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	File      string `json:"file"`
	FileType  string `json:"file_type"`
	IsImage   bool   `json:"is_image"`
	IsVideo   bool   `json:"is_video"`
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at"`
}

func newMediaResponse(asset *models.MediaAsset) mediaResponse {
	return mediaResponse{
		ID:        asset.ID,
		Title:     asset.Title,
		File:      asset.FileReference,
		FileType:  asset.FileType(),
		IsImage:   asset.IsImage(),
		IsVideo:   asset.IsVideo(),
		IsDefault: asset.IsDefault,
		CreatedAt: asset.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Ctx(r.Context()).Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("Failed to encode JSON response")
	}
}

// respondError writes a JSON error body with the given status code.
func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respondJSON(w, r, status, errorResponse{Error: msg})
}
