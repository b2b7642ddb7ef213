// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package models

import (
	"mime"
	"path"
	"strings"
	"time"
)

// MediaClass is the coarse rendering classification of a media asset.
type MediaClass string

const (
	MediaClassImage   MediaClass = "image"
	MediaClassVideo   MediaClass = "video"
	MediaClassUnknown MediaClass = "unknown"
)

// MediaAsset is a landing-page media file managed by the admin surface.
// At most one asset is flagged default at any time; the database layer
// enforces that invariant on every write.
type MediaAsset struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	FileReference string    `json:"file"`
	IsDefault     bool      `json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
}

// mediaTypesByExt covers the landing-media extensions the platform
// mime table cannot be relied on for (mp4/webm are absent from Go's
// builtin table and /etc/mime.types is not guaranteed to exist).
var mediaTypesByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

// FileType returns the MIME type guessed from the file reference's
// extension, e.g. "image/jpeg" or "video/mp4". Returns "unknown" when
// the extension is missing or unrecognized.
func (a *MediaAsset) FileType() string {
	ref := a.FileReference
	// Locators may be URLs with query strings or fragments.
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}

	ext := strings.ToLower(path.Ext(ref))
	if ext == "" {
		return "unknown"
	}
	if mt, ok := mediaTypesByExt[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		// TypeByExtension may include parameters ("text/html; charset=utf-8").
		if i := strings.Index(mt, ";"); i >= 0 {
			mt = strings.TrimSpace(mt[:i])
		}
		return mt
	}
	return "unknown"
}

// Class maps the MIME type onto the rendering classification consumed
// by the landing page.
func (a *MediaAsset) Class() MediaClass {
	switch mt := a.FileType(); {
	case strings.HasPrefix(mt, "image/"):
		return MediaClassImage
	case strings.HasPrefix(mt, "video/"):
		return MediaClassVideo
	default:
		return MediaClassUnknown
	}
}

// IsImage reports whether the asset renders as an image.
func (a *MediaAsset) IsImage() bool {
	return a.Class() == MediaClassImage
}

// IsVideo reports whether the asset renders as a video.
func (a *MediaAsset) IsVideo() bool {
	return a.Class() == MediaClassVideo
}
