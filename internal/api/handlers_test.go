// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/peyksaz/landing-backend/internal/database"
	"github.com/peyksaz/landing-backend/internal/models"
)

type fakeEnqueuer struct {
	mu       sync.Mutex
	requests []*models.RegistrationRequest
	err      error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, req *models.RegistrationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.requests = append(f.requests, req)
	return nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeMediaStore struct {
	mu     sync.Mutex
	assets map[int64]*models.MediaAsset
	nextID int64
	err    error
}

func newFakeMediaStore() *fakeMediaStore {
	return &fakeMediaStore{assets: make(map[int64]*models.MediaAsset), nextID: 1}
}

func (f *fakeMediaStore) GetDefaultMedia(_ context.Context) (*models.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var newest *models.MediaAsset
	for _, a := range f.assets {
		if !a.IsDefault {
			continue
		}
		if newest == nil || a.ID > newest.ID {
			newest = a
		}
	}
	return newest, nil
}

func (f *fakeMediaStore) GetMediaAsset(_ context.Context, id int64) (*models.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assets[id], nil
}

func (f *fakeMediaStore) CreateMediaAsset(_ context.Context, asset *models.MediaAsset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	asset.ID = f.nextID
	asset.CreatedAt = time.Now().UTC()
	f.nextID++
	if asset.IsDefault {
		for _, a := range f.assets {
			a.IsDefault = false
		}
	}
	copied := *asset
	f.assets[copied.ID] = &copied
	return nil
}

func (f *fakeMediaStore) SetDefaultMedia(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.assets[id]
	if !ok {
		return database.ErrMediaNotFound
	}
	for _, a := range f.assets {
		a.IsDefault = false
	}
	target.IsDefault = true
	return nil
}

func (f *fakeMediaStore) ListMediaAssets(_ context.Context) ([]*models.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.MediaAsset, 0, len(f.assets))
	for _, a := range f.assets {
		out = append(out, a)
	}
	return out, nil
}

func newTestServer(t *testing.T, enq *fakeEnqueuer, media *fakeMediaStore) *httptest.Server {
	t.Helper()
	handler := NewHandler(enq, media)
	mw := NewChiMiddleware(DefaultChiMiddlewareConfig())
	srv := httptest.NewServer(NewRouter(handler, mw))
	t.Cleanup(srv.Close)
	return srv
}

func TestRegisterPhoneAccepted(t *testing.T) {
	enq := &fakeEnqueuer{}
	srv := newTestServer(t, enq, newFakeMediaStore())

	resp, err := http.Post(srv.URL+"/api/v1/register", "application/json",
		strings.NewReader(`{"phone":"09123456789"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", cc)
	}

	var body detailResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Detail != MsgRegistrationAccepted {
		t.Errorf("detail = %q, want %q", body.Detail, MsgRegistrationAccepted)
	}

	if enq.count() != 1 {
		t.Fatalf("enqueued %d requests, want 1", enq.count())
	}
	req := enq.requests[0]
	if req.Phone != "09123456789" {
		t.Errorf("enqueued phone = %q", req.Phone)
	}
	if req.RequestID == "" {
		t.Error("enqueued request has no request ID")
	}
	if req.IP == "" {
		t.Error("enqueued request has no client IP")
	}
}

func TestRegisterPhoneValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing leading zero", `{"phone":"9123456789"}`},
		{"too short", `{"phone":"0912345678"}`},
		{"too long", `{"phone":"091234567890"}`},
		{"non-digit", `{"phone":"0912345678a"}`},
		{"empty", `{"phone":""}`},
		{"absent", `{}`},
	}

	enq := &fakeEnqueuer{}
	srv := newTestServer(t, enq, newFakeMediaStore())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/v1/register", "application/json",
				strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
			var body validationResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if len(body.Fields) == 0 {
				t.Error("expected field-level validation details")
			}
		})
	}

	if enq.count() != 0 {
		t.Errorf("invalid requests reached the queue: %d", enq.count())
	}
}

func TestRegisterPhoneMalformedJSON(t *testing.T) {
	enq := &fakeEnqueuer{}
	srv := newTestServer(t, enq, newFakeMediaStore())

	resp, err := http.Post(srv.URL+"/api/v1/register", "application/json",
		strings.NewReader(`{"phone":`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestRegisterPhoneEnqueueFailure(t *testing.T) {
	enq := &fakeEnqueuer{err: errors.New("broker down")}
	srv := newTestServer(t, enq, newFakeMediaStore())

	resp, err := http.Post(srv.URL+"/api/v1/register", "application/json",
		strings.NewReader(`{"phone":"09123456789"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestRegisterPhoneRateLimited(t *testing.T) {
	enq := &fakeEnqueuer{}
	handler := NewHandler(enq, newFakeMediaStore())
	mw := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSOrigins:     []string{"*"},
		RateLimitReqs:   1,
		RateLimitWindow: time.Minute,
	})
	srv := httptest.NewServer(NewRouter(handler, mw))
	t.Cleanup(srv.Close)

	post := func() *http.Response {
		t.Helper()
		resp, err := http.Post(srv.URL+"/api/v1/register", "application/json",
			strings.NewReader(`{"phone":"09123456789"}`))
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		return resp
	}

	first := post()
	defer first.Body.Close()
	if first.StatusCode != http.StatusAccepted {
		t.Fatalf("first request status = %d, want %d", first.StatusCode, http.StatusAccepted)
	}

	second := post()
	defer second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", second.StatusCode, http.StatusTooManyRequests)
	}
	if ct := second.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body errorResponse
	if err := json.NewDecoder(second.Body).Decode(&body); err != nil {
		t.Fatalf("decode 429 body: %v", err)
	}
	if body.Error != "rate limit exceeded" {
		t.Errorf("error = %q, want %q", body.Error, "rate limit exceeded")
	}

	// Throttled requests must never reach the queue.
	if enq.count() != 1 {
		t.Errorf("enqueued %d requests, want 1", enq.count())
	}
}

func TestRegisterPhoneRateLimitDisabled(t *testing.T) {
	enq := &fakeEnqueuer{}
	handler := NewHandler(enq, newFakeMediaStore())
	mw := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSOrigins:       []string{"*"},
		RateLimitReqs:     1,
		RateLimitWindow:   time.Minute,
		RateLimitDisabled: true,
	})
	srv := httptest.NewServer(NewRouter(handler, mw))
	t.Cleanup(srv.Close)

	for i := 0; i < 3; i++ {
		resp, err := http.Post(srv.URL+"/api/v1/register", "application/json",
			strings.NewReader(`{"phone":"09123456789"}`))
		if err != nil {
			t.Fatalf("POST %d failed: %v", i+1, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("request %d status = %d, want %d", i+1, resp.StatusCode, http.StatusAccepted)
		}
	}

	if enq.count() != 3 {
		t.Errorf("enqueued %d requests, want 3", enq.count())
	}
}

func TestLandingMediaNoneConfigured(t *testing.T) {
	srv := newTestServer(t, &fakeEnqueuer{}, newFakeMediaStore())

	resp, err := http.Get(srv.URL + "/api/v1/landing-media")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

func TestLandingMediaDefault(t *testing.T) {
	media := newFakeMediaStore()
	if err := media.CreateMediaAsset(context.Background(), &models.MediaAsset{
		Title:         "Launch teaser",
		FileReference: "media/teaser.mp4",
		IsDefault:     true,
	}); err != nil {
		t.Fatalf("seed media: %v", err)
	}
	srv := newTestServer(t, &fakeEnqueuer{}, media)

	resp, err := http.Get(srv.URL + "/api/v1/landing-media")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var body mediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Title != "Launch teaser" {
		t.Errorf("title = %q", body.Title)
	}
	if body.File != "media/teaser.mp4" {
		t.Errorf("file = %q", body.File)
	}
	if body.FileType != "video/mp4" {
		t.Errorf("file_type = %q, want video/mp4", body.FileType)
	}
	if body.IsImage || !body.IsVideo {
		t.Errorf("is_image=%v is_video=%v, want video classification", body.IsImage, body.IsVideo)
	}
	if !body.IsDefault {
		t.Error("expected is_default = true")
	}
}

func TestCreateMediaAndSwitchDefault(t *testing.T) {
	media := newFakeMediaStore()
	srv := newTestServer(t, &fakeEnqueuer{}, media)

	post := func(body string) mediaResponse {
		t.Helper()
		resp, err := http.Post(srv.URL+"/api/v1/admin/media", "application/json",
			strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
		var out mediaResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return out
	}

	first := post(`{"title":"Hero image","file":"media/hero.jpg","is_default":true}`)
	second := post(`{"title":"Alt banner","file":"media/banner.png"}`)

	req, err := http.NewRequest(http.MethodPut,
		srv.URL+"/api/v1/admin/media/"+strconv.FormatInt(second.ID, 10)+"/default", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	current, err := media.GetDefaultMedia(context.Background())
	if err != nil {
		t.Fatalf("GetDefaultMedia: %v", err)
	}
	if current == nil || current.ID != second.ID {
		t.Fatalf("default = %v, want id %d", current, second.ID)
	}
	firstAsset, _ := media.GetMediaAsset(context.Background(), first.ID)
	if firstAsset.IsDefault {
		t.Error("previous default was not demoted")
	}
}

func TestSetDefaultMediaNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeEnqueuer{}, newFakeMediaStore())

	req, err := http.NewRequest(http.MethodPut,
		srv.URL+"/api/v1/admin/media/999/default", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeEnqueuer{}, newFakeMediaStore())

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, &fakeEnqueuer{}, newFakeMediaStore())

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID response header")
	}
}

