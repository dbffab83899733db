package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shortspan/shortspan/internal/alias"
	"github.com/shortspan/shortspan/internal/analytics"
	"github.com/shortspan/shortspan/internal/click"
	"github.com/shortspan/shortspan/internal/geo"
	"github.com/shortspan/shortspan/internal/model"
	"github.com/shortspan/shortspan/internal/redirect"
	"github.com/shortspan/shortspan/internal/store/file"
)

func newTestHandler(t *testing.T) (*Handler, *alias.Engine, *file.Store) {
	t.Helper()

	st, err := file.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	aliases := alias.NewEngine(st, nil)
	clicks := click.NewTracker(st, geo.Fixed{Location: model.Location{Country: "Germany", Region: "Berlin", City: "Berlin"}}, nil)
	an := analytics.NewEngine(st)
	resolver := redirect.NewResolver(aliases, nil, nil)

	// One fast tick so redirect tests don't sit in the countdown.
	cfg := Config{CountdownTicks: 1, TickInterval: time.Millisecond}
	return New(aliases, clicks, an, resolver, cfg, nil), aliases, st
}

func postShorten(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/shorten", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func TestHandleShorten_Success(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rr := postShorten(t, h, `{"items":[{"url":"https://example.com","validityPeriod":30}]}`)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var resp model.SubmissionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.URLs) != 1 {
		t.Fatalf("created %d urls, want 1", len(resp.URLs))
	}
	u := resp.URLs[0]
	if u.OriginalURL != "https://example.com" {
		t.Errorf("originalUrl = %q", u.OriginalURL)
	}
	if len(u.ShortCode) != alias.CodeLength {
		t.Errorf("shortCode = %q, want %d chars", u.ShortCode, alias.CodeLength)
	}
	if u.IsCustomCode {
		t.Error("generated code flagged as custom")
	}
}

func TestHandleShorten_PerItemErrors(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rr := postShorten(t, h, `{"items":[
		{"url":"https://ok.example.com","validityPeriod":30},
		{"url":"ftp://bad.example.com","validityPeriod":30}
	]}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	var resp struct {
		Error struct {
			Code       string   `json:"code"`
			ItemErrors []string `json:"itemErrors"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error code = %q", resp.Error.Code)
	}
	if len(resp.Error.ItemErrors) != 2 {
		t.Fatalf("itemErrors length = %d, want 2", len(resp.Error.ItemErrors))
	}
	if resp.Error.ItemErrors[0] != "" {
		t.Errorf("item 0 error = %q, want empty", resp.Error.ItemErrors[0])
	}
	if resp.Error.ItemErrors[1] == "" {
		t.Error("item 1 error is empty, want a message")
	}
}

func TestHandleShorten_InvalidJSON(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rr := postShorten(t, h, `{"items":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rr.Body.String(), "INVALID_JSON") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestHandleShorten_EmptyBatch(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rr := postShorten(t, h, `{"items":[]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHandleListURLs(t *testing.T) {
	h, _, _ := newTestHandler(t)

	// Empty store returns an empty array, not null
	req := httptest.NewRequest(http.MethodGet, "/api/urls", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("empty listing body = %s, want []", rr.Body.String())
	}

	postShorten(t, h, `{"items":[{"url":"https://example.com","validityPeriod":30}]}`)

	req = httptest.NewRequest(http.MethodGet, "/api/urls", nil)
	rr = httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	var urls []model.ShortenedURL
	if err := json.Unmarshal(rr.Body.Bytes(), &urls); err != nil {
		t.Fatalf("decoding listing: %v", err)
	}
	if len(urls) != 1 {
		t.Fatalf("listing length = %d, want 1", len(urls))
	}
}

func TestHandleRedirect_TracksAndRedirects(t *testing.T) {
	h, aliases, _ := newTestHandler(t)

	rr := postShorten(t, h, `{"items":[{"url":"https://example.com/landing","validityPeriod":30,"customShortcode":"promo1"}]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("setup failed: %s", rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/promo1", nil)
	req.Header.Set("Referer", "https://www.google.com/search")
	rr = httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if loc := rr.Header().Get("Location"); loc != "https://example.com/landing" {
		t.Errorf("Location = %q", loc)
	}

	record, err := aliases.ResolveAlias("promo1")
	if err != nil {
		t.Fatalf("resolving after redirect: %v", err)
	}
	if record.ClickCount != 1 {
		t.Errorf("clickCount = %d, want 1", record.ClickCount)
	}
}

func TestHandleRedirect_CountdownConfigHonored(t *testing.T) {
	h, aliases, st := newTestHandler(t)
	h.cfg = Config{CountdownTicks: 3, TickInterval: 20 * time.Millisecond}

	record := aliases.CreateAlias("https://example.com/slow", "wait99", 30, true)
	if err := st.AppendAliases([]model.ShortenedURL{record}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	req := httptest.NewRequest(http.MethodGet, "/wait99", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	elapsed := time.Since(start)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if elapsed < 60*time.Millisecond {
		t.Errorf("redirect fired after %v, want at least the 3-tick countdown", elapsed)
	}
}

func TestHandleRedirect_CaseInsensitive(t *testing.T) {
	h, _, _ := newTestHandler(t)

	postShorten(t, h, `{"items":[{"url":"https://example.com","validityPeriod":30,"customShortcode":"MixedCase"}]}`)

	req := httptest.NewRequest(http.MethodGet, "/mixedcase", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
}

func TestHandleRedirect_NotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/nosuch", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if !strings.Contains(rr.Body.String(), "URL_NOT_FOUND") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestHandleRedirect_Expired(t *testing.T) {
	h, aliases, st := newTestHandler(t)

	// Seed a record already past its expiry
	record := aliases.CreateAlias("https://example.com/old", "gone42", 30, true)
	record.CreatedAt = record.CreatedAt.Add(-2 * time.Hour)
	record.ExpiryDate = record.ExpiryDate.Add(-2 * time.Hour)
	if err := st.AppendAliases([]model.ShortenedURL{record}); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/gone42", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusGone {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusGone)
	}

	// The stale record rides along with the error
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		URL *model.ShortenedURL `json:"url"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error.Code != "URL_EXPIRED" {
		t.Errorf("error code = %q", resp.Error.Code)
	}
	if resp.URL == nil || resp.URL.OriginalURL != "https://example.com/old" {
		t.Errorf("stale record = %+v", resp.URL)
	}

	// Expired lookups do not record clicks
	got, err := aliases.ResolveAlias("gone42")
	if err != nil {
		t.Fatal(err)
	}
	if got.ClickCount != 0 {
		t.Errorf("clickCount = %d, want 0", got.ClickCount)
	}
}

func TestHandleAnalytics(t *testing.T) {
	h, _, _ := newTestHandler(t)

	postShorten(t, h, `{"items":[{"url":"https://example.com","validityPeriod":30,"customShortcode":"stats1"}]}`)

	// Two clicks
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/stats1", nil)
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)
		if rr.Code != http.StatusFound {
			t.Fatalf("redirect %d status = %d", i, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/analytics", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var data model.AnalyticsData
	if err := json.Unmarshal(rr.Body.Bytes(), &data); err != nil {
		t.Fatalf("decoding analytics: %v", err)
	}
	if data.TotalURLs != 1 {
		t.Errorf("totalUrls = %d, want 1", data.TotalURLs)
	}
	if data.TotalClicks != 2 {
		t.Errorf("totalClicks = %d, want 2", data.TotalClicks)
	}
	if len(data.ClicksByHour) != 24 {
		t.Errorf("clicksByHour length = %d, want 24", len(data.ClicksByHour))
	}
}

func TestHandleURLAnalytics(t *testing.T) {
	h, aliases, _ := newTestHandler(t)

	postShorten(t, h, `{"items":[{"url":"https://example.com","validityPeriod":30,"customShortcode":"drill1"}]}`)

	req := httptest.NewRequest(http.MethodGet, "/drill1", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusFound {
		t.Fatalf("redirect status = %d", rr.Code)
	}

	record, err := aliases.ResolveAlias("drill1")
	if err != nil {
		t.Fatal(err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/urls/"+record.ID+"/analytics", nil)
	rr = httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rr.Code, rr.Body.String())
	}

	var data model.URLAnalytics
	if err := json.Unmarshal(rr.Body.Bytes(), &data); err != nil {
		t.Fatalf("decoding drill-down: %v", err)
	}
	if data.TotalClicks != 1 {
		t.Errorf("totalClicks = %d, want 1", data.TotalClicks)
	}
	if len(data.TopCountries) != 1 || data.TopCountries[0].Key != "Germany" {
		t.Errorf("topCountries = %+v", data.TopCountries)
	}
}

func TestHandleURLAnalytics_UnknownAlias(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/urls/no-such-id/analytics", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if !strings.Contains(rr.Body.String(), "ALIAS_NOT_FOUND") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestHandleCleanup(t *testing.T) {
	h, _, _ := newTestHandler(t)

	postShorten(t, h, `{"items":[{"url":"https://example.com","validityPeriod":30}]}`)

	req := httptest.NewRequest(http.MethodPost, "/api/cleanup", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["removed"] != 0 {
		t.Errorf("removed = %d, want 0", resp["removed"])
	}
}

func TestHandleHealth(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "healthy") {
		t.Errorf("body = %s", rr.Body.String())
	}
}
