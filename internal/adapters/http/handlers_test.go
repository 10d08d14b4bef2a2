package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sp3dr4/tern/config"
	"github.com/sp3dr4/tern/internal/application"
	"github.com/sp3dr4/tern/internal/domain"
	"github.com/sp3dr4/tern/internal/infrastructure/memory"
	"github.com/sp3dr4/tern/internal/lru"
	"github.com/sp3dr4/tern/internal/pkg/metrics"
	"github.com/sp3dr4/tern/internal/shortcode"
)

const testBaseURL = "http://localhost:8080"

func newTestRouter(t *testing.T) (http.Handler, *memory.MappingRepository) {
	t.Helper()

	repo := memory.NewMappingRepository()
	local, err := lru.New[string, domain.Mapping](16)
	if err != nil {
		t.Fatalf("lru.New: %v", err)
	}

	service, err := application.NewMappingService(
		application.Config{BaseURL: testBaseURL, MaxSalt: 10},
		application.Dependencies{Store: repo, Local: local},
	)
	if err != nil {
		t.Fatalf("NewMappingService: %v", err)
	}

	cfg := &config.Config{App: config.AppConfig{BaseURL: testBaseURL}}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewRouter(NewHandlers(service), logger, cfg, metrics.NewNoOpRegistry()), repo
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", w.Body.String(), err)
	}
}

func TestHandlers_HandleShorten_ValidationErrorCasing(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "missing longUrl", payload: `{}`},
		{name: "invalid longUrl", payload: `{"longUrl": "not-a-url"}`},
		{name: "legacy field name is ignored", payload: `{"url": "https://example.com"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/shorten", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}

			var response ValidationErrorResponse
			decode(t, w, &response)
			if _, ok := response.Details["longUrl"]; !ok || len(response.Details) != 1 {
				t.Errorf("expected only longUrl in details, got %v", response.Details)
			}
		})
	}
}

func TestHandlers_HandleShorten_MalformedBody(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/shorten", strings.NewReader(`{"longUrl":`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestHandlers_ShortenThenResolve(t *testing.T) {
	router, _ := newTestRouter(t)
	const longURL = "https://example.com/some/page"

	shorten := func() (*httptest.ResponseRecorder, application.ShortenResponse) {
		req := httptest.NewRequest(http.MethodPost, "/shorten", strings.NewReader(`{"longUrl":"`+longURL+`"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var resp application.ShortenResponse
		decode(t, w, &resp)
		return w, resp
	}

	w, created := shorten()
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	if created.ShortCode != shortcode.Generate(longURL, 1) {
		t.Fatalf("unexpected short code %s", created.ShortCode)
	}
	if created.ShortURL != testBaseURL+"/shorten/"+created.ShortCode {
		t.Fatalf("unexpected short url %s", created.ShortURL)
	}

	w, again := shorten()
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d for existing mapping, got %d", http.StatusOK, w.Code)
	}
	if again.ShortCode != created.ShortCode || again.Created {
		t.Fatalf("expected the existing mapping, got %+v", again)
	}

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		req := httptest.NewRequest(method, "/shorten/"+created.ShortCode, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusFound {
			t.Fatalf("%s: expected status %d, got %d", method, http.StatusFound, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != longURL {
			t.Fatalf("%s: expected Location %s, got %s", method, longURL, loc)
		}
	}
}

func TestHandlers_HandleResolve_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/shorten/deadbeef", "/shorten/short", "/shorten/waytoolongcode"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, w.Code)
		}
	}
}

func TestHandlers_HandleShorten_Exhausted(t *testing.T) {
	router, repo := newTestRouter(t)
	const longURL = "https://example.com/crowded"

	// Occupy every candidate code with another URL.
	for salt := 1; salt <= 10; salt++ {
		m, _ := domain.NewMapping(shortcode.Generate(longURL, salt), "https://example.com/squatter")
		if _, err := repo.Insert(context.Background(), m); err != nil {
			t.Fatalf("seed salt %d: %v", salt, err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/shorten", strings.NewReader(`{"longUrl":"`+longURL+`"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
	}
}

func TestHandlers_MappingsAPI(t *testing.T) {
	router, repo := newTestRouter(t)

	m, _ := domain.NewMapping("abcd1234", "https://example.com")
	created, err := repo.Insert(context.Background(), m)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"list", http.MethodGet, "/api/mappings", http.StatusOK},
		{"bad limit", http.MethodGet, "/api/mappings?limit=abc", http.StatusBadRequest},
		{"lookup by code", http.MethodGet, "/api/mappings/code/abcd1234", http.StatusOK},
		{"lookup unknown code", http.MethodGet, "/api/mappings/code/ffffffff", http.StatusNotFound},
		{"get by id", http.MethodGet, "/api/mappings/" + created.ID, http.StatusOK},
		{"delete", http.MethodDelete, "/api/mappings/" + created.ID, http.StatusNoContent},
		{"get deleted", http.MethodGet, "/api/mappings/" + created.ID, http.StatusNotFound},
		{"delete again", http.MethodDelete, "/api/mappings/" + created.ID, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandlers_HealthAndReady(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusOK, w.Code)
		}
	}
}

func TestLoggingMiddleware_EchoesTraceID(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Trace-Id", "trace-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Trace-Id"); got != "trace-123" {
		t.Fatalf("expected trace id to be echoed, got %q", got)
	}
}
