package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/flashdeck/internal/adapter/httpapi"
	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/internal/infrastructure/config"
	"github.com/eslsoft/flashdeck/internal/repository"
)

type categoriesBackend struct {
	repository.StudyBackend
}

func (categoriesBackend) FetchCategories(context.Context, int64) ([]entity.Category, error) {
	return []entity.Category{{ID: 1, Name: "Animals"}}, nil
}

func newTestServer(t *testing.T) (*Server, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", HTTPPort: 0, Path: "/ajax", AllowedOrigins: []string{"https://example.test"}},
		Log:    config.LogConfig{Level: "info", Format: "json"},
	}
	logger, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	return NewServer(cfg, logger, httpapi.NewHandler(categoriesBackend{}, "", logger)), &buf
}

func TestServerServesActionsWithAccessLog(t *testing.T) {
	srv, logs := newTestServer(t)
	form := url.Values{"action": {"flashdeck_fetch_categories"}, "wordset_id": {"3"}}
	req := httptest.NewRequest(http.MethodPost, "/ajax", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(logs.Bytes()), &line); err != nil {
		t.Fatalf("access log is not a single json line: %q", logs.String())
	}
	if line["action"] != "flashdeck_fetch_categories" || line["request_id"] != "req-1" || line["status"] != float64(200) {
		t.Fatalf("unexpected access log %v", line)
	}
}

func TestServerCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/ajax", nil)
	req.Header.Set("Origin", "https://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.test" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestDetermineLogLevel(t *testing.T) {
	cases := map[int]logrus.Level{200: logrus.InfoLevel, 404: logrus.WarnLevel, 503: logrus.ErrorLevel}
	for status, want := range cases {
		if got := determineLogLevel(status); got != want {
			t.Fatalf("status %d: got %s want %s", status, got, want)
		}
	}
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	if _, err := NewLogger(&config.Config{Log: config.LogConfig{Level: "loud"}}); err == nil {
		t.Fatalf("expected parse error")
	}
}
