package cmd

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCatalog = `{
	"categories": [{"id": "1", "name": "Animals", "learning_supported": "1"}, {"id": 0, "name": "broken"}],
	"words": [
		{"id": 10, "title": "Hund", "translation": "dog", "category_ids": "1"},
		{"id": "", "title": "missing id"}
	]
}`

func TestDecodeCatalogSeed(t *testing.T) {
	categories, words, err := decodeCatalogSeed(strings.NewReader(sampleCatalog))
	if err != nil {
		t.Fatalf("decodeCatalogSeed: %v", err)
	}
	if len(categories) != 1 || categories[0].ID != 1 || !categories[0].LearningSupported {
		t.Fatalf("unexpected categories %+v", categories)
	}
	if len(words) != 1 || words[0].ID != 10 || len(words[0].CategoryIDs) != 1 || words[0].CategoryIDs[0] != 1 {
		t.Fatalf("unexpected words %+v", words)
	}

	if _, _, err := decodeCatalogSeed(strings.NewReader(`{"categories": [], "words": []}`)); err == nil {
		t.Fatalf("expected empty catalog error")
	}
	if _, _, err := decodeCatalogSeed(strings.NewReader(`[`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPrepareCachePath(t *testing.T) {
	dir := t.TempDir()
	url := "https://example.com/catalog.zip"

	base, path, cached, err := prepareCachePath(url, dir, false)
	if err != nil {
		t.Fatalf("prepareCachePath: %v", err)
	}
	if base != dir || cached || filepath.Ext(path) != ".zip" {
		t.Fatalf("unexpected cache path %q (cached=%v)", path, cached)
	}
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("write cache: %v", err)
	}
	if _, again, cached, _ := prepareCachePath(url, dir, false); !cached || again != path {
		t.Fatalf("expected cached copy at %q", path)
	}
	if _, _, cached, _ := prepareCachePath(url, dir, true); cached {
		t.Fatalf("no-cache must ignore the cached copy")
	}
}

func TestDownloadAndUnzip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "catalog.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("data/catalog.json")
	if err != nil {
		t.Fatalf("zip entry: %v", err)
	}
	if _, err := w.Write([]byte(sampleCatalog)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	f.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalog.zip" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, zipPath)
	}))
	defer srv.Close()

	downloaded := filepath.Join(dir, "downloaded.zip")
	if err := downloadFile(context.Background(), srv.URL+"/catalog.zip", downloaded); err != nil {
		t.Fatalf("downloadFile: %v", err)
	}
	if err := downloadFile(context.Background(), srv.URL+"/missing", filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected download error for 404")
	}

	out := t.TempDir()
	path, err := unzipSingle(func(name string) bool { return strings.HasSuffix(name, ".json") }, downloaded, out)
	if err != nil {
		t.Fatalf("unzipSingle: %v", err)
	}
	if filepath.Base(path) != "catalog.json" {
		t.Fatalf("unexpected extracted path %q", path)
	}
	if _, err := unzipSingle(func(name string) bool { return strings.HasSuffix(name, ".db") }, downloaded, out); err == nil {
		t.Fatalf("expected error when no entry matches")
	}
}
