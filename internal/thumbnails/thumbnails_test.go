package thumbnails

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/girlpunk/ytsm/internal/shared"
)

func TestResolve(t *testing.T) {
	t.Run("local references pass through", func(t *testing.T) {
		cache := NewCache(t.TempDir(), nil, shared.NewLogger(nil))

		path, err := cache.Resolve(context.Background(), "video", "v1", "/already/local.jpg")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if path != "/already/local.jpg" {
			t.Errorf("local path should be returned unchanged, got %q", path)
		}
	})

	t.Run("remote thumbnails are cached on disk", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("png-bytes"))
		}))
		defer server.Close()

		dir := t.TempDir()
		cache := NewCache(dir, server.Client(), shared.NewLogger(nil))

		path, err := cache.Resolve(context.Background(), "sub", "PLabc", server.URL+"/thumb.png")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if !strings.HasPrefix(path, filepath.Join(dir, "sub")) {
			t.Errorf("expected a path under the cache dir, got %q", path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read cached file: %v", err)
		}
		if string(data) != "png-bytes" {
			t.Errorf("unexpected cached content %q", data)
		}
	})

	t.Run("fetch failure keeps the remote reference", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		cache := NewCache(t.TempDir(), server.Client(), shared.NewLogger(nil))

		ref := server.URL + "/missing.jpg"
		path, err := cache.Resolve(context.Background(), "video", "v1", ref)
		if err == nil {
			t.Fatal("expected an error for a missing thumbnail")
		}
		if path != ref {
			t.Errorf("failed resolve should return the original reference, got %q", path)
		}
	})

	t.Run("ids with separators are sanitized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("x"))
		}))
		defer server.Close()

		dir := t.TempDir()
		cache := NewCache(dir, server.Client(), shared.NewLogger(nil))

		path, err := cache.Resolve(context.Background(), "sub", "https://feed/url", server.URL+"/t.jpg")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		rel, err := filepath.Rel(filepath.Join(dir, "sub"), path)
		if err != nil || strings.Contains(rel, string(filepath.Separator)) {
			t.Errorf("sanitized file should sit directly in the kind directory, got %q", path)
		}
	})
}

func TestExtensionFor(t *testing.T) {
	if ext := extensionFor("", "https://host/x.png"); ext != ".png" {
		t.Errorf("expected URL extension fallback, got %q", ext)
	}
	if ext := extensionFor("", "https://host/x"); ext != ".jpg" {
		t.Errorf("expected .jpg default, got %q", ext)
	}
	if ext := extensionFor("", "https://host/page.html?size=720x1280"); ext != ".jpg" {
		t.Errorf("query-suffixed URLs should fall back to .jpg, got %q", ext)
	}
}
