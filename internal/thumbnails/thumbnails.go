// package thumbnails caches remote thumbnail images on local disk.
// Resolution is best-effort; a failed fetch leaves the remote URL in place
// and is retried on the next sync pass.
package thumbnails

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Cache downloads thumbnails into a local directory, named by owner kind
// and id ("sub/<id>" and "video/<id>").
type Cache struct {
	dir    string
	client *http.Client
	logger *log.Logger
}

// NewCache creates a thumbnail cache rooted at dir.
func NewCache(dir string, client *http.Client, logger *log.Logger) *Cache {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Cache{dir: dir, client: client, logger: logger}
}

// Resolve fetches a remote thumbnail and returns the cached local path.
// Already-local references are returned unchanged.
func (c *Cache) Resolve(ctx context.Context, kind, id, ref string) (string, error) {
	if !strings.HasPrefix(ref, "http") {
		return ref, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return ref, fmt.Errorf("failed to build thumbnail request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return ref, fmt.Errorf("failed to fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ref, fmt.Errorf("failed to fetch thumbnail: status %d", resp.StatusCode)
	}

	ext := extensionFor(resp.Header.Get("Content-Type"), ref)

	dir := filepath.Join(c.dir, kind)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ref, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	path := filepath.Join(dir, sanitize(id)+ext)
	out, err := os.Create(path)
	if err != nil {
		return ref, fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(path)
		return ref, fmt.Errorf("failed to write thumbnail: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("cached thumbnail", "kind", kind, "id", id, "path", path)
	}
	return path, nil
}

// extensionFor picks a file extension from the response content type,
// falling back to the URL's extension, then ".jpg".
func extensionFor(contentType, ref string) string {
	if contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	if ext := filepath.Ext(ref); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".jpg"
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		default:
			return r
		}
	}, s)
}
