package downloader

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/girlpunk/ytsm/internal/shared"
)

// ListLocalFiles returns every file in the prefix's directory whose name
// starts with the prefix's base name. A missing directory reads as no
// files, not an error: the media may live on storage that was unmounted.
func ListLocalFiles(prefix string) ([]string, error) {
	if prefix == "" {
		return nil, nil
	}

	dir, base := filepath.Split(prefix)
	if dir == "" {
		dir = "."
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", shared.ErrFilesystem, dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), base) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// FindVideoFile returns the first file with a video MIME type, or "" when
// none of the files is recognizable as video.
func FindVideoFile(files []string) string {
	for _, file := range files {
		if mimeType := mime.TypeByExtension(filepath.Ext(file)); strings.HasPrefix(mimeType, "video/") {
			return file
		}
	}
	return ""
}

// RemoveFiles unlinks the given files best-effort, returning the number
// removed and the first error encountered. Callers log the error and move
// on; cleanup must never abort a sync pass.
func RemoveFiles(files []string) (int, error) {
	var firstErr error
	removed := 0
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: remove %s: %v", shared.ErrFilesystem, file, err)
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}
