package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/girlpunk/ytsm/internal/formatter"
	"github.com/girlpunk/ytsm/internal/models"
)

func seedListing(f *engineFixture, subID string, n int) {
	for i := 0; i < n; i++ {
		f.videos.Create(&models.Video{
			VideoID:        subID + "-v" + string(rune('a'+i)),
			SubscriptionID: subID,
			Name:           "Video " + string(rune('A'+i)),
			PublishDate:    time.Date(2024, 3, 1+i, 0, 0, 0, 0, time.UTC),
			PlaylistIndex:  i,
			Duration:       60,
		})
	}
}

func readManifest(t *testing.T, path string) formatter.BulkExportManifest {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	var manifest formatter.BulkExportManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	return manifest
}

func TestBulkExport(t *testing.T) {
	t.Run("json export", func(t *testing.T) {
		f := newEngineFixture(t)
		second := testSubscription()
		second.ID = "sub-2"
		second.Name = "Other"
		f.subs.subs[second.ID] = second

		seedListing(f, f.sub.ID, 2)
		seedListing(f, second.ID, 1)

		dir := t.TempDir()
		result, err := f.engine.BulkExport(context.Background(), []*models.Subscription{f.sub, second}, BulkExportOpts{
			Format:    "json",
			OutputDir: dir,
		})
		if err != nil {
			t.Fatalf("BulkExport failed: %v", err)
		}

		if result.SuccessfulExports != 2 || result.FailedExports != 0 {
			t.Errorf("expected 2 successes, got %d/%d", result.SuccessfulExports, result.FailedExports)
		}

		for _, id := range []string{"sub-1", "sub-2"} {
			path := filepath.Join(dir, id+".json")
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("expected export file for %s: %v", id, err)
			}
			var export formatter.SubscriptionExport
			if err := json.Unmarshal(data, &export); err != nil {
				t.Fatalf("export for %s is not valid JSON: %v", id, err)
			}
			if export.Subscription.ID != id {
				t.Errorf("expected subscription %s in export, got %s", id, export.Subscription.ID)
			}
		}

		manifest := readManifest(t, result.ManifestPath)
		if manifest.TotalSubscriptions != 2 || manifest.SuccessfulExports != 2 {
			t.Errorf("unexpected manifest counts: %+v", manifest)
		}
	})

	t.Run("csv export", func(t *testing.T) {
		f := newEngineFixture(t)
		seedListing(f, f.sub.ID, 3)

		dir := t.TempDir()
		result, err := f.engine.BulkExport(context.Background(), []*models.Subscription{f.sub}, BulkExportOpts{
			Format:    "csv",
			OutputDir: dir,
		})
		if err != nil {
			t.Fatalf("BulkExport failed: %v", err)
		}
		if result.SuccessfulExports != 1 {
			t.Fatalf("expected 1 success, got %d", result.SuccessfulExports)
		}

		if _, err := os.Stat(filepath.Join(dir, "sub-1_videos.csv")); err != nil {
			t.Errorf("expected videos CSV: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "sub-1_metadata.json")); err != nil {
			t.Errorf("expected metadata JSON: %v", err)
		}
	})

	t.Run("markdown export", func(t *testing.T) {
		f := newEngineFixture(t)
		seedListing(f, f.sub.ID, 1)

		dir := t.TempDir()
		result, err := f.engine.BulkExport(context.Background(), []*models.Subscription{f.sub}, BulkExportOpts{
			Format:    "markdown",
			OutputDir: dir,
		})
		if err != nil {
			t.Fatalf("BulkExport failed: %v", err)
		}
		if result.SuccessfulExports != 1 {
			t.Fatalf("expected 1 success, got %d", result.SuccessfulExports)
		}

		if _, err := os.Stat(filepath.Join(dir, "sub-1", "README.md")); err != nil {
			t.Errorf("expected README.md: %v", err)
		}
	})

	t.Run("listing failure is recorded, not fatal", func(t *testing.T) {
		f := newEngineFixture(t)
		f.videos.listErr = errors.New("table locked")

		dir := t.TempDir()
		result, err := f.engine.BulkExport(context.Background(), []*models.Subscription{f.sub}, BulkExportOpts{
			OutputDir: dir,
		})
		if err != nil {
			t.Fatalf("BulkExport failed: %v", err)
		}

		if result.FailedExports != 1 || result.SuccessfulExports != 0 {
			t.Errorf("expected 1 failure, got %d/%d", result.SuccessfulExports, result.FailedExports)
		}

		manifest := readManifest(t, result.ManifestPath)
		if len(manifest.Exports) != 1 || manifest.Exports[0].Status != "failed" {
			t.Errorf("expected failed manifest entry, got %+v", manifest.Exports)
		}
		if manifest.Exports[0].Error == "" {
			t.Error("expected error message in manifest entry")
		}
	})

	t.Run("unknown format falls back to json", func(t *testing.T) {
		f := newEngineFixture(t)
		seedListing(f, f.sub.ID, 1)

		dir := t.TempDir()
		result, err := f.engine.BulkExport(context.Background(), []*models.Subscription{f.sub}, BulkExportOpts{
			Format:    "yaml",
			OutputDir: dir,
		})
		if err != nil {
			t.Fatalf("BulkExport failed: %v", err)
		}
		if result.SuccessfulExports != 1 {
			t.Fatalf("expected 1 success, got %d", result.SuccessfulExports)
		}
		if _, err := os.Stat(filepath.Join(dir, "sub-1.json")); err != nil {
			t.Errorf("expected JSON fallback file: %v", err)
		}
	})
}
