package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/girlpunk/ytsm/internal/formatter"
	"github.com/girlpunk/ytsm/internal/models"
)

// BulkExportOpts contains configuration for bulk subscription exports.
type BulkExportOpts struct {
	Format     string // Export format: json, csv, markdown, txt
	OutputDir  string // Base output directory (default: ytsm_export_{epoch})
	NumWorkers int    // Concurrent workers (default: 5)
}

// SubscriptionExportJob pairs a subscription with its loaded video listing.
type SubscriptionExportJob struct {
	SubscriptionID string
	Export         *formatter.SubscriptionExport
}

// SubscriptionExportResult records the outcome of exporting one subscription.
type SubscriptionExportResult struct {
	SubscriptionID   string
	SubscriptionName string
	Success          bool
	Files            []string
	Error            error
}

// BulkExportResult summarizes a bulk export run.
type BulkExportResult struct {
	TotalSubscriptions int
	SuccessfulExports  int
	FailedExports      int
	OutputDirectory    string
	ManifestPath       string
	Results            []SubscriptionExportResult
}

// BulkExport exports the video listings of multiple subscriptions
// concurrently.
//
// The listings are read from the catalog, so a subscription reflects its
// state as of its last sync pass. Partial failures are recorded per
// subscription and summarized in a manifest file in the output directory.
func (e *Engine) BulkExport(ctx context.Context, subs []*models.Subscription, opts BulkExportOpts) (*BulkExportResult, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("ytsm_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalSubscriptions: len(subs),
		OutputDirectory:    opts.OutputDir,
		Results:            make([]SubscriptionExportResult, 0, len(subs)),
	}

	jobs := make(chan SubscriptionExportJob, len(subs))
	results := make(chan SubscriptionExportResult, len(subs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for _, sub := range subs {
			select {
			case <-ctx.Done():
				return
			default:
			}

			videos, err := e.videos.ListBySubscription(sub.ID)
			if err != nil {
				results <- SubscriptionExportResult{
					SubscriptionID:   sub.ID,
					SubscriptionName: sub.Name,
					Success:          false,
					Error:            fmt.Errorf("failed to load videos: %w", err),
				}
				continue
			}

			jobs <- SubscriptionExportJob{
				SubscriptionID: sub.ID,
				Export:         &formatter.SubscriptionExport{Subscription: sub, Videos: videos},
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.logger.Info("exported subscription", "subscription", res.SubscriptionName, "files", len(res.Files))
		} else {
			result.FailedExports++
			e.logger.Error("subscription export failed", "subscription", res.SubscriptionName, "error", res.Error)
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(result.manifest(opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker is a worker goroutine that exports subscriptions from the jobs channel.
func (e *Engine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan SubscriptionExportJob,
	results chan<- SubscriptionExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- exportSingleSubscription(job, opts)
	}
}

// exportSingleSubscription exports one subscription to the requested format.
func exportSingleSubscription(j SubscriptionExportJob, opts BulkExportOpts) SubscriptionExportResult {
	result := SubscriptionExportResult{
		SubscriptionID:   j.SubscriptionID,
		SubscriptionName: j.Export.Subscription.Name,
		Success:          false,
		Files:            []string{},
	}

	switch opts.Format {
	case "csv":
		baseFilepath := filepath.Join(opts.OutputDir, j.SubscriptionID)
		csvRes, err := formatter.WriteCSVExport(j.Export, baseFilepath)
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{csvRes.VideosFile, csvRes.MetadataFile}
		result.Success = true

	case "markdown":
		outputDir := filepath.Join(opts.OutputDir, j.SubscriptionID)

		// Cached thumbnails are local paths; only remote ones are fetched.
		imageURL := ""
		if strings.HasPrefix(j.Export.Subscription.Thumbnail, "http") {
			imageURL = j.Export.Subscription.Thumbnail
		}

		mdRes, err := formatter.WriteMarkdownExport(j.Export, outputDir, imageURL)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = mdRes.Files
		result.Success = true

	case "txt":
		txtPath := filepath.Join(opts.OutputDir, fmt.Sprintf("%s_videos.txt", j.SubscriptionID))
		written, err := formatter.WriteTextExport(j.Export, txtPath)
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{written}
		result.Success = true

	case "json":
		fallthrough
	default:
		jsonPath := filepath.Join(opts.OutputDir, fmt.Sprintf("%s.json", j.SubscriptionID))
		data, err := json.MarshalIndent(j.Export, "", "  ")
		if err != nil {
			result.Error = fmt.Errorf("JSON marshal failed: %w", err)
			return result
		}
		if err := os.WriteFile(jsonPath, data, 0644); err != nil {
			result.Error = fmt.Errorf("JSON write failed: %w", err)
			return result
		}
		result.Files = []string{jsonPath}
		result.Success = true
	}
	return result
}

// manifest converts the run summary into its serialized form.
func (r *BulkExportResult) manifest(format string) formatter.BulkExportManifest {
	m := formatter.BulkExportManifest{
		Format:             format,
		GeneratedAt:        time.Now().UTC(),
		OutputDirectory:    r.OutputDirectory,
		TotalSubscriptions: r.TotalSubscriptions,
		SuccessfulExports:  r.SuccessfulExports,
		FailedExports:      r.FailedExports,
		Exports:            make([]formatter.ManifestEntry, 0, len(r.Results)),
	}
	if format == "" {
		m.Format = "json"
	}
	for _, res := range r.Results {
		entry := formatter.ManifestEntry{
			SubscriptionID:   res.SubscriptionID,
			SubscriptionName: res.SubscriptionName,
			Status:           "exported",
			Files:            res.Files,
		}
		if !res.Success {
			entry.Status = "failed"
			if res.Error != nil {
				entry.Error = res.Error.Error()
			}
		}
		m.Exports = append(m.Exports, entry)
	}
	return m
}
