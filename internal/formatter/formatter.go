// package formatter provides functions to export subscription video listings to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/girlpunk/ytsm/internal/models"
)

// SubscriptionExport bundles a subscription with its full video listing.
type SubscriptionExport struct {
	Subscription *models.Subscription `json:"subscription"`
	Videos       []*models.Video      `json:"videos"`
}

// ExportToCSV converts a SubscriptionExport to CSV format with columns: VideoID, Title, Uploader, Published, Duration, Index, Watched, Downloaded
func ExportToCSV(export *SubscriptionExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"VideoID", "Title", "Uploader", "Published", "Duration", "Index", "Watched", "Downloaded"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, video := range export.Videos {
		record := []string{
			video.VideoID,
			video.Name,
			video.UploaderName,
			video.PublishDate.Format(time.RFC3339),
			strconv.Itoa(video.Duration),
			strconv.Itoa(video.PlaylistIndex),
			strconv.FormatBool(video.Watched),
			strconv.FormatBool(video.Downloaded()),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a SubscriptionExport to Markdown format with optional thumbnail image
func ExportToMarkdown(export *SubscriptionExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", export.Subscription.Name))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Thumbnail](%s)\n\n", imageFilename))
	}

	if export.Subscription.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", export.Subscription.Description))
	}

	buf.WriteString(fmt.Sprintf("**Channel**: %s\n", export.Subscription.ChannelName))
	buf.WriteString(fmt.Sprintf("**Videos**: %d\n", len(export.Videos)))
	if export.Subscription.LastSynchronised != nil {
		buf.WriteString(fmt.Sprintf("**Last synchronised**: %s\n", export.Subscription.LastSynchronised.Format(time.RFC3339)))
	}
	buf.WriteString("\n## Videos\n\n")

	for i, video := range export.Videos {
		marker := ""
		if video.Watched {
			marker = " (watched)"
		}
		buf.WriteString(fmt.Sprintf("%d. %s [%s]%s\n", i+1, video.Name, video.DurationString(), marker))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a SubscriptionExport to plain text format
func ExportToText(export *SubscriptionExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Subscription: %s\n", export.Subscription.Name))
	if export.Subscription.ChannelName != "" {
		buf.WriteString(fmt.Sprintf("Channel: %s\n", export.Subscription.ChannelName))
	}
	buf.WriteString(fmt.Sprintf("Videos: %d\n\n", len(export.Videos)))

	for i, video := range export.Videos {
		buf.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, video.Name, video.PublishDate.Format("2006-01-02")))
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates a JSON representation of subscription metadata (without videos)
func ToMetadataJSON(sub *models.Subscription) ([]byte, error) {
	return json.MarshalIndent(sub, "", "  ")
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	VideosFile   string
	MetadataFile string
}

// WriteCSVExport exports a subscription to CSV format with accompanying metadata JSON file.
//
// Defaults to the subscription ID as the base filename & creates {base}_videos.csv and {base}_metadata.json
func WriteCSVExport(export *SubscriptionExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Subscription.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	videosFile := baseFilepath + "_videos.csv"
	if err := os.WriteFile(videosFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Subscription)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		VideosFile:   videosFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Thumbnail string
}

// WriteMarkdownExport exports a subscription to Markdown format in a dedicated directory.
//
// Directory name defaults to the subscription ID.
// The imageURL parameter is optional - if provided, attempts to download the thumbnail.
// Creates a directory structure: {dir}/README.md and optionally {dir}/thumbnail.jpg
func WriteMarkdownExport(export *SubscriptionExport, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.Subscription.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var thumbnailFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download thumbnail: %v\n", err)
		} else {
			thumbnailFilename = "thumbnail.jpg"
			thumbnailPath := fmt.Sprintf("%s/%s", outputDir, thumbnailFilename)
			if err := os.WriteFile(thumbnailPath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save thumbnail: %v\n", err)
				thumbnailFilename = ""
			} else {
				result.Thumbnail = thumbnailPath
				result.Files = append(result.Files, thumbnailPath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, thumbnailFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := fmt.Sprintf("%s/README.md", outputDir)
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// BulkExportManifest summarizes a bulk export run for later inspection.
type BulkExportManifest struct {
	Format             string          `json:"format"`
	GeneratedAt        time.Time       `json:"generated_at"`
	OutputDirectory    string          `json:"output_directory"`
	TotalSubscriptions int             `json:"total_subscriptions"`
	SuccessfulExports  int             `json:"successful_exports"`
	FailedExports      int             `json:"failed_exports"`
	Exports            []ManifestEntry `json:"exports"`
}

// ManifestEntry records the outcome of a single subscription export.
type ManifestEntry struct {
	SubscriptionID   string   `json:"subscription_id"`
	SubscriptionName string   `json:"subscription_name"`
	Status           string   `json:"status"`
	Files            []string `json:"files,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// WriteBulkExportManifest writes the manifest as pretty-printed JSON.
func WriteBulkExportManifest(manifest BulkExportManifest, path string) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// WriteTextExport exports a subscription to plain text format.
//
// Defaults to {subscription.ID}_videos.txt as the filename.
func WriteTextExport(export *SubscriptionExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_videos.txt", export.Subscription.ID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
