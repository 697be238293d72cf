// package downloader wraps the external yt-dlp tool behind the small
// capability surface the sync engine needs: run one download, and probe
// the local files a previous download left behind.
package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/girlpunk/ytsm/internal/models"
)

const (
	defaultYtdlpPath    = "yt-dlp"
	defaultYtdlpTimeout = 60 * time.Minute
)

// Downloader fetches the media file for one video. exitCode is the tool's
// exit status (0 = success); outputPath is the path prefix the media was
// written under and is stable even on failure so retries reuse it. err is
// reserved for failures to invoke the tool at all.
type Downloader interface {
	Download(ctx context.Context, video *models.Video, dest string) (exitCode int, outputPath string, err error)
}

// YtdlpDownloader implements [Downloader] using yt-dlp as a subprocess.
type YtdlpDownloader struct {
	// Path is the path to the yt-dlp executable. Defaults to "yt-dlp".
	Path string

	// Timeout is the maximum time to wait for one download attempt.
	Timeout time.Duration

	// Format is the yt-dlp format selector, e.g. "bestvideo+bestaudio".
	Format string

	// ExtraArgs are additional arguments passed to every invocation.
	ExtraArgs []string

	Logger *log.Logger
}

// NewYtdlpDownloader creates a yt-dlp based downloader.
func NewYtdlpDownloader(path string, timeout time.Duration, format string, extraArgs []string, logger *log.Logger) *YtdlpDownloader {
	if path == "" {
		path = defaultYtdlpPath
	}
	if timeout <= 0 {
		timeout = defaultYtdlpTimeout
	}
	return &YtdlpDownloader{
		Path:      path,
		Timeout:   timeout,
		Format:    format,
		ExtraArgs: extraArgs,
		Logger:    logger,
	}
}

// Download runs one yt-dlp attempt for the video. dest is the extensionless
// output prefix; yt-dlp appends the container extension.
func (d *YtdlpDownloader) Download(ctx context.Context, video *models.Video, dest string) (int, string, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return -1, dest, fmt.Errorf("failed to create download directory: %w", err)
	}

	args := []string{
		"--no-progress",
		"--no-warnings",
		"-o", dest + ".%(ext)s",
	}
	if d.Format != "" {
		args = append(args, "-f", d.Format)
	}
	args = append(args, d.ExtraArgs...)
	args = append(args, "https://www.youtube.com/watch?v="+video.VideoID)

	cmdCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, d.Path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return 0, dest, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if d.Logger != nil {
			d.Logger.Warn("yt-dlp exited with error",
				"video", video.VideoID,
				"code", exitErr.ExitCode(),
				"stderr", strings.TrimSpace(stderr.String()))
		}
		return exitErr.ExitCode(), dest, nil
	}

	return -1, dest, fmt.Errorf("failed to invoke yt-dlp: %w", err)
}

// OutputPath expands the user's file pattern for a video, rooted at the
// user's download directory. The result is the extensionless prefix that
// becomes the video's downloaded_path.
func OutputPath(user *models.User, sub *models.Subscription, video *models.Video) string {
	pattern := user.DownloadFilePattern
	if pattern == "" {
		pattern = "${channel}/${playlist}/${title} [${id}]"
	}

	expanded := strings.NewReplacer(
		"${channel}", sanitize(sub.ChannelName),
		"${channel_id}", sanitize(sub.ChannelID),
		"${playlist}", sanitize(sub.Name),
		"${playlist_id}", sanitize(sub.PlaylistID),
		"${playlist_index}", fmt.Sprintf("%02d", video.PlaylistIndex),
		"${title}", sanitize(video.Name),
		"${id}", sanitize(video.VideoID),
		"${uploader}", sanitize(video.UploaderName),
		"${year}", strconv.Itoa(video.PublishDate.Year()),
	).Replace(pattern)

	return filepath.Join(user.DownloadDir, expanded)
}

// sanitize strips path separators and characters that are invalid in file
// names on common filesystems.
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
