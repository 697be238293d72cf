package tasks

import (
	"context"
	"strings"

	"github.com/girlpunk/ytsm/internal/downloader"
	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/providers"
)

// onCreated runs the side effects for a freshly created video: a stats
// refresh when the duration is unknown (or stats refreshing is on) and a
// thumbnail resolution when the reference is still remote. Both are
// best-effort; failures are logged and the video stays in the catalog.
func (e *Engine) onCreated(ctx context.Context, p providers.Provider, sub *models.Subscription, video *models.Video) {
	changed := false

	if e.refreshStats || video.Duration == 0 {
		if e.refreshVideoStats(ctx, p, video) {
			changed = true
		}
	}

	if e.resolveVideoThumbnail(ctx, video) {
		changed = true
	}

	if changed {
		if err := e.videos.Update(video); err != nil {
			e.logger.Error("failed to update video after creation", "video", video.VideoID, "error", err)
		}
	}
}

// checkVideo is the per-video sync check run on every pass. When a
// downloaded video's files no longer include anything recognizable as
// video, the file was removed outside the system: stray siblings are
// unlinked, the download state resets, and the video is optionally marked
// watched per the owner's preference.
func (e *Engine) checkVideo(ctx context.Context, p providers.Provider, user *models.User, video *models.Video) error {
	changed := false

	if video.DownloadedPath != nil && *video.DownloadedPath != "" {
		files, err := downloader.ListLocalFiles(*video.DownloadedPath)
		if err != nil {
			// A failed probe says nothing about the file. Log it and
			// leave the download state alone; only a clean listing with
			// no video file counts as deleted externally.
			e.logger.Warn("failed to probe downloaded files", "video", video.VideoID, "error", err)
		} else if downloader.FindVideoFile(files) == "" {
			if removed, err := downloader.RemoveFiles(files); err != nil {
				e.logger.Warn("failed to clean up stray files", "video", video.VideoID, "removed", removed, "error", err)
			}

			video.DownloadedPath = nil
			if user.MarkDeletedAsWatched {
				video.Watched = true
			}
			changed = true
			e.logger.Info("downloaded file missing, resetting download state", "video", video.VideoID)
		}
	}

	if e.resolveVideoThumbnail(ctx, video) {
		changed = true
	}

	if e.refreshStats || video.Duration == 0 {
		if e.refreshVideoStats(ctx, p, video) {
			changed = true
		}
	}

	if changed {
		return e.videos.Update(video)
	}
	return nil
}

// refreshVideoStats pulls fresh engagement numbers for the video. A nil
// result means the item vanished remotely; the local entry is kept as a
// soft-deleted cache and left untouched.
func (e *Engine) refreshVideoStats(ctx context.Context, p providers.Provider, video *models.Video) bool {
	stats, err := p.FetchStats(ctx, video.VideoID)
	if err != nil {
		e.logger.Warn("failed to fetch video stats", "video", video.VideoID, "error", err)
		return false
	}
	if stats == nil {
		return false
	}

	video.Views = stats.Views
	video.Rating = stats.Rating()
	video.Duration = stats.Duration
	return true
}

// resolveVideoThumbnail swaps a remote thumbnail URL for a cached local path.
func (e *Engine) resolveVideoThumbnail(ctx context.Context, video *models.Video) bool {
	if e.thumbs == nil || !strings.HasPrefix(video.Thumbnail, "http") {
		return false
	}

	path, err := e.thumbs.Resolve(ctx, "video", video.VideoID, video.Thumbnail)
	if err != nil {
		e.logger.Warn("failed to cache thumbnail", "video", video.VideoID, "error", err)
		return false
	}
	if path == video.Thumbnail {
		return false
	}

	video.Thumbnail = path
	return true
}

// MarkWatched flags a video as watched. When the subscription resolves
// delete-watched and a file is present, this triggers a re-synchronize of
// the whole channel rather than deleting the file directly.
func (e *Engine) MarkWatched(ctx context.Context, videoID string) error {
	video, err := e.videos.Get(videoID)
	if err != nil {
		return err
	}

	video.Watched = true
	if err := e.videos.Update(video); err != nil {
		return err
	}

	if video.Downloaded() {
		sub, err := e.subs.Get(video.SubscriptionID)
		if err != nil {
			return err
		}
		user, err := e.users.Get(sub.UserID)
		if err != nil {
			return err
		}
		if sub.ResolveDeleteWatched(user) {
			e.scheduleResync(ctx, sub.ID)
		}
	}

	return nil
}

// MarkUnwatched clears the watched flag and re-synchronizes the parent
// subscription, which re-evaluates download candidacy.
func (e *Engine) MarkUnwatched(ctx context.Context, videoID string) error {
	video, err := e.videos.Get(videoID)
	if err != nil {
		return err
	}

	video.Watched = false
	if err := e.videos.Update(video); err != nil {
		return err
	}

	e.scheduleResync(ctx, video.SubscriptionID)
	return nil
}

// DeleteFiles removes every local file belonging to the video, resets its
// download state and re-synchronizes the parent subscription.
func (e *Engine) DeleteFiles(ctx context.Context, videoID string) error {
	video, err := e.videos.Get(videoID)
	if err != nil {
		return err
	}

	if video.DownloadedPath != nil && *video.DownloadedPath != "" {
		files, err := downloader.ListLocalFiles(*video.DownloadedPath)
		if err != nil {
			e.logger.Warn("failed to list files for deletion", "video", video.VideoID, "error", err)
		}
		if removed, err := downloader.RemoveFiles(files); err != nil {
			e.logger.Warn("failed to delete some files", "video", video.VideoID, "removed", removed, "error", err)
		} else {
			e.logger.Info("deleted video files", "video", video.VideoID, "count", removed)
		}
	}

	video.DownloadedPath = nil
	if err := e.videos.Update(video); err != nil {
		return err
	}

	e.scheduleResync(ctx, video.SubscriptionID)
	return nil
}

// Download submits a video to the download scheduler. A video with any
// recorded download state is left alone: success is not repeated, and the
// terminal failure marker is not retried here (the scheduler's own attempt
// loop is the only retry path).
func (e *Engine) Download(ctx context.Context, videoID string) error {
	video, err := e.videos.Get(videoID)
	if err != nil {
		return err
	}

	if video.DownloadedPath != nil {
		return nil
	}

	sub, err := e.subs.Get(video.SubscriptionID)
	if err != nil {
		return err
	}
	user, err := e.users.Get(sub.UserID)
	if err != nil {
		return err
	}

	return e.Submit(ctx, user, sub, video)
}
