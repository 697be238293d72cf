package tasks

import (
	"context"
	"fmt"

	"github.com/girlpunk/ytsm/internal/downloader"
	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/shared"
)

// SelectCandidates returns the videos of one subscription eligible for
// download, in the resolved order preference, truncated by the global
// quota and then by the per-subscription quota. Quota counts are read at
// selection time without reservation, so concurrent selection across
// subscriptions can transiently oversubscribe; the limits are soft.
func (e *Engine) SelectCandidates(sub *models.Subscription, user *models.User) ([]*models.Video, error) {
	candidates, err := e.videos.ListDownloadCandidates(sub.ID, sub.ResolveDownloadOrder(user))
	if err != nil {
		return nil, err
	}

	if globalLimit := user.DownloadGlobalLimit; globalLimit > 0 {
		downloaded, err := e.videos.CountDownloadedByUser(user.ID)
		if err != nil {
			return nil, err
		}
		allowed := globalLimit - downloaded
		if allowed < 0 {
			allowed = 0
		}
		if len(candidates) > allowed {
			candidates = candidates[:allowed]
		}
	}

	if limit := sub.ResolveDownloadLimit(user); limit > 0 {
		downloaded, err := e.videos.CountDownloadedBySubscription(sub.ID)
		if err != nil {
			return nil, err
		}
		allowed := limit - downloaded
		if allowed < 0 {
			allowed = 0
		}
		if len(candidates) > allowed {
			candidates = candidates[:allowed]
		}
	}

	return candidates, nil
}

// Submit downloads one video, retrying up to the user's attempt ceiling.
// Each attempt holds the process-wide download gate for its full duration.
// After the last failed attempt the video records the terminal failure
// marker and is never retried by this path again.
func (e *Engine) Submit(ctx context.Context, user *models.User, sub *models.Subscription, video *models.Video) error {
	dest := downloader.OutputPath(user, sub, video)
	maxAttempts := user.MaxDownloadAttempts
	logger := e.logger.With("video", video.VideoID, "subscription", sub.Name)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code, outputPath, err := e.attemptDownload(ctx, video, dest)
		if err != nil {
			logger.Warn("download attempt could not run", "attempt", attempt, "max", maxAttempts, "error", err)
		} else if code == 0 {
			video.DownloadedPath = &outputPath
			if err := e.videos.Update(video); err != nil {
				return err
			}
			logger.Info("video downloaded", "path", outputPath)
			return nil
		} else {
			logger.Warn("download attempt failed", "attempt", attempt, "max", maxAttempts, "code", code)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	empty := ""
	video.DownloadedPath = &empty
	if err := e.videos.Update(video); err != nil {
		return err
	}

	logger.Error("all download attempts failed", "attempts", maxAttempts)
	return fmt.Errorf("video %s: %w", video.VideoID, shared.ErrDownloadFailed)
}

// attemptDownload runs a single attempt behind the download gate. The gate
// exists because the download tool's directory creation races against
// itself when two invocations run concurrently; it has no timeout and is
// held until the attempt returns.
func (e *Engine) attemptDownload(ctx context.Context, video *models.Video, dest string) (int, string, error) {
	e.downloadGate.Lock()
	defer e.downloadGate.Unlock()

	return e.downloader.Download(ctx, video, dest)
}

// ProcessDownloads runs scheduler selection and submission for one
// subscription, skipping it entirely when auto-download resolves false.
// Individual download failures are recorded on their videos and do not
// stop the remaining submissions.
func (e *Engine) ProcessDownloads(ctx context.Context, sub *models.Subscription, user *models.User) error {
	if !sub.ResolveAutoDownload(user) {
		return nil
	}

	candidates, err := e.SelectCandidates(sub, user)
	if err != nil {
		return err
	}

	e.logger.Info("processing downloads", "subscription", sub.Name, "candidates", len(candidates))

	for _, video := range candidates {
		if err := e.Submit(ctx, user, sub, video); err != nil {
			e.logger.Warn("download submission failed", "video", video.VideoID, "error", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

// ProcessAllDownloads runs the scheduler for every subscription of a user.
func (e *Engine) ProcessAllDownloads(ctx context.Context, userID string) error {
	user, err := e.users.Get(userID)
	if err != nil {
		return err
	}

	subs, err := e.subs.ListForSync(userID)
	if err != nil {
		return err
	}

	for _, sub := range subs {
		if err := e.ProcessDownloads(ctx, sub, user); err != nil {
			e.logger.Warn("processing downloads failed", "subscription", sub.Name, "error", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}
