package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/girlpunk/ytsm/internal/models"
)

// Synchronize runs one reconciliation pass for one subscription, strictly
// sequential:
//
//  1. clear the transient new flags
//  2. reconcile the remote feed (mode selection and fallback in reconcile)
//  3. stamp last_synchronised; the stamp records that a pass ran, even
//     when nothing new was found
//  4. run the per-video sync check for every video, old and new
//  5. feed the download scheduler when auto-download resolves true
//
// A reconcile failure aborts the pass before the stamp. Two concurrent
// passes over the same subscription are not safe; callers serialize per
// subscription id through [Queue].
func (e *Engine) Synchronize(ctx context.Context, subscriptionID string) error {
	sub, err := e.subs.Get(subscriptionID)
	if err != nil {
		return err
	}
	user, err := e.users.Get(sub.UserID)
	if err != nil {
		return err
	}
	p, err := e.registry.Get(sub.Provider)
	if err != nil {
		return err
	}

	logger := e.logger.With("subscription", sub.Name)
	logger.Info("starting synchronize")

	if err := e.videos.ResetNewFlags(sub.ID); err != nil {
		return err
	}

	if err := e.reconcile(ctx, p, sub, logger); err != nil {
		return fmt.Errorf("synchronize %q: %w", sub.Name, err)
	}

	now := time.Now()
	if err := e.subs.SetLastSynchronised(sub.ID, now); err != nil {
		return err
	}
	sub.LastSynchronised = &now

	e.resolveSubscriptionThumbnail(ctx, sub)

	videos, err := e.videos.ListBySubscription(sub.ID)
	if err != nil {
		return err
	}
	for _, video := range videos {
		if err := e.checkVideo(ctx, p, user, video); err != nil {
			logger.Warn("sync check failed", "video", video.VideoID, "error", err)
		}
	}

	if err := e.ProcessDownloads(ctx, sub, user); err != nil {
		return err
	}

	logger.Info("finished synchronize")
	return nil
}

// SynchronizeAll runs a pass for every subscription of a user, never-synced
// subscriptions first, oldest stamp next. Failures are isolated per
// subscription; the batch always runs to completion and the joined errors
// are returned at the end.
func (e *Engine) SynchronizeAll(ctx context.Context, userID string) error {
	subs, err := e.subs.ListForSync(userID)
	if err != nil {
		return err
	}

	var failures []error
	for _, sub := range subs {
		if err := e.Synchronize(ctx, sub.ID); err != nil {
			e.logger.Error("subscription synchronize failed", "subscription", sub.Name, "error", err)
			failures = append(failures, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return errors.Join(failures...)
}

// SynchronizeFolder runs a pass for every subscription inside a folder and
// all folders underneath it, with the same isolation as SynchronizeAll.
func (e *Engine) SynchronizeFolder(ctx context.Context, folderID string) error {
	folderIDs, err := e.folders.DescendantIDs(folderID)
	if err != nil {
		return err
	}

	var failures []error
	for _, id := range folderIDs {
		subs, err := e.subs.ListByFolder(id)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		for _, sub := range subs {
			if err := e.Synchronize(ctx, sub.ID); err != nil {
				e.logger.Error("subscription synchronize failed", "subscription", sub.Name, "error", err)
				failures = append(failures, err)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}

	return errors.Join(failures...)
}

// resolveSubscriptionThumbnail caches the subscription's thumbnail locally
// when it is still a remote URL. Best-effort.
func (e *Engine) resolveSubscriptionThumbnail(ctx context.Context, sub *models.Subscription) {
	if e.thumbs == nil || !strings.HasPrefix(sub.Thumbnail, "http") {
		return
	}

	path, err := e.thumbs.Resolve(ctx, "sub", sub.PlaylistID, sub.Thumbnail)
	if err != nil {
		e.logger.Warn("failed to cache subscription thumbnail", "subscription", sub.Name, "error", err)
		return
	}
	if path == sub.Thumbnail {
		return
	}

	sub.Thumbnail = path
	if err := e.subs.Update(sub); err != nil {
		e.logger.Warn("failed to store subscription thumbnail", "subscription", sub.Name, "error", err)
	}
}
