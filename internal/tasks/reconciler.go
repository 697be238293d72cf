package tasks

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/providers"
)

// reconcile runs the feed-versus-catalog merge for one pass, choosing the
// fetch mode and handling the fallback chain:
//
//   - never synced            -> full backfill
//   - incremental fetch error -> full listing (recovery path)
//   - incremental unreliable  -> full listing (catalog may have a gap the
//     delta window cannot bridge)
//
// Errors from the full listing abort the pass and surface to the caller.
func (e *Engine) reconcile(ctx context.Context, p providers.Provider, sub *models.Subscription, logger *log.Logger) error {
	if sub.LastSynchronised == nil {
		logger.Info("never synchronised, running full backfill")
		return e.reconcileFull(ctx, p, sub, logger)
	}

	items, err := p.FetchFeed(ctx, sub, providers.FeedIncremental)
	if err != nil {
		logger.Warn("incremental fetch failed, falling back to full listing", "error", err)
		return e.reconcileFull(ctx, p, sub, logger)
	}

	reliable, err := e.reconcileIncremental(ctx, p, sub, items, logger)
	if err != nil {
		return err
	}
	if !reliable {
		logger.Info("incremental feed matched no known videos, falling back to full listing")
		return e.reconcileFull(ctx, p, sub, logger)
	}

	return nil
}

// reconcileIncremental scans a short recent-only feed. Unseen ids become
// videos; the feed counts as reliable once at least one entry matches a
// video already in the catalog. An all-unknown feed means the local
// catalog may be missing more than the delta window covers.
func (e *Engine) reconcileIncremental(ctx context.Context, p providers.Provider, sub *models.Subscription, items []models.RemoteItem, logger *log.Logger) (bool, error) {
	// Feeds list newest first; create oldest first so appended indices
	// follow chronology on rewrite-index sources.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishDate.Before(items[j].PublishDate)
	})

	seenKnown := false
	created := 0

	for _, item := range items {
		existing, err := e.videos.GetByRemoteID(sub.ID, item.ID)
		if err != nil {
			return false, err
		}
		if existing != nil {
			seenKnown = true
			continue
		}

		if _, err := e.createVideo(ctx, p, sub, item); err != nil {
			return false, err
		}
		created++
	}

	logger.Info("incremental reconcile finished", "created", created, "reliable", seenKnown)
	return seenKnown, nil
}

// reconcileFull merges the complete remote listing into the catalog.
// Sources without stable absolute ordering are sorted by publish time
// before index assignment; everything else keeps the remote position order.
func (e *Engine) reconcileFull(ctx context.Context, p providers.Provider, sub *models.Subscription, logger *log.Logger) error {
	items, err := p.FetchFeed(ctx, sub, providers.FeedFull)
	if err != nil {
		return fmt.Errorf("full listing for %s: %w", sub.PlaylistID, err)
	}

	if sub.RewritePlaylistIndices {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].PublishDate.Before(items[j].PublishDate)
		})
	} else {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Position < items[j].Position
		})
	}

	created, existing := 0, 0
	for _, item := range items {
		video, err := e.videos.GetByRemoteID(sub.ID, item.ID)
		if err != nil {
			return err
		}
		if video != nil {
			existing++
			continue
		}

		if _, err := e.createVideo(ctx, p, sub, item); err != nil {
			return err
		}
		created++
	}

	logger.Info("full reconcile finished", "created", created, "existing", existing)
	return nil
}

// createVideo adds one remote item to the catalog and runs the creation
// side effects synchronously, within the pass.
func (e *Engine) createVideo(ctx context.Context, p providers.Provider, sub *models.Subscription, item models.RemoteItem) (*models.Video, error) {
	index, err := e.assignIndex(sub, item.Position)
	if err != nil {
		return nil, err
	}

	video := &models.Video{
		VideoID:        item.ID,
		SubscriptionID: sub.ID,
		Name:           item.Title,
		Description:    item.Description,
		UploaderName:   item.UploaderName,
		Watched:        false,
		New:            true,
		PlaylistIndex:  index,
		PublishDate:    item.PublishDate,
		Thumbnail:      item.Thumbnail,
		Views:          item.Views,
		Rating:         0.5,
		Duration:       item.Duration,
	}

	if err := e.videos.Create(video); err != nil {
		return nil, err
	}

	e.onCreated(ctx, p, sub, video)
	return video, nil
}

// ReconcileOne is the push-notification entry point: a single remote item
// delivered out of band is created if absent, with the same creation side
// effects as a sync pass. Returns nil when the video already existed.
func (e *Engine) ReconcileOne(ctx context.Context, subscriptionID string, item models.RemoteItem) (*models.Video, error) {
	sub, err := e.subs.Get(subscriptionID)
	if err != nil {
		return nil, err
	}

	p, err := e.registry.Get(sub.Provider)
	if err != nil {
		return nil, err
	}

	existing, err := e.videos.GetByRemoteID(sub.ID, item.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	return e.createVideo(ctx, p, sub, item)
}
