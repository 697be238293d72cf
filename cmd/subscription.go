package main

import (
	"context"
	"fmt"

	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/shared"
	"github.com/girlpunk/ytsm/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SubscriptionAdd resolves a URL through the provider registry and creates
// the subscription.
func (r *Runner) SubscriptionAdd(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}

	a, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := r.defaultUser(a)
	if err != nil {
		return err
	}

	provider, err := a.registry.ForURL(url)
	if err != nil {
		return err
	}

	sub := &models.Subscription{
		ID:     shared.GenerateID(),
		UserID: user.ID,
	}
	if folderID := cmd.String("folder"); folderID != "" {
		if _, err := a.folders.Get(folderID); err != nil {
			return fmt.Errorf("folder %s: %w", folderID, err)
		}
		sub.ParentFolderID = &folderID
	}

	r.logger.Info("resolving subscription", "url", url, "provider", provider.Kind())
	if err := provider.FillSubscription(ctx, url, sub); err != nil {
		return fmt.Errorf("failed to resolve %s: %w", url, err)
	}

	if existing, err := a.subs.GetByPlaylistID(sub.Provider, sub.PlaylistID); err == nil && existing != nil {
		return fmt.Errorf("%w: already subscribed as %q", shared.ErrDuplicate, existing.Name)
	}

	if err := a.subs.Create(sub); err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	r.writePlain("subscribed: %s (%s)\n", sub.Name, sub.ID)

	if cmd.Bool("sync") {
		return a.engine.Synchronize(ctx, sub.ID)
	}
	return nil
}

// SubscriptionList prints the default user's subscriptions.
func (r *Runner) SubscriptionList(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := r.defaultUser(a)
	if err != nil {
		return err
	}

	subs, err := a.subs.ListByUser(user.ID)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(subs, cmd.Bool("pretty"))
	}

	for _, sub := range subs {
		synced := "never"
		if sub.LastSynchronised != nil {
			synced = sub.LastSynchronised.Format("2006-01-02 15:04")
		}
		r.writePlain("%s  %-30s  %s  last sync: %s\n", sub.ID, sub.Name, sub.Provider, synced)
	}
	r.writePlainln("%d subscription(s)", len(subs))
	return nil
}

// SubscriptionExport writes video listings to disk, either for one
// subscription or for every subscription the default user has.
func (r *Runner) SubscriptionExport(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" && !cmd.Bool("all") {
		return fmt.Errorf("%w: id (or --all)", shared.ErrMissingArgument)
	}

	a, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var subs []*models.Subscription
	if id != "" {
		sub, err := a.subs.Get(id)
		if err != nil {
			return fmt.Errorf("subscription %s: %w", id, err)
		}
		subs = []*models.Subscription{sub}
	} else {
		user, err := r.defaultUser(a)
		if err != nil {
			return err
		}
		if subs, err = a.subs.ListByUser(user.ID); err != nil {
			return fmt.Errorf("failed to list subscriptions: %w", err)
		}
	}

	result, err := a.engine.BulkExport(ctx, subs, tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
	})
	if err != nil {
		return err
	}

	r.writePlainln("exported %d/%d subscription(s) to %s",
		result.SuccessfulExports, result.TotalSubscriptions, result.OutputDirectory)
	if result.FailedExports > 0 {
		return fmt.Errorf("%d export(s) failed, see %s", result.FailedExports, result.ManifestPath)
	}
	return nil
}

// SubscriptionRemove deletes a subscription and its videos.
func (r *Runner) SubscriptionRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	a, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sub, err := a.subs.Get(id)
	if err != nil {
		return fmt.Errorf("subscription %s: %w", id, err)
	}
	if err := a.subs.Delete(id); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	r.writePlain("deleted: %s\n", sub.Name)
	return nil
}
