package main

import (
	"context"
	"fmt"

	"github.com/girlpunk/ytsm/internal/shared"
	"github.com/urfave/cli/v3"
)

// Sync runs synchronization passes inline, for one subscription, one
// folder subtree, or everything.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	subID := cmd.String("subscription")
	folderID := cmd.String("folder")

	switch {
	case subID != "":
		r.logger.Info("synchronising subscription", "id", subID)
		return a.engine.Synchronize(ctx, subID)
	case folderID != "":
		r.logger.Info("synchronising folder", "id", folderID)
		return a.engine.SynchronizeFolder(ctx, folderID)
	case cmd.Bool("all"):
		user, err := r.defaultUser(a)
		if err != nil {
			return err
		}
		r.logger.Info("synchronising all subscriptions")
		return a.engine.SynchronizeAll(ctx, user.ID)
	default:
		return fmt.Errorf("%w: one of --all, --subscription, or --folder is required", shared.ErrMissingArgument)
	}
}
