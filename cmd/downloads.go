package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// DownloadsProcess runs the download scheduler, either for every
// auto-download subscription or a single one.
func (r *Runner) DownloadsProcess(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := r.defaultUser(a)
	if err != nil {
		return err
	}

	if subID := cmd.String("subscription"); subID != "" {
		sub, err := a.subs.Get(subID)
		if err != nil {
			return fmt.Errorf("subscription %s: %w", subID, err)
		}
		return a.engine.ProcessDownloads(ctx, sub, user)
	}

	return a.engine.ProcessAllDownloads(ctx, user.ID)
}
