package main

import (
	"context"
	"fmt"

	"github.com/girlpunk/ytsm/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) videoAction(ctx context.Context, cmd *cli.Command, action func(a *app, id string) error) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	a, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return action(a, id)
}

// VideoWatch marks a video as watched.
func (r *Runner) VideoWatch(ctx context.Context, cmd *cli.Command) error {
	return r.videoAction(ctx, cmd, func(a *app, id string) error {
		return a.engine.MarkWatched(ctx, id)
	})
}

// VideoUnwatch marks a video as not watched.
func (r *Runner) VideoUnwatch(ctx context.Context, cmd *cli.Command) error {
	return r.videoAction(ctx, cmd, func(a *app, id string) error {
		return a.engine.MarkUnwatched(ctx, id)
	})
}

// VideoDownload downloads a single video immediately.
func (r *Runner) VideoDownload(ctx context.Context, cmd *cli.Command) error {
	return r.videoAction(ctx, cmd, func(a *app, id string) error {
		return a.engine.Download(ctx, id)
	})
}

// VideoRemoveFiles deletes a video's downloaded files.
func (r *Runner) VideoRemoveFiles(ctx context.Context, cmd *cli.Command) error {
	return r.videoAction(ctx, cmd, func(a *app, id string) error {
		return a.engine.DeleteFiles(ctx, id)
	})
}
