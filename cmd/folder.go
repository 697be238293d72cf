package main

import (
	"context"
	"fmt"

	"github.com/girlpunk/ytsm/internal/models"
	"github.com/girlpunk/ytsm/internal/shared"
	"github.com/urfave/cli/v3"
)

// FolderAdd creates a folder, optionally under a parent.
func (r *Runner) FolderAdd(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: name", shared.ErrMissingArgument)
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

	folder := &models.SubscriptionFolder{
		ID:     shared.GenerateID(),
		Name:   name,
		UserID: user.ID,
	}
	if parentID := cmd.String("parent"); parentID != "" {
		if _, err := a.folders.Get(parentID); err != nil {
			return fmt.Errorf("parent folder %s: %w", parentID, err)
		}
		folder.ParentID = &parentID
	}

	if err := a.folders.Create(folder); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	r.writePlain("created folder: %s (%s)\n", folder.Name, folder.ID)
	return nil
}

// FolderList prints the folder tree as a flat listing with parent IDs.
func (r *Runner) FolderList(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := r.defaultUser(a)
	if err != nil {
		return err
	}

	folders, err := a.folders.ListByUser(user.ID)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(folders, cmd.Bool("pretty"))
	}

	for _, folder := range folders {
		parent := "-"
		if folder.ParentID != nil {
			parent = *folder.ParentID
		}
		r.writePlain("%s  %-30s  parent: %s\n", folder.ID, folder.Name, parent)
	}
	r.writePlainln("%d folder(s)", len(folders))
	return nil
}

// FolderMove re-parents a folder. Moves that would create a cycle are
// rejected by the repository.
func (r *Runner) FolderMove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	a, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	folder, err := a.folders.Get(id)
	if err != nil {
		return fmt.Errorf("folder %s: %w", id, err)
	}

	if parentID := cmd.String("parent"); parentID != "" {
		folder.ParentID = &parentID
	} else {
		folder.ParentID = nil
	}

	if err := a.folders.Update(folder); err != nil {
		return fmt.Errorf("failed to move folder: %w", err)
	}
	r.writePlain("moved folder: %s\n", folder.Name)
	return nil
}

// FolderRemove deletes a folder, optionally keeping its subscriptions.
func (r *Runner) FolderRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	a, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.folders.Delete(id, cmd.Bool("keep-subscriptions")); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	r.writePlain("deleted folder: %s\n", id)
	return nil
}
